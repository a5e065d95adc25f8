// Package dispatcher implements the four request-submission modes (sync,
// async-poll, async-notify, batch) on top of a shared Executor, plus the
// opaque handle table backing the async modes and the WebSocket/SSE
// handles.
//
// Handles are plain incrementing uint64s guarded by a concurrent map
// rather than a cgo.Handle, since this engine has no cgo boundary of its
// own; the shape (issue-on-submit, delete-on-collection) mirrors the host
// resource-lifetime contract regardless of the mechanism.
package dispatcher

import (
	"sync"
	"sync/atomic"
)

// Handle is an opaque, safely-convertible-to-integer reference to a
// pending or completed async operation, a WebSocket connection, or an
// SSE stream.
type Handle uint64

type handleState struct {
	mu        sync.Mutex
	ready     bool
	cancelled bool
	result    any
	notifyFD  int
	hasNotify bool
}

// Table is the process-wide store of outstanding handles. One Table is
// shared by every dispatcher mode and by the WebSocket/SSE ABI calls.
type Table struct {
	next    atomic.Uint64
	mu      sync.RWMutex
	entries map[Handle]*handleState
	values  map[Handle]any // long-lived objects: *upgrade.WSConn, *upgrade.SSEStream
}

// NewTable returns an empty handle table.
func NewTable() *Table {
	return &Table{
		entries: make(map[Handle]*handleState),
		values:  make(map[Handle]any),
	}
}

// New issues a fresh handle with no result yet.
func (t *Table) New() Handle {
	h := Handle(t.next.Add(1))
	t.mu.Lock()
	t.entries[h] = &handleState{}
	t.mu.Unlock()
	return h
}

// Put stores a long-lived value (a connection, a stream) under a fresh
// handle and returns it.
func (t *Table) Put(v any) Handle {
	h := Handle(t.next.Add(1))
	t.mu.Lock()
	t.values[h] = v
	t.mu.Unlock()
	return h
}

// Get returns the long-lived value stored under h, if any.
func (t *Table) Get(h Handle) (any, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.values[h]
	return v, ok
}

// Complete records the result of the async operation behind h and, if a
// notify fd was registered, signals it.
func (t *Table) Complete(h Handle, result any) {
	t.mu.RLock()
	st, ok := t.entries[h]
	t.mu.RUnlock()
	if !ok {
		return
	}
	st.mu.Lock()
	st.ready = true
	st.result = result
	fd, hasNotify := st.notifyFD, st.hasNotify
	st.mu.Unlock()
	if hasNotify {
		signalNotify(fd)
	}
}

// Poll returns (result, true) if h's operation has completed, or
// (nil, false) if it is still pending. It does not consume the result.
func (t *Table) Poll(h Handle) (any, bool) {
	t.mu.RLock()
	st, ok := t.entries[h]
	t.mu.RUnlock()
	if !ok {
		return nil, false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if !st.ready {
		return nil, false
	}
	return st.result, true
}

// Take returns and removes the result, freeing the handle's entry.
func (t *Table) Take(h Handle) (any, bool) {
	v, ok := t.Poll(h)
	if !ok {
		return nil, false
	}
	t.mu.Lock()
	delete(t.entries, h)
	t.mu.Unlock()
	return v, true
}

// RegisterNotify attaches a write-end file descriptor to h; Complete
// writes one byte to it once the result is ready.
func (t *Table) RegisterNotify(h Handle, fd int) {
	t.mu.RLock()
	st, ok := t.entries[h]
	t.mu.RUnlock()
	if !ok {
		return
	}
	st.mu.Lock()
	st.notifyFD = fd
	st.hasNotify = true
	st.mu.Unlock()
}

// Cancel marks h cancelled; the running goroutine observes this at its
// next suspension point.
func (t *Table) Cancel(h Handle) {
	t.mu.RLock()
	st, ok := t.entries[h]
	t.mu.RUnlock()
	if !ok {
		return
	}
	st.mu.Lock()
	st.cancelled = true
	st.mu.Unlock()
}

// Cancelled reports whether h has been marked cancelled.
func (t *Table) Cancelled(h Handle) bool {
	t.mu.RLock()
	st, ok := t.entries[h]
	t.mu.RUnlock()
	if !ok {
		return false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.cancelled
}

// Free deletes h's entry or long-lived value, releasing it for
// collection.
func (t *Table) Free(h Handle) {
	t.mu.Lock()
	delete(t.entries, h)
	delete(t.values, h)
	t.mu.Unlock()
}
