// Package pool implements the Connection Pool: a ConnectionKey ->
// PooledTransport map, a per-address dial mutex, and lease/outcome
// semantics. Grounded on a fixed-fingerprint dialer's
// h2ConnPool map[string]*http2.ClientConn pattern, generalized to
// arbitrary fingerprint-keyed entries and to explicit
// Acquire/Release/CloseIdle operations.
package pool

import (
	"log"
	"sync"
	"time"
)

// Key identifies a pooled transport: scheme, host:port, TLS version,
// fingerprint hash, HTTP/2 shape hash, proxy, and SNI, collapsed to a
// single comparable string by the caller (see executor.BuildKey).
type Key string

// Transport is the minimal interface a pooled connection must satisfy:
// closeable, and queryable for idle-eviction selectors.
type Transport interface {
	Close() error
}

type entry struct {
	key       Key
	addr      string
	transport Transport
	idle      bool
	lastUsed  time.Time
	leases    int // HTTP/1.1 entries never exceed 1; H2/H3 entries may multiplex
	exclusive bool
}

// Lease is a handle to a pooled (or freshly dialed) transport, returned
// to the caller by Acquire and settled by Release.
type Lease struct {
	Key       Key
	Transport Transport
	fresh     bool
}

// Outcome is passed to Release to decide the entry's fate.
type Outcome int

const (
	// OutcomeIdle returns the transport to the pool, idle, for reuse.
	OutcomeIdle Outcome = iota
	// OutcomeBroken removes and closes the transport: IO error, HTTP/2
	// GOAWAY, or QUIC connection close.
	OutcomeBroken
)

// Pool is the process- or engine-scoped connection pool.
type Pool struct {
	mu      sync.Mutex
	entries map[Key][]*entry
	addrMu  map[string]*sync.Mutex
	addrMuL sync.Mutex
}

// New returns an empty Pool.
func New() *Pool {
	return &Pool{
		entries: make(map[Key][]*entry),
		addrMu:  make(map[string]*sync.Mutex),
	}
}

func (p *Pool) addrMutex(addr string) *sync.Mutex {
	p.addrMuL.Lock()
	defer p.addrMuL.Unlock()
	m, ok := p.addrMu[addr]
	if !ok {
		m = &sync.Mutex{}
		p.addrMu[addr] = m
	}
	return m
}

// Dialer dials a fresh transport for key/addr when none is pooled or
// reusable. multiplexed reports whether the resulting transport can
// serve more than one concurrent lease (HTTP/2, HTTP/3).
type Dialer func() (transport Transport, multiplexed bool, err error)

// Acquire resolves key to a lease: an existing idle (or multiplexable)
// entry, or a freshly dialed one via dial. addr serializes concurrent
// first-dials to the same address (not the same key), so two distinct
// fingerprints to the same host don't thundering-herd dial.
func (p *Pool) Acquire(key Key, addr string, enableReuse bool, dial Dialer) (*Lease, error) {
	if !enableReuse {
		t, _, err := dial()
		if err != nil {
			return nil, err
		}
		return &Lease{Key: key, Transport: t, fresh: true}, nil
	}

	am := p.addrMutex(addr)
	am.Lock()
	defer am.Unlock()

	p.mu.Lock()
	for _, e := range p.entries[key] {
		if e.idle {
			e.idle = false
			e.leases++
			p.mu.Unlock()
			return &Lease{Key: key, Transport: e.transport}, nil
		}
		if !e.exclusive {
			// Multiplexed (HTTP/2, HTTP/3) entries stay non-idle for the
			// whole time any request is in flight over them; grant an
			// additional lease against the live transport instead of
			// dialing a second connection to the same key.
			e.leases++
			p.mu.Unlock()
			return &Lease{Key: key, Transport: e.transport}, nil
		}
	}
	p.mu.Unlock()

	t, multiplexed, err := dial()
	if err != nil {
		return nil, err
	}

	e := &entry{key: key, addr: addr, transport: t, idle: false, leases: 1, exclusive: !multiplexed}
	p.mu.Lock()
	p.entries[key] = append(p.entries[key], e)
	p.mu.Unlock()

	return &Lease{Key: key, Transport: t}, nil
}

// Release settles a lease per outcome. A broken lease is removed from
// the pool and closed regardless of how many leases are outstanding;
// otherwise the entry's lease count is decremented and it's only
// marked idle once the last concurrent lease has been released.
// enable_connection_reuse=false leases (fresh, never inserted) are
// always closed.
func (p *Pool) Release(lease *Lease, outcome Outcome) {
	if lease.fresh {
		lease.Transport.Close()
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	entries := p.entries[lease.Key]
	for i, e := range entries {
		if e.transport != lease.Transport {
			continue
		}
		if outcome == OutcomeBroken {
			log.Printf("[pool] %s: broken lease, closing transport", lease.Key)
			e.transport.Close()
			remaining := append(entries[:i], entries[i+1:]...)
			if len(remaining) == 0 {
				delete(p.entries, lease.Key)
			} else {
				p.entries[lease.Key] = remaining
			}
			return
		}
		if e.leases > 0 {
			e.leases--
		}
		if e.leases == 0 {
			e.idle = true
			e.lastUsed = time.Now()
		}
		return
	}
}

// Selector decides whether an entry matching key/addr is eligible for
// CloseIdle eviction.
type Selector func(key Key, addr string) bool

// CloseIdle closes and removes every idle entry matching selector;
// entries currently leased are left alone.
func (p *Pool) CloseIdle(selector Selector) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	closed := 0
	for key, entries := range p.entries {
		kept := entries[:0]
		for _, e := range entries {
			if e.idle && (selector == nil || selector(key, e.addr)) {
				e.transport.Close()
				closed++
				continue
			}
			kept = append(kept, e)
		}
		if len(kept) == 0 {
			delete(p.entries, key)
		} else {
			p.entries[key] = kept
		}
	}
	return closed
}

// Stats reports coarse pool occupancy for the admin surface.
type Stats struct {
	Keys    int
	Entries int
	Idle    int
}

func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := Stats{Keys: len(p.entries)}
	for _, entries := range p.entries {
		s.Entries += len(entries)
		for _, e := range entries {
			if e.idle {
				s.Idle++
			}
		}
	}
	return s
}
