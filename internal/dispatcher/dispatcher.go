package dispatcher

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"

	"github.com/Goga74/fpengine/internal/executor"
)

// Dispatcher fans requests out to the shared Executor under four
// submission modes: synchronous, async-by-polling-handle,
// async-by-notification, and batch. Every mode ultimately runs the
// request on its own goroutine so synchronous callers still let the
// scheduler multiplex concurrent work.
type Dispatcher struct {
	Executor *executor.Executor
	Handles  *Table
}

// New returns a Dispatcher driving ex, with a fresh handle table.
func New(ex *executor.Executor) *Dispatcher {
	return &Dispatcher{Executor: ex, Handles: NewTable()}
}

// runRequest executes req, recovering any panic into a ProtocolError
// response rather than letting it escape and take down the goroutine's
// caller.
func runRequest(ctx context.Context, ex *executor.Executor, req *executor.Request) (resp *executor.Response) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[dispatcher] recovered panic for request %s: %v\n%s", req.RequestID, r, debug.Stack())
			resp = &executor.Response{
				RequestID: req.RequestID,
				Status:    0,
				Body:      []byte(fmt.Sprintf("ProtocolError: panic: %v", r)),
				Err:       fmt.Errorf("dispatcher: recovered panic: %v", r),
			}
		}
	}()
	return ex.Do(ctx, req)
}

// Sync blocks until req has been fully executed. A goroutine still
// carries the work so the caller shares the scheduler fairly with
// concurrent callers.
func (d *Dispatcher) Sync(ctx context.Context, req *executor.Request) *executor.Response {
	resultCh := make(chan *executor.Response, 1)
	go func() {
		resultCh <- runRequest(ctx, d.Executor, req)
	}()
	select {
	case resp := <-resultCh:
		return resp
	case <-ctx.Done():
		return &executor.Response{RequestID: req.RequestID, Status: 0, Body: []byte("Cancelled"), Err: ctx.Err()}
	}
}

// SubmitAsync starts req in the background and returns a handle the
// caller later polls or takes.
func (d *Dispatcher) SubmitAsync(ctx context.Context, req *executor.Request) Handle {
	h := d.Handles.New()
	go func() {
		resp := runRequest(ctx, d.Executor, req)
		d.Handles.Complete(h, resp)
	}()
	return h
}

// PollAsync reports whether h's request has completed, without
// consuming the result.
func (d *Dispatcher) PollAsync(h Handle) (*executor.Response, bool) {
	v, ok := d.Handles.Poll(h)
	if !ok {
		return nil, false
	}
	return v.(*executor.Response), true
}

// SubmitWithNotify starts req in the background and arranges for one
// byte to be written to notifyFD once it completes.
func (d *Dispatcher) SubmitWithNotify(ctx context.Context, req *executor.Request, notifyFD int) Handle {
	h := d.Handles.New()
	d.Handles.RegisterNotify(h, notifyFD)
	go func() {
		resp := runRequest(ctx, d.Executor, req)
		d.Handles.Complete(h, resp)
	}()
	return h
}

// TakeAsyncResult returns and frees the completed result behind h.
func (d *Dispatcher) TakeAsyncResult(h Handle) (*executor.Response, bool) {
	v, ok := d.Handles.Take(h)
	if !ok {
		return nil, false
	}
	return v.(*executor.Response), true
}

// Cancel marks h's in-flight request cancelled; the running goroutine
// observes this at its next IO suspension via the context it was
// started with, not via this call directly — callers should derive
// req's context from a cancellable parent and cancel that parent.
func (d *Dispatcher) Cancel(h Handle) {
	d.Handles.Cancel(h)
}

// Batch runs every request in reqs concurrently and gathers responses
// in declaration order. A batch never fails as a whole: each element
// carries its own outcome.
func (d *Dispatcher) Batch(ctx context.Context, reqs []*executor.Request) []*executor.Response {
	out := make([]*executor.Response, len(reqs))
	done := make(chan int, len(reqs))
	for i, req := range reqs {
		i, req := i, req
		go func() {
			out[i] = runRequest(ctx, d.Executor, req)
			done <- i
		}()
	}
	for range reqs {
		<-done
	}
	return out
}
