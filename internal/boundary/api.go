package boundary

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/Goga74/fpengine/internal/dispatcher"
	"github.com/Goga74/fpengine/internal/executor"
	"github.com/Goga74/fpengine/internal/fingerprint"
	"github.com/Goga74/fpengine/internal/handshake"
	"github.com/Goga74/fpengine/internal/upgrade"
)

// Engine wires a Dispatcher (and the Executor it shares) to the exported
// ABI function set. Host bindings (cgo, a gRPC shim, a Python extension
// module, whatever the embedding language needs) call through these
// methods with MessagePack payloads and plain handles; Engine itself
// never assumes a specific host runtime.
type Engine struct {
	Dispatcher *dispatcher.Dispatcher
}

// NewEngine wraps d.
func NewEngine(d *dispatcher.Dispatcher) *Engine {
	return &Engine{Dispatcher: d}
}

// SyncRequest implements sync_request(payload) -> payload.
func (e *Engine) SyncRequest(ctx context.Context, payload []byte) ([]byte, error) {
	req, err := DecodeRequest(payload)
	if err != nil {
		return nil, fmt.Errorf("boundary: decode request: %w", err)
	}
	resp := e.Dispatcher.Sync(ctx, req)
	return EncodeResponse(resp)
}

// SubmitAsync implements submit_async(payload) -> handle.
func (e *Engine) SubmitAsync(ctx context.Context, payload []byte) (dispatcher.Handle, error) {
	req, err := DecodeRequest(payload)
	if err != nil {
		return 0, fmt.Errorf("boundary: decode request: %w", err)
	}
	return e.Dispatcher.SubmitAsync(ctx, req), nil
}

// PollAsync implements poll_async(handle) -> payload|null. A nil slice
// with ready=false means "still pending".
func (e *Engine) PollAsync(h dispatcher.Handle) (payload []byte, ready bool, err error) {
	resp, ready := e.Dispatcher.PollAsync(h)
	if !ready {
		return nil, false, nil
	}
	out, err := EncodeResponse(resp)
	return out, true, err
}

// SubmitWithNotify implements submit_with_notify(payload, fd) -> handle.
func (e *Engine) SubmitWithNotify(ctx context.Context, payload []byte, notifyFD int) (dispatcher.Handle, error) {
	req, err := DecodeRequest(payload)
	if err != nil {
		return 0, fmt.Errorf("boundary: decode request: %w", err)
	}
	return e.Dispatcher.SubmitWithNotify(ctx, req, notifyFD), nil
}

// TakeAsyncResult implements take_async_result(handle) -> payload.
func (e *Engine) TakeAsyncResult(h dispatcher.Handle) ([]byte, error) {
	resp, ok := e.Dispatcher.TakeAsyncResult(h)
	if !ok {
		return nil, fmt.Errorf("boundary: handle %d not ready or unknown", h)
	}
	return EncodeResponse(resp)
}

// BatchRequest implements batch_request(payload) -> payload. The wire
// payload is a MessagePack array of WireRequest; the result is a
// MessagePack array of WireResponse in declaration order.
func (e *Engine) BatchRequest(ctx context.Context, payload []byte) ([]byte, error) {
	var wireReqs []WireRequest
	if err := msgpack.Unmarshal(payload, &wireReqs); err != nil {
		return nil, fmt.Errorf("boundary: decode batch: %w", err)
	}
	reqs := make([]*executor.Request, len(wireReqs))
	for i := range wireReqs {
		reqs[i] = wireReqs[i].toExecutorRequest()
	}

	resps := e.Dispatcher.Batch(ctx, reqs)

	wireResps := make([]WireResponse, len(resps))
	for i, resp := range resps {
		encoded, err := EncodeResponse(resp)
		if err != nil {
			return nil, fmt.Errorf("boundary: encode batch element %d: %w", i, err)
		}
		var wr WireResponse
		if err := msgpack.Unmarshal(encoded, &wr); err != nil {
			return nil, err
		}
		wireResps[i] = wr
	}
	return msgpack.Marshal(wireResps)
}

// WSConnect implements ws_connect(opts) -> handle. opts is a WireRequest
// whose URL/Headers/fingerprint fields configure the dial.
func (e *Engine) WSConnect(ctx context.Context, payload []byte) (dispatcher.Handle, error) {
	req, err := DecodeRequest(payload)
	if err != nil {
		return 0, fmt.Errorf("boundary: decode ws_connect opts: %w", err)
	}
	spec, opt, err := resolveUpgradeSpec(e.Dispatcher.Executor.Registry, req)
	if err != nil {
		return 0, err
	}
	conn, _, err := upgrade.DialWebSocket(ctx, req.URL, spec, opt, headersToHTTP(req))
	if err != nil {
		return 0, err
	}
	return e.Dispatcher.Handles.Put(conn), nil
}

// WSSend implements ws_send(handle, opcode, payload) -> status.
func (e *Engine) WSSend(h dispatcher.Handle, opcode upgrade.Opcode, payload []byte) error {
	conn, ok := wsHandle(e, h)
	if !ok {
		return fmt.Errorf("boundary: unknown websocket handle %d", h)
	}
	return conn.Send(opcode, payload)
}

// WireMessage is one WebSocket frame at the boundary.
type WireMessage struct {
	Opcode  upgrade.Opcode `msgpack:"opcode"`
	Payload []byte         `msgpack:"payload"`
}

// WSReceive implements ws_receive(handle) -> payload.
func (e *Engine) WSReceive(h dispatcher.Handle) ([]byte, error) {
	conn, ok := wsHandle(e, h)
	if !ok {
		return nil, fmt.Errorf("boundary: unknown websocket handle %d", h)
	}
	opcode, data, err := conn.Receive()
	if err != nil {
		return nil, err
	}
	return msgpack.Marshal(WireMessage{Opcode: opcode, Payload: data})
}

// WSClose implements ws_close(handle).
func (e *Engine) WSClose(h dispatcher.Handle) error {
	conn, ok := wsHandle(e, h)
	if !ok {
		return nil
	}
	defer e.Dispatcher.Handles.Free(h)
	return conn.Close()
}

func wsHandle(e *Engine, h dispatcher.Handle) (*upgrade.WSConn, bool) {
	v, ok := e.Dispatcher.Handles.Get(h)
	if !ok {
		return nil, false
	}
	conn, ok := v.(*upgrade.WSConn)
	return conn, ok
}

// WireEvent is one SSE event at the boundary.
type WireEvent struct {
	ID    string `msgpack:"id,omitempty"`
	Event string `msgpack:"event,omitempty"`
	Data  string `msgpack:"data,omitempty"`
	Retry int    `msgpack:"retry,omitempty"`
}

// SSEConnect implements sse_connect(opts) -> handle.
func (e *Engine) SSEConnect(ctx context.Context, payload []byte) (dispatcher.Handle, error) {
	req, err := DecodeRequest(payload)
	if err != nil {
		return 0, fmt.Errorf("boundary: decode sse_connect opts: %w", err)
	}
	headers := make(map[string][]string, len(req.Headers))
	for _, f := range req.Headers {
		headers[f.Name] = append(headers[f.Name], f.Value)
	}
	stream, err := upgrade.DialSSE(ctx, e.Dispatcher.Executor, req.URL, req, headers)
	if err != nil {
		return 0, err
	}
	return e.Dispatcher.Handles.Put(stream), nil
}

// SSENextEvent implements sse_next_event(handle) -> payload.
func (e *Engine) SSENextEvent(h dispatcher.Handle) ([]byte, error) {
	v, ok := e.Dispatcher.Handles.Get(h)
	if !ok {
		return nil, fmt.Errorf("boundary: unknown sse handle %d", h)
	}
	stream, ok := v.(*upgrade.SSEStream)
	if !ok {
		return nil, fmt.Errorf("boundary: handle %d is not an sse stream", h)
	}
	event, err := stream.NextEvent()
	if err != nil {
		return nil, err
	}
	return msgpack.Marshal(WireEvent{ID: event.ID, Event: event.Event, Data: event.Data, Retry: event.Retry})
}

// SSEClose implements sse_close(handle).
func (e *Engine) SSEClose(h dispatcher.Handle) error {
	v, ok := e.Dispatcher.Handles.Get(h)
	if !ok {
		return nil
	}
	defer e.Dispatcher.Handles.Free(h)
	stream, ok := v.(*upgrade.SSEStream)
	if !ok {
		return fmt.Errorf("boundary: handle %d is not an sse stream", h)
	}
	return stream.Close()
}

// FreePayload implements free_payload(ptr). The Go implementation holds
// no host-visible pointer to release — payloads are ordinary Go byte
// slices collected by the GC — so this exists only to satisfy the ABI
// contract for host bindings that do manage their own buffers.
func (e *Engine) FreePayload([]byte) {}

// resolveUpgradeSpec mirrors executor.doOnce's fingerprint resolution
// step for the WebSocket path, which bypasses the Executor/Pool entirely
// once dialed and so needs its own call into the resolver and the
// Handshake Driver's Options shape.
func resolveUpgradeSpec(reg *fingerprint.Registry, req *executor.Request) (*fingerprint.TransportSpec, handshake.Options, error) {
	spec, err := fingerprint.Resolve(reg, fingerprint.ResolveInput{
		ProfileName:      req.ProfileName,
		JA3:              req.JA3,
		JA4R:             req.JA4R,
		HTTP2Fingerprint: req.HTTP2Fingerprint,
		QUICFingerprint:  req.QUICFingerprint,
		DisableGREASE:    req.DisableGREASE,
	})
	if err != nil {
		return nil, handshake.Options{}, err
	}

	var proxyURL *url.URL
	if req.Proxy != "" {
		proxyURL, err = handshake.ParseProxyURL(req.Proxy)
		if err != nil {
			return nil, handshake.Options{}, err
		}
	}

	return spec, handshake.Options{
		ServerName:         req.ServerName,
		Proxy:              proxyURL,
		InsecureSkipVerify: req.InsecureSkipVerify,
		TLS13AutoRetry:     req.TLS13AutoRetry,
		OriginalJA3:        req.JA3,
	}, nil
}

func headersToHTTP(req *executor.Request) http.Header {
	h := make(http.Header, len(req.Headers))
	for _, f := range req.Headers {
		h.Add(f.Name, f.Value)
	}
	if req.UserAgent != "" && h.Get("User-Agent") == "" {
		h.Set("User-Agent", req.UserAgent)
	}
	return h
}
