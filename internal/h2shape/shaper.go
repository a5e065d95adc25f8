// Package h2shape implements the HTTP/2 fingerprint: a byte-exact
// SETTINGS frame, optional connection WINDOW_UPDATE, ordered
// pseudo-headers, and optional stream priority. golang.org/x/net/http2's
// Transport/ClientConn negotiate SETTINGS themselves and cannot be told
// to omit unmentioned entries, so the Shaper drives golang.org/x/net/http2's
// Framer and hpack.Encoder directly over the handshaken connection —
// the same frame-level approach a patched x/net/http2 fork (one
// accepting custom Settings/WindowSizeIncrement/PriorityParams) takes,
// reimplemented here as an unforked client built only on the package's
// public surface.
package h2shape

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/hpack"

	"github.com/Goga74/fpengine/internal/fingerprint"
)

const clientPreface = "PRI * HTTP/2.0\r\n\r\nSM\r\n\r\n"

// Conn is a single fingerprint-shaped HTTP/2 client connection. A
// background read loop demuxes incoming frames by stream ID onto
// per-RoundTrip channels, so concurrent callers can multiplex several
// in-flight requests over the same connection the way the Connection
// Pool expects of an HTTP/2 entry; writeMu serializes stream-ID
// allocation and frame emission so HEADERS frames still reach the wire
// in ascending stream-ID order as HTTP/2 requires.
type Conn struct {
	nc net.Conn
	fr *http2.Framer
	bw *bufio.Writer

	henc *hpack.Encoder
	hbuf bytes.Buffer

	writeMu      sync.Mutex
	nextStreamID uint32

	mu       sync.Mutex
	closed   bool
	closeErr error
	streams  map[uint32]chan frameResult
	shaped   *fingerprint.HTTP2Shape
}

// frameResult is one demuxed, self-contained response event (or terminal
// error) delivered to a RoundTrip call's stream channel by readLoop.
// readLoop extracts every field it needs out of the http2.Frame before
// queuing, rather than passing the Frame itself: the Framer reuses its
// read buffer on the next ReadFrame call, so a DataFrame's payload in
// particular must be copied out before readLoop moves on, not read
// later by a consumer that may still be behind.
type frameResult struct {
	err error

	isHeaders    bool
	headerFields []hpack.HeaderField
	headersEnd   bool

	isData  bool
	data    []byte
	dataEnd bool

	isReset   bool
	resetCode http2.ErrCode
}

// Open writes the preface, the fingerprint-ordered SETTINGS frame, and
// (if declared) the connection WINDOW_UPDATE, exactly once per connection
// lifetime.
func Open(nc net.Conn, shape *fingerprint.HTTP2Shape) (*Conn, error) {
	bw := bufio.NewWriter(nc)
	fr := http2.NewFramer(bw, bufio.NewReader(nc))
	fr.ReadMetaHeaders = hpack.NewDecoder(4096, nil)

	var hbuf bytes.Buffer
	c := &Conn{
		nc:           nc,
		fr:           fr,
		bw:           bw,
		henc:         hpack.NewEncoder(&hbuf),
		hbuf:         hbuf,
		nextStreamID: 1,
		streams:      make(map[uint32]chan frameResult),
		shaped:       shape,
	}

	if _, err := bw.WriteString(clientPreface); err != nil {
		return nil, fmt.Errorf("h2shape: write preface: %w", err)
	}

	settings := make([]http2.Setting, 0, 8)
	if shape != nil {
		for _, s := range shape.Settings {
			settings = append(settings, http2.Setting{ID: http2.SettingID(s.ID), Val: s.Val})
		}
	}
	if err := fr.WriteSettings(settings...); err != nil {
		return nil, fmt.Errorf("h2shape: write settings: %w", err)
	}

	if shape != nil && shape.WindowUpdate > 0 {
		if err := fr.WriteWindowUpdate(0, shape.WindowUpdate); err != nil {
			return nil, fmt.Errorf("h2shape: write window_update: %w", err)
		}
	}

	if err := bw.Flush(); err != nil {
		return nil, fmt.Errorf("h2shape: flush preface/settings: %w", err)
	}

	if err := c.awaitSettingsAck(); err != nil {
		return nil, err
	}

	go c.readLoop()

	return c, nil
}

// readLoop is the connection's single reader: it owns c.fr.ReadFrame and
// fans frames out to whichever RoundTrip call registered the matching
// stream ID, so multiple requests can be in flight at once. A read error
// or GOAWAY ends the connection for every active and future stream.
func (c *Conn) readLoop() {
	for {
		f, err := c.fr.ReadFrame()
		if err != nil {
			c.breakConn(fmt.Errorf("h2shape: read loop: %w", err))
			return
		}
		if ga, ok := f.(*http2.GoAwayFrame); ok {
			c.breakConn(fmt.Errorf("h2shape: connection GOAWAY: %s", ga.ErrCode))
			return
		}
		sid := f.Header().StreamID
		if sid == 0 {
			// Connection-level frame (SETTINGS, PING, WINDOW_UPDATE):
			// nothing to dispatch for a client that never renegotiates
			// settings after the initial handshake.
			continue
		}
		c.mu.Lock()
		ch, ok := c.streams[sid]
		c.mu.Unlock()
		if !ok {
			// Stale or unknown stream (e.g. its RoundTrip already
			// returned); drop the frame.
			continue
		}

		var res frameResult
		switch fr := f.(type) {
		case *http2.MetaHeadersFrame:
			res.isHeaders = true
			res.headerFields = append([]hpack.HeaderField(nil), fr.Fields...)
			res.headersEnd = fr.StreamEnded()
		case *http2.DataFrame:
			res.isData = true
			res.data = append([]byte(nil), fr.Data()...)
			res.dataEnd = fr.StreamEnded()
		case *http2.RSTStreamFrame:
			res.isReset = true
			res.resetCode = fr.ErrCode
		default:
			// Stream-level WINDOW_UPDATE/PING/etc.: nothing to extract.
			continue
		}

		select {
		case ch <- res:
		default:
			// Reader isn't keeping up; drop rather than block the
			// shared read loop and stall every other stream.
		}
	}
}

// breakConn marks the connection closed, remembers err, and delivers it
// to every stream currently awaiting a frame.
func (c *Conn) breakConn(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.closeErr = err
	for _, ch := range c.streams {
		select {
		case ch <- frameResult{err: err}:
		default:
		}
	}
	c.streams = make(map[uint32]chan frameResult)
}

func (c *Conn) removeStream(id uint32) {
	c.mu.Lock()
	delete(c.streams, id)
	c.mu.Unlock()
}

// awaitSettingsAck reads frames until the server's own (non-ack) SETTINGS
// frame arrives, acks it, and returns. A SETTINGS ack for the client's
// frame is skipped if it arrives first but is not waited for; anything
// else that arrives first is discarded (a well-behaved server sends
// SETTINGS immediately; WINDOW_UPDATE may interleave).
func (c *Conn) awaitSettingsAck() error {
	sawServerSettings := false
	for !sawServerSettings {
		f, err := c.fr.ReadFrame()
		if err != nil {
			return fmt.Errorf("h2shape: awaiting server settings: %w", err)
		}
		switch sf := f.(type) {
		case *http2.SettingsFrame:
			if sf.IsAck() {
				continue
			}
			sawServerSettings = true
			if err := c.fr.WriteSettingsAck(); err != nil {
				return fmt.Errorf("h2shape: write settings ack: %w", err)
			}
			if err := c.bw.Flush(); err != nil {
				return fmt.Errorf("h2shape: flush settings ack: %w", err)
			}
		default:
			// WINDOW_UPDATE or similar arriving before SETTINGS; ignore.
		}
	}
	return nil
}

// RoundTrip sends req as a new stream, with pseudo-headers in the
// fingerprint-declared order and priority fields if the fingerprint
// carries them, then reads the response. headerOrder gives the exact
// emission order for req.Header's regular (non-pseudo) header names, as
// resolved by the Request Executor from HeaderOrder or the request's
// as-provided insertion order — http.Header is an unordered map, so the
// Shaper cannot recover this order on its own.
func (c *Conn) RoundTrip(req *http.Request, headerOrder []string) (*http.Response, error) {
	c.mu.Lock()
	if c.closed {
		err := c.closeErr
		c.mu.Unlock()
		if err == nil {
			err = fmt.Errorf("h2shape: connection closed")
		}
		return nil, err
	}
	c.mu.Unlock()

	c.writeMu.Lock()
	streamID := atomic.AddUint32(&c.nextStreamID, 2) - 2
	if streamID == 0 {
		streamID = 1
	}

	ch := make(chan frameResult, 64)
	c.mu.Lock()
	if c.closed {
		err := c.closeErr
		c.mu.Unlock()
		c.writeMu.Unlock()
		if err == nil {
			err = fmt.Errorf("h2shape: connection closed")
		}
		return nil, err
	}
	c.streams[streamID] = ch
	c.mu.Unlock()

	c.hbuf.Reset()
	if err := c.encodeHeaders(req, headerOrder); err != nil {
		c.writeMu.Unlock()
		c.removeStream(streamID)
		return nil, fmt.Errorf("h2shape: encode headers: %w", err)
	}
	headerBlock := append([]byte(nil), c.hbuf.Bytes()...)

	hasBody := req.Body != nil && req.Body != http.NoBody
	param := http2.HeadersFrameParam{
		StreamID:      streamID,
		BlockFragment: headerBlock,
		EndStream:     !hasBody,
		EndHeaders:    true,
	}
	if c.shaped != nil && c.shaped.HasPriority {
		param.Priority = http2.PriorityParam{
			StreamDep: c.shaped.PriorityDepend,
			Exclusive: c.shaped.PriorityExcl,
			Weight:    c.shaped.PriorityWeight,
		}
	}

	if err := c.fr.WriteHeaders(param); err != nil {
		c.writeMu.Unlock()
		c.removeStream(streamID)
		return nil, fmt.Errorf("h2shape: write headers: %w", err)
	}

	if hasBody {
		body, err := io.ReadAll(req.Body)
		if err != nil {
			c.writeMu.Unlock()
			c.removeStream(streamID)
			return nil, fmt.Errorf("h2shape: read request body: %w", err)
		}
		if err := c.fr.WriteData(streamID, true, body); err != nil {
			c.writeMu.Unlock()
			c.removeStream(streamID)
			return nil, fmt.Errorf("h2shape: write data: %w", err)
		}
	}

	if err := c.bw.Flush(); err != nil {
		c.writeMu.Unlock()
		c.removeStream(streamID)
		return nil, fmt.Errorf("h2shape: flush request: %w", err)
	}
	c.writeMu.Unlock()

	return c.readResponse(streamID, req, ch)
}

// encodeHeaders writes pseudo-headers in the fingerprint's declared
// order, then regular headers in headerOrder's order (as resolved by the
// Request Executor), then any remaining req.Header entries.
func (c *Conn) encodeHeaders(req *http.Request, headerOrder []string) error {
	order := [4]string{":method", ":authority", ":scheme", ":path"}
	if c.shaped != nil {
		order = c.shaped.PseudoOrder
	}

	authority := req.Host
	if authority == "" {
		authority = req.URL.Host
	}
	path := req.URL.Path
	if path == "" {
		path = "/"
	}
	if req.URL.RawQuery != "" {
		path += "?" + req.URL.RawQuery
	}

	values := map[string]string{
		":method":    req.Method,
		":authority": authority,
		":scheme":    schemeOf(req.URL),
		":path":      path,
	}

	for _, name := range order {
		v, ok := values[name]
		if !ok {
			continue
		}
		if err := c.henc.WriteField(hpack.HeaderField{Name: name, Value: v}); err != nil {
			return err
		}
	}

	emitted := make(map[string]bool, len(headerOrder))
	for _, name := range headerOrder {
		canonical := http.CanonicalHeaderKey(name)
		vals, ok := req.Header[canonical]
		if !ok || emitted[canonical] {
			continue
		}
		emitted[canonical] = true
		for _, v := range vals {
			if err := c.henc.WriteField(hpack.HeaderField{Name: httpLower(name), Value: v}); err != nil {
				return err
			}
		}
	}
	// Anything in req.Header not covered by headerOrder still goes out,
	// in Go's (unordered) map iteration order — this only happens for
	// headers the Executor didn't explicitly order.
	for name, vals := range req.Header {
		if emitted[name] {
			continue
		}
		lower := httpLower(name)
		for _, v := range vals {
			if err := c.henc.WriteField(hpack.HeaderField{Name: lower, Value: v}); err != nil {
				return err
			}
		}
	}
	return nil
}

func schemeOf(u *url.URL) string {
	if u.Scheme == "" {
		return "https"
	}
	return u.Scheme
}

func httpLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

func (c *Conn) readResponse(streamID uint32, req *http.Request, ch chan frameResult) (*http.Response, error) {
	defer c.removeStream(streamID)

	resp := &http.Response{
		Proto:      "HTTP/2.0",
		ProtoMajor: 2,
		ProtoMinor: 0,
		Header:     make(http.Header),
		Request:    req,
	}
	var body bytes.Buffer

	for {
		res := <-ch
		if res.err != nil {
			return nil, res.err
		}
		switch {
		case res.isHeaders:
			for _, hf := range res.headerFields {
				if hf.Name == ":status" {
					fmt.Sscanf(hf.Value, "%d", &resp.StatusCode)
					resp.Status = hf.Value
					continue
				}
				resp.Header.Add(httpCanonical(hf.Name), hf.Value)
			}
			if res.headersEnd {
				resp.Body = io.NopCloser(&body)
				return resp, nil
			}
		case res.isData:
			body.Write(res.data)
			if res.dataEnd {
				resp.Body = io.NopCloser(&body)
				return resp, nil
			}
		case res.isReset:
			return nil, fmt.Errorf("h2shape: stream %d reset: %s", streamID, res.resetCode)
		}
	}
}

func httpCanonical(name string) string {
	return http.CanonicalHeaderKey(name)
}

// Close closes the underlying connection.
func (c *Conn) Close() error {
	c.breakConn(fmt.Errorf("h2shape: connection closed"))
	return c.nc.Close()
}
