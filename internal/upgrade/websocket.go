// Package upgrade implements the WebSocket and SSE upgrade paths, both
// reusing the Handshake Driver's fingerprinted dial. WebSocket
// framing is grounded on github.com/gorilla/websocket (a direct
// dependency of grimm-is-flywall and youfak-sub2api); SSE parsing is
// grounded on enetx/surf's pkg/sse/sse.go, adapted from its single-Reader
// callback shape to a per-handle pull loop fed across the dispatcher
// boundary.
package upgrade

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Goga74/fpengine/internal/fingerprint"
	"github.com/Goga74/fpengine/internal/handshake"
)

// Opcode mirrors the RFC 6455 frame types carried across the boundary.
type Opcode int

const (
	OpcodeText Opcode = iota
	OpcodeBinary
	OpcodePing
	OpcodePong
	OpcodeClose
)

// WSConn is an open WebSocket connection, referenced by an opaque handle
// at the dispatcher layer and cleaned up on explicit close.
type WSConn struct {
	conn *websocket.Conn
}

// DialWebSocket performs the fingerprinted TLS dial then the RFC 6455
// Upgrade, handing the resulting connection to gorilla/websocket's frame
// codec. On success the connection leaves the HTTP pool entirely (it is
// never returned to the Connection Pool).
func DialWebSocket(ctx context.Context, rawURL string, spec *fingerprint.TransportSpec, opt handshake.Options, headers http.Header) (*WSConn, *http.Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, nil, fmt.Errorf("upgrade: invalid websocket URL %q: %w", rawURL, err)
	}

	scheme := "wss"
	if u.Scheme == "ws" || u.Scheme == "http" {
		scheme = "ws"
	}

	addr := u.Host
	if addr == "" {
		return nil, nil, fmt.Errorf("upgrade: missing host in %q", rawURL)
	}

	dialer := &websocket.Dialer{
		HandshakeTimeout: 15 * time.Second,
	}

	if scheme == "wss" {
		result, err := handshake.Dial(ctx, hostPort(addr, "443"), spec, opt)
		if err != nil {
			return nil, nil, err
		}
		dialer.NetDialTLSContext = func(ctx context.Context, network, a string) (net.Conn, error) {
			return result.Conn, nil
		}
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: opt.InsecureSkipVerify}
	}

	wsURL := *u
	wsURL.Scheme = scheme
	conn, resp, err := dialer.DialContext(ctx, wsURL.String(), headers)
	if err != nil {
		return nil, resp, fmt.Errorf("upgrade: websocket dial: %w", err)
	}
	return &WSConn{conn: conn}, resp, nil
}

func hostPort(host, defaultPort string) string {
	for i := len(host) - 1; i >= 0; i-- {
		if host[i] == ':' {
			return host
		}
	}
	return host + ":" + defaultPort
}

// Send writes one message of the given opcode.
func (c *WSConn) Send(opcode Opcode, payload []byte) error {
	return c.conn.WriteMessage(opcodeToGorilla(opcode), payload)
}

// Receive reads the next message, returning its opcode and payload.
func (c *WSConn) Receive() (Opcode, []byte, error) {
	mt, data, err := c.conn.ReadMessage()
	if err != nil {
		return 0, nil, err
	}
	return gorillaToOpcode(mt), data, nil
}

// Close sends a close frame and releases the underlying connection.
func (c *WSConn) Close() error {
	_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return c.conn.Close()
}

func opcodeToGorilla(op Opcode) int {
	switch op {
	case OpcodeBinary:
		return websocket.BinaryMessage
	case OpcodePing:
		return websocket.PingMessage
	case OpcodePong:
		return websocket.PongMessage
	case OpcodeClose:
		return websocket.CloseMessage
	default:
		return websocket.TextMessage
	}
}

func gorillaToOpcode(mt int) Opcode {
	switch mt {
	case websocket.BinaryMessage:
		return OpcodeBinary
	case websocket.PingMessage:
		return OpcodePing
	case websocket.PongMessage:
		return OpcodePong
	case websocket.CloseMessage:
		return OpcodeClose
	default:
		return OpcodeText
	}
}
