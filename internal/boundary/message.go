// Package boundary implements the MessagePack wire schema and exported
// ABI function set, translating between the host language's byte-slice
// payloads and the engine's internal executor.Request / executor.Response
// / executor.Cookie types.
//
// Encoding uses github.com/vmihailenco/msgpack/v5 for the binary
// host-boundary payloads, rather than the JSON bodies used elsewhere
// in the control-plane REST surface.
package boundary

import (
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/Goga74/fpengine/internal/executor"
)

// WireHeader is one ordered header pair, used in place of a plain map so
// insertion order survives the MessagePack round trip.
type WireHeader struct {
	Name  string `msgpack:"name"`
	Value string `msgpack:"value"`
}

// WireCookie mirrors the boundary Cookie object.
type WireCookie struct {
	Name     string    `msgpack:"name"`
	Value    string    `msgpack:"value"`
	Domain   string    `msgpack:"domain,omitempty"`
	Path     string    `msgpack:"path,omitempty"`
	Expires  time.Time `msgpack:"expires,omitempty"`
	MaxAge   int       `msgpack:"maxAge,omitempty"`
	Secure   bool      `msgpack:"secure,omitempty"`
	HTTPOnly bool      `msgpack:"httpOnly,omitempty"`
	SameSite string    `msgpack:"sameSite,omitempty"`
}

// WireRequest is the boundary Request message.
type WireRequest struct {
	RequestID              string       `msgpack:"requestId,omitempty"`
	URL                    string       `msgpack:"url"`
	Method                 string       `msgpack:"method,omitempty"`
	Headers                []WireHeader `msgpack:"headers,omitempty"`
	HeaderOrder            []string     `msgpack:"headerOrder,omitempty"`
	OrderHeadersAsProvided bool         `msgpack:"orderHeadersAsProvided,omitempty"`
	Cookies                []WireCookie `msgpack:"cookies,omitempty"`
	Body                   string       `msgpack:"body,omitempty"`
	BodyBytes              []byte       `msgpack:"bodyBytes,omitempty"`
	JA3                    string       `msgpack:"ja3,omitempty"`
	JA4R                   string       `msgpack:"ja4r,omitempty"`
	HTTP2Fingerprint       string       `msgpack:"http2Fingerprint,omitempty"`
	QUICFingerprint        string       `msgpack:"quicFingerprint,omitempty"`
	DisableGREASE          bool         `msgpack:"disableGrease,omitempty"`
	ProfileName            string       `msgpack:"profileName,omitempty"`
	UserAgent              string       `msgpack:"userAgent,omitempty"`
	Proxy                  string       `msgpack:"proxy,omitempty"`
	Timeout                int64        `msgpack:"timeout,omitempty"` // seconds
	DisableRedirect        bool         `msgpack:"disableRedirect,omitempty"`
	EnableConnectionReuse  *bool        `msgpack:"enableConnectionReuse,omitempty"`
	InsecureSkipVerify     bool         `msgpack:"insecureSkipVerify,omitempty"`
	ServerName             string       `msgpack:"serverName,omitempty"`
	ForceHTTP1             bool         `msgpack:"forceHttp1,omitempty"`
	ForceHTTP3             bool         `msgpack:"forceHttp3,omitempty"`
	Protocol               string       `msgpack:"protocol,omitempty"`
	TLS13AutoRetry         *bool        `msgpack:"tls13AutoRetry,omitempty"`
}

// WireResponse is the boundary Response message.
type WireResponse struct {
	RequestID string       `msgpack:"requestId,omitempty"`
	Status    int          `msgpack:"status"`
	Body      string       `msgpack:"body,omitempty"`
	BodyBytes []byte       `msgpack:"bodyBytes,omitempty"`
	Headers   []WireHeader `msgpack:"headers,omitempty"`
	FinalURL  string       `msgpack:"finalUrl,omitempty"`
	Cookies   []WireCookie `msgpack:"cookies,omitempty"`
}

// DecodeRequest unmarshals a MessagePack payload into a WireRequest then
// converts it to the engine's internal Request.
func DecodeRequest(payload []byte) (*executor.Request, error) {
	var wr WireRequest
	if err := msgpack.Unmarshal(payload, &wr); err != nil {
		return nil, err
	}
	return wr.toExecutorRequest(), nil
}

func (wr *WireRequest) toExecutorRequest() *executor.Request {
	enableReuse := true
	if wr.EnableConnectionReuse != nil {
		enableReuse = *wr.EnableConnectionReuse
	}
	autoRetry := true
	if wr.TLS13AutoRetry != nil {
		autoRetry = *wr.TLS13AutoRetry
	}

	headers := make([]executor.HeaderField, 0, len(wr.Headers))
	for _, h := range wr.Headers {
		headers = append(headers, executor.HeaderField{Name: h.Name, Value: h.Value})
	}

	cookies := make([]executor.Cookie, 0, len(wr.Cookies))
	for _, c := range wr.Cookies {
		cookies = append(cookies, executor.Cookie{
			Name: c.Name, Value: c.Value, Domain: c.Domain, Path: c.Path,
			Expires: c.Expires, MaxAge: c.MaxAge, Secure: c.Secure,
			HTTPOnly: c.HTTPOnly, SameSite: c.SameSite,
		})
	}

	requestID := wr.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}

	return &executor.Request{
		RequestID:              requestID,
		URL:                    wr.URL,
		Method:                 wr.Method,
		Headers:                headers,
		HeaderOrder:            wr.HeaderOrder,
		OrderHeadersAsProvided: wr.OrderHeadersAsProvided,
		Cookies:                cookies,
		Body:                   wr.Body,
		BodyBytes:              wr.BodyBytes,
		JA3:                    wr.JA3,
		JA4R:                   wr.JA4R,
		HTTP2Fingerprint:       wr.HTTP2Fingerprint,
		QUICFingerprint:        wr.QUICFingerprint,
		DisableGREASE:          wr.DisableGREASE,
		ProfileName:            wr.ProfileName,
		UserAgent:              wr.UserAgent,
		Proxy:                  wr.Proxy,
		Timeout:                time.Duration(wr.Timeout) * time.Second,
		DisableRedirect:        wr.DisableRedirect,
		EnableConnectionReuse:  enableReuse,
		InsecureSkipVerify:     wr.InsecureSkipVerify,
		ServerName:             wr.ServerName,
		ForceHTTP1:             wr.ForceHTTP1,
		ForceHTTP3:             wr.ForceHTTP3,
		Protocol:               wr.Protocol,
		TLS13AutoRetry:         autoRetry,
	}
}

// EncodeResponse converts an engine Response to its wire form and
// marshals it to MessagePack.
func EncodeResponse(resp *executor.Response) ([]byte, error) {
	wr := WireResponse{
		RequestID: resp.RequestID,
		Status:    resp.Status,
		BodyBytes: resp.Body,
		FinalURL:  resp.FinalURL,
	}
	if resp.Err != nil && wr.Body == "" {
		wr.Body = resp.Err.Error()
	}
	for name, vals := range resp.Headers {
		for _, v := range vals {
			wr.Headers = append(wr.Headers, WireHeader{Name: name, Value: v})
		}
	}
	for _, c := range resp.Cookies {
		wr.Cookies = append(wr.Cookies, WireCookie{
			Name: c.Name, Value: c.Value, Domain: c.Domain, Path: c.Path,
			Expires: c.Expires, MaxAge: c.MaxAge, Secure: c.Secure,
			HTTPOnly: c.HTTPOnly, SameSite: c.SameSite,
		})
	}
	return msgpack.Marshal(&wr)
}
