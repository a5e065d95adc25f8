package executor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	utls "github.com/refraction-networking/utls"

	"github.com/Goga74/fpengine/internal/fingerprint"
	"github.com/Goga74/fpengine/internal/h2shape"
	"github.com/Goga74/fpengine/internal/handshake"
	"github.com/Goga74/fpengine/internal/pool"
)

const maxRedirects = 10

// Executor ties the fingerprint resolver, handshake driver, HTTP/2
// shaper, and connection pool together into the per-request pipeline:
// resolve the fingerprint, acquire a pooled or fresh connection, shape
// and send the request, read the response, follow redirects, and
// release the connection back to the pool.
type Executor struct {
	Registry *fingerprint.Registry
	Pool     *pool.Pool
	KeyMu    *handshake.KeyMutex
}

// New returns an Executor sharing reg and p; if either is nil, package
// defaults are used (fingerprint.Default, a fresh pool.Pool).
func New(reg *fingerprint.Registry, p *pool.Pool) *Executor {
	if reg == nil {
		reg = fingerprint.Default
	}
	if p == nil {
		p = pool.New()
	}
	return &Executor{Registry: reg, Pool: p, KeyMu: handshake.NewKeyMutex()}
}

// Do executes req end to end: resolve, acquire, compose, send, read,
// follow redirects, release.
func (ex *Executor) Do(ctx context.Context, req *Request) *Response {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	currentURL := req.URL
	var cookies []Cookie
	cookies = append(cookies, req.Cookies...)

	for hop := 0; ; hop++ {
		resp, redirectURL, err := ex.doOnce(ctx, req, currentURL, cookies)
		if err != nil {
			return &Response{RequestID: req.RequestID, Status: 0, Body: []byte(err.Error()), Err: err}
		}
		cookies = mergeCookies(cookies, resp.Cookies)

		if req.DisableRedirect || redirectURL == "" || hop >= maxRedirects {
			resp.FinalURL = currentURL
			resp.Cookies = cookies
			return resp
		}
		log.Printf("[executor] %s: redirect hop %d -> %s", req.RequestID, hop+1, redirectURL)
		currentURL = redirectURL
	}
}

func mergeCookies(existing, fresh []Cookie) []Cookie {
	if len(fresh) == 0 {
		return existing
	}
	byName := make(map[string]int, len(existing))
	for i, c := range existing {
		byName[c.Name] = i
	}
	out := append([]Cookie(nil), existing...)
	for _, c := range fresh {
		if i, ok := byName[c.Name]; ok {
			out[i] = c
			continue
		}
		byName[c.Name] = len(out)
		out = append(out, c)
	}
	return out
}

func (ex *Executor) doOnce(ctx context.Context, req *Request, rawURL string, cookies []Cookie) (resp *Response, redirectURL string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("executor: invalid URL %q: %w", rawURL, err)
	}

	spec, err := fingerprint.Resolve(ex.Registry, fingerprint.ResolveInput{
		ProfileName:      req.ProfileName,
		JA3:              req.JA3,
		JA4R:             req.JA4R,
		HTTP2Fingerprint: req.HTTP2Fingerprint,
		QUICFingerprint:  req.QUICFingerprint,
		DisableGREASE:    req.DisableGREASE,
	})
	if err != nil {
		return nil, "", err
	}
	if req.ForceHTTP1 {
		spec.HTTP2 = nil
	}

	addr := u.Host
	if !strings.Contains(addr, ":") {
		if u.Scheme == "http" {
			addr += ":80"
		} else {
			addr += ":443"
		}
	}

	proxyURL, err := handshake.ParseProxyURL(req.Proxy)
	if err != nil {
		return nil, "", err
	}
	sni := req.ServerName
	if sni == "" {
		sni = u.Hostname()
	}

	key := BuildKey(u.Scheme, addr, spec, req.Proxy, sni)
	unlock := ex.KeyMu.Lock(string(key))

	lease, err := ex.Pool.Acquire(key, addr, req.EnableConnectionReuse, func() (pool.Transport, bool, error) {
		result, derr := handshake.Dial(ctx, addr, spec, handshake.Options{
			ServerName:         sni,
			Proxy:              proxyURL,
			InsecureSkipVerify: req.InsecureSkipVerify,
			TLS13AutoRetry:     req.TLS13AutoRetry,
			OriginalJA3:        req.JA3,
		})
		if derr != nil {
			return nil, false, derr
		}
		if result.NegotiatedProto == "h2" {
			h2conn, herr := h2shape.Open(result.Conn, spec.HTTP2)
			if herr != nil {
				result.Conn.Close()
				return nil, false, herr
			}
			return h2conn, true, nil
		}
		return uconnTransport{result.Conn}, false, nil
	})
	unlock()
	if err != nil {
		return nil, "", err
	}

	httpReq, err := buildHTTPRequest(ctx, req, u, cookies)
	if err != nil {
		ex.Pool.Release(lease, pool.OutcomeBroken)
		return nil, "", err
	}

	var httpResp *http.Response
	switch t := lease.Transport.(type) {
	case *h2shape.Conn:
		httpResp, err = t.RoundTrip(httpReq, HeaderNames(req))
	case uconnTransport:
		httpResp, err = roundTripH1(t.conn, httpReq)
	default:
		err = fmt.Errorf("executor: unknown transport type %T", t)
	}
	if err != nil {
		ex.Pool.Release(lease, pool.OutcomeBroken)
		return nil, "", err
	}

	body, readErr := io.ReadAll(httpResp.Body)
	httpResp.Body.Close()
	if readErr != nil {
		ex.Pool.Release(lease, pool.OutcomeBroken)
		return nil, "", fmt.Errorf("executor: read body: %w", readErr)
	}
	ex.Pool.Release(lease, pool.OutcomeIdle)

	if enc := httpResp.Header.Get("Content-Encoding"); enc != "" {
		if decoded, ok := decompressBody(strings.TrimSpace(enc), body); ok {
			body = decoded
			httpResp.Header.Del("Content-Encoding")
		}
	}

	respCookies := parseSetCookies(httpResp.Header["Set-Cookie"])

	out := &Response{
		RequestID: req.RequestID,
		Status:    httpResp.StatusCode,
		Body:      body,
		Headers:   map[string][]string(httpResp.Header),
		Cookies:   respCookies,
	}

	if httpResp.StatusCode >= 300 && httpResp.StatusCode < 400 {
		if loc := httpResp.Header.Get("Location"); loc != "" {
			if resolved, rerr := u.Parse(loc); rerr == nil {
				redirectURL = resolved.String()
			}
		}
	}

	return out, redirectURL, nil
}

// uconnTransport adapts *utls.UConn to pool.Transport.
type uconnTransport struct{ conn *utls.UConn }

func (t uconnTransport) Close() error { return t.conn.Close() }

// roundTripH1 sends httpReq over an already-handshaken connection,
// grounded on utls_client.go's roundTripH1 (a single-use http.Transport
// whose DialTLSContext hands back the pre-established conn).
func roundTripH1(conn net.Conn, req *http.Request) (*http.Response, error) {
	t := &http.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return conn, nil
		},
		DisableKeepAlives:     false,
		MaxIdleConns:          1,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return t.RoundTrip(req)
}

func buildHTTPRequest(ctx context.Context, req *Request, u *url.URL, cookies []Cookie) (*http.Request, error) {
	body := req.effectiveBody()
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.NormalizedMethod(), u.String(), bodyReader)
	if err != nil {
		return nil, err
	}

	ordered := orderHeaders(req.Headers, req.HeaderOrder, req.OrderHeadersAsProvided)
	for _, f := range ordered {
		httpReq.Header.Add(f.Name, f.Value)
	}
	if req.UserAgent != "" && httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", req.UserAgent)
	}

	for _, c := range cookies {
		httpReq.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
	}

	return httpReq, nil
}
