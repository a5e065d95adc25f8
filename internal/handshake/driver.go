// Package handshake drives the fingerprinted TLS dial: primary attempt,
// TLS 1.3 auto-retry, and TLS 1.2 JA3 fallback. Grounded on a
// fixed-fingerprint dialer's dialUTLS function, generalized from a fixed
// utls.ClientHelloID to an arbitrary synthesized utls.ClientHelloSpec via
// utls.HelloCustom + ApplyPreset.
package handshake

import (
	"context"
	"log"
	"net"
	"net/url"
	"time"

	utls "github.com/refraction-networking/utls"

	"github.com/Goga74/fpengine/internal/fingerprint"
	"github.com/Goga74/fpengine/internal/tlsspec"
)

// Options configures a single Dial call.
type Options struct {
	ServerName         string
	Proxy              *url.URL
	InsecureSkipVerify bool
	TLS13AutoRetry     bool
	DialTimeout        time.Duration
	HandshakeTimeout   time.Duration

	// OriginalJA3 is carried for the step-3 fallback even when the
	// effective spec came from a JA4R overlay.
	OriginalJA3 string
}

// Result is a completed, handshaken connection plus the spec that was
// actually negotiated (which may differ from the request's spec after a
// retry/fallback).
type Result struct {
	Conn              *utls.UConn
	NegotiatedProto   string
	EffectiveSpec     *fingerprint.TransportSpec
	AttemptedVersions []uint16
}

var defaultDialer = &net.Dialer{Timeout: 15 * time.Second, KeepAlive: 30 * time.Second}

// Dial performs the addr connection (direct or proxied), the TLS
// handshake with spec synthesized into a ClientHello, and the
// auto-retry/fallback chain. A per-key KeyMutex lock must be held by the
// caller around Dial when
// dialing under an existing ConnectionKey that might be concurrently
// redialed (the Request Executor holds it around Pool.Acquire, which
// dials).
func Dial(ctx context.Context, addr string, spec *fingerprint.TransportSpec, opt Options) (*Result, error) {
	dialTimeout := opt.DialTimeout
	if dialTimeout == 0 {
		dialTimeout = 15 * time.Second
	}
	hsTimeout := opt.HandshakeTimeout
	if hsTimeout == 0 {
		hsTimeout = 10 * time.Second
	}
	dialer := &net.Dialer{Timeout: dialTimeout, KeepAlive: 30 * time.Second}

	attempted := []uint16{spec.TLSVersMax}

	conn, proto, err := attempt(ctx, dialer, addr, spec, opt, hsTimeout)
	if err == nil {
		return &Result{Conn: conn, NegotiatedProto: proto, EffectiveSpec: spec, AttemptedVersions: attempted}, nil
	}

	if opt.TLS13AutoRetry && spec.TLSVersMax >= utls.VersionTLS13 && isCurveIncompatible(err) {
		log.Printf("[handshake] %s: TLS 1.3 curve rejected, retrying with compatible supported_groups", addr)
		retrySpec := withTLS13CompatibleGroups(spec)
		attempted = append(attempted, retrySpec.TLSVersMax)
		conn, proto, rerr := attempt(ctx, dialer, addr, retrySpec, opt, hsTimeout)
		if rerr == nil {
			return &Result{Conn: conn, NegotiatedProto: proto, EffectiveSpec: retrySpec, AttemptedVersions: attempted}, nil
		}
		err = rerr
	}

	if spec.TLSVersMax >= utls.VersionTLS13 && isTLS13Refusal(err) && opt.OriginalJA3 != "" {
		log.Printf("[handshake] %s: TLS 1.3/h2 refused, falling back to TLS 1.2 JA3 spec", addr)
		fallbackSpec, ferr := tls12FallbackSpec(opt.OriginalJA3)
		if ferr == nil && fallbackSpec != nil {
			attempted = append(attempted, fallbackSpec.TLSVersMax)
			conn, proto, rerr := attempt(ctx, dialer, addr, fallbackSpec, opt, hsTimeout)
			if rerr == nil {
				return &Result{Conn: conn, NegotiatedProto: proto, EffectiveSpec: fallbackSpec, AttemptedVersions: attempted}, nil
			}
			err = rerr
		}
	}

	return nil, &TLSError{Cause: err, AttemptedVersions: attempted}
}

func attempt(ctx context.Context, dialer *net.Dialer, addr string, spec *fingerprint.TransportSpec, opt Options, hsTimeout time.Duration) (*utls.UConn, string, error) {
	rawConn, err := dialProxied(ctx, dialer, opt.Proxy, addr)
	if err != nil {
		return nil, "", err
	}

	hello, err := tlsspec.Synthesize(spec)
	if err != nil {
		rawConn.Close()
		return nil, "", err
	}

	host := opt.ServerName
	if host == "" {
		host, _, _ = net.SplitHostPort(addr)
	}

	uConn := utls.UClient(rawConn, &utls.Config{
		ServerName:         host,
		InsecureSkipVerify: opt.InsecureSkipVerify,
	}, utls.HelloCustom)

	if err := uConn.ApplyPreset(hello); err != nil {
		rawConn.Close()
		return nil, "", err
	}

	deadline := time.Now().Add(hsTimeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	uConn.SetDeadline(deadline)

	if err := uConn.HandshakeContext(ctx); err != nil {
		rawConn.Close()
		return nil, "", err
	}
	uConn.SetDeadline(time.Time{})

	proto := uConn.ConnectionState().NegotiatedProtocol
	log.Printf("[handshake] %s -> protocol %q, tls 0x%04x", addr, proto, spec.TLSVersMax)
	return uConn, proto, nil
}
