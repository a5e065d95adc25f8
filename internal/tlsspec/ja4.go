package tlsspec

import (
	"crypto/tls"
	"net"

	"github.com/exaring/ja4plus"
	utls "github.com/refraction-networking/utls"
)

// ComputeJA4 recomputes the canonical JA4 fingerprint (as a real
// JA4-classifying server would see it) for an already-synthesized
// ClientHello, by replaying its cipher/extension/ALPN/signature-algorithm
// content through a synthetic tls.ClientHelloInfo. This is a diagnostic
// cross-check distinct from VerifyJA3: the Request message only carries
// JA3/JA4R, never a bare JA4 string, so there is nothing to compare
// against automatically — callers use this to confirm a resolved spec
// presents the expected JA4 before shipping it as a profile.
func ComputeJA4(hello *utls.ClientHelloSpec, serverName string) string {
	info := &tls.ClientHelloInfo{
		CipherSuites:      hello.CipherSuites,
		ServerName:        serverName,
		SupportedVersions: []uint16{hello.TLSVersMax},
		Conn:              loopbackConnStub{},
	}
	for _, ext := range hello.Extensions {
		info.Extensions = append(info.Extensions, extensionID(ext))
		switch e := ext.(type) {
		case *utls.ALPNExtension:
			info.SupportedProtos = e.AlpnProtocols
		case *utls.SignatureAlgorithmsExtension:
			for _, a := range e.SupportedSignatureAlgorithms {
				info.SignatureSchemes = append(info.SignatureSchemes, tls.SignatureScheme(a))
			}
		}
	}
	return ja4plus.JA4(info)
}

// loopbackConnStub satisfies the net.Conn ja4plus.JA4 reads
// LocalAddr().Network() from to classify the transport as "t" (TCP);
// this engine never computes JA4 over UDP/QUIC pseudo-connections.
type loopbackConnStub struct{ net.Conn }

func (loopbackConnStub) LocalAddr() net.Addr { return tcpAddrStub{} }

type tcpAddrStub struct{}

func (tcpAddrStub) Network() string { return "tcp" }
func (tcpAddrStub) String() string  { return "stub" }
