package executor

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/Goga74/fpengine/internal/fingerprint"
	"github.com/Goga74/fpengine/internal/pool"
)

// BuildKey collapses scheme/host:port/TLS-version/fingerprint-hash/
// HTTP2-shape-hash/proxy/SNI into a single comparable pool.Key.
func BuildKey(scheme, addr string, spec *fingerprint.TransportSpec, proxy, sni string) pool.Key {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%04x-%04x|%v|%v|%v|%v|%v|%v|%v|%s|%s", scheme, addr, spec.TLSVersMin, spec.TLSVersMax,
		spec.CipherSuites, spec.Extensions, spec.Groups, spec.SigAlgs, spec.ALPN, spec.KeyShares, spec.DisableGREASE, proxy, sni)
	if spec.HTTP2 != nil {
		fmt.Fprintf(h, "|h2:%+v", *spec.HTTP2)
	}
	sum := h.Sum(nil)
	return pool.Key(scheme + "://" + addr + "#" + hex.EncodeToString(sum[:8]))
}
