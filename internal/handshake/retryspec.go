package handshake

import "github.com/Goga74/fpengine/internal/fingerprint"

// tls13CompatibleGroups is the curve set the TLS 1.3 auto-retry rewrites
// supported_groups to.
var tls13CompatibleGroups = []uint16{
	0x001D, // X25519
	0x0017, // secp256r1 (P-256)
	0x0018, // secp384r1 (P-384)
	0x0019, // secp521r1 (P-521)
}

// withTLS13CompatibleGroups returns a clone of spec whose supported_groups
// extension content (and Groups field) is rewritten to the TLS-1.3-safe
// curve set, preserving cipher order and extension order exactly.
func withTLS13CompatibleGroups(spec *fingerprint.TransportSpec) *fingerprint.TransportSpec {
	out := spec.Clone()
	out.Groups = append([]uint16(nil), tls13CompatibleGroups...)
	out.KeyShares = append([]uint16(nil), tls13CompatibleGroups...)
	return out
}

// tls12FallbackSpec reconstructs a TLS 1.2 spec from the request's
// original JA3 string, for the JA3 fallback retry. Returns nil if no
// JA3 was attached to the request.
func tls12FallbackSpec(ja3 string) (*fingerprint.TransportSpec, error) {
	if ja3 == "" {
		return nil, nil
	}
	spec, err := fingerprint.ParseJA3(ja3)
	if err != nil {
		return nil, err
	}
	spec.TLSVersMin = 0x0303
	spec.TLSVersMax = 0x0303
	return spec, nil
}
