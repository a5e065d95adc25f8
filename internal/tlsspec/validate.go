package tlsspec

import "github.com/Goga74/fpengine/internal/fingerprint"

// IncoherentError reports a TransportSpec that parsed successfully but
// cannot be synthesized into a coherent ClientHello — e.g. a key_share
// extension present with no supported groups to draw from.
type IncoherentError struct {
	Reason string
}

func (e *IncoherentError) Error() string { return "tlsspec: incoherent spec: " + e.Reason }

func validate(spec *fingerprint.TransportSpec) error {
	if len(spec.CipherSuites) == 0 {
		return &IncoherentError{Reason: "no cipher suites"}
	}
	if spec.TLSVersMin == 0 || spec.TLSVersMax == 0 {
		return &IncoherentError{Reason: "missing TLS version bounds"}
	}
	if spec.TLSVersMin > spec.TLSVersMax {
		return &IncoherentError{Reason: "TLSVersMin exceeds TLSVersMax"}
	}
	for _, e := range spec.Extensions {
		if e.ID == extKeyShare && !e.GREASE && len(spec.Groups) == 0 && len(spec.KeyShares) == 0 {
			return &IncoherentError{Reason: "key_share extension present with no supported groups"}
		}
	}
	return nil
}
