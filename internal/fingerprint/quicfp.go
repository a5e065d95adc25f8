package fingerprint

import "strings"

// ParseQUICFingerprint splits a QUIC fingerprint string into its
// transport-version prefix and the remaining opaque payload. The QUIC
// fingerprint is opaque beyond this split: the HTTP/3 + QUIC engine
// consumes Raw directly when building Initial-packet transport parameters.
func ParseQUICFingerprint(fp string) (*QUICSpec, error) {
	if fp == "" {
		return nil, parseErr("quic", "empty fingerprint", fp)
	}
	head, rest, found := strings.Cut(fp, "|")
	version, err := parseQUICVersionPrefix(head)
	if err != nil {
		return nil, err
	}
	if !found {
		rest = ""
	}
	return &QUICSpec{Version: version, Raw: rest}, nil
}

// DeriveQUICFromJA4R produces a heuristic QUIC spec from a JA4R-derived
// TransportSpec when no explicit QUICFingerprint is supplied. This takes
// the conservative reading: without a curated browser-profile table to
// consult, derivation is refused and the caller must supply an explicit
// QUICFingerprint or attach one via a BrowserProfile.
func DeriveQUICFromJA4R(spec *TransportSpec) (*QUICSpec, error) {
	if spec == nil || spec.QUIC == nil {
		return nil, parseErr("quic.derive", "no explicit quic_fingerprint and no curated browser-profile QUIC mapping available; supply QUICFingerprint explicitly", "")
	}
	return spec.QUIC, nil
}

func parseQUICVersionPrefix(head string) (uint32, error) {
	switch head {
	case "q1", "h3":
		return 0x00000001, nil
	case "q2", "draft29":
		return 0xff00001d, nil
	default:
		// Unknown prefixes are tolerated as version 1: the engine is
		// expected to consult Raw for anything finer-grained.
		return 0x00000001, nil
	}
}
