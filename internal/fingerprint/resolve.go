package fingerprint

// ResolveInput bundles the raw fingerprint fields carried on a request,
// mirroring the subset of the boundary Request schema this package
// needs to produce a TransportSpec.
type ResolveInput struct {
	ProfileName      string
	JA3              string
	JA4R             string
	HTTP2Fingerprint string
	QUICFingerprint  string
	DisableGREASE    bool
}

// Resolve determines the effective TransportSpec for a request — the
// Request Executor's "Resolve" step: explicit JA3/JA4R overrides take
// precedence over a named profile; when both JA3 and JA4R are present,
// JA4R wins for cipher/extension ordering and signature-algorithm
// content while JA3 supplies any missing group data.
func Resolve(reg *Registry, in ResolveInput) (*TransportSpec, error) {
	ja3 := in.JA3
	ja4r := in.JA4R
	http2fp := in.HTTP2Fingerprint
	quicfp := in.QUICFingerprint

	if in.ProfileName != "" && ja3 == "" && ja4r == "" {
		if reg == nil {
			reg = Default
		}
		profile, ok := reg.Lookup(in.ProfileName)
		if !ok {
			return nil, parseErr("profile", "unknown browser profile \""+in.ProfileName+"\"", in.ProfileName)
		}
		ja3 = profile.JA3
		ja4r = profile.JA4R
		if http2fp == "" {
			http2fp = profile.HTTP2Fingerprint
		}
		if quicfp == "" {
			quicfp = profile.QUICFingerprint
		}
	}

	var base, overlay *TransportSpec
	var err error
	if ja3 != "" {
		base, err = ParseJA3(ja3)
		if err != nil {
			return nil, err
		}
	}
	if ja4r != "" {
		overlay, err = ParseJA4R(ja4r)
		if err != nil {
			return nil, err
		}
	}

	var spec *TransportSpec
	switch {
	case base != nil && overlay != nil:
		spec = mergeJA4ROverlay(base, overlay)
	case overlay != nil:
		spec = overlay
	case base != nil:
		spec = base
	default:
		return nil, parseErr("resolve", "no JA3, JA4R, or browser profile supplied", "")
	}

	spec.DisableGREASE = in.DisableGREASE

	if http2fp != "" {
		h2, err := ParseHTTP2Fingerprint(http2fp)
		if err != nil {
			return nil, err
		}
		spec.HTTP2 = h2
	}

	if quicfp != "" {
		q, err := ParseQUICFingerprint(quicfp)
		if err != nil {
			return nil, err
		}
		spec.QUIC = q
	} else if spec.QUIC != nil {
		// JA4R carrying a 'q' transport marker already attached a bare
		// QUICSpec in ParseJA4R; DeriveQUICFromJA4R is left to callers
		// that explicitly want the heuristic (h3engine) — this derivation
		// must never happen silently.
	}

	return spec, nil
}
