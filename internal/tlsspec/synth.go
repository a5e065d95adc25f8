// Package tlsspec synthesizes a utls.ClientHelloSpec from a parsed
// fingerprint.TransportSpec, applying the GREASE and DisableGREASE
// policy: GREASE-flagged slots are randomized (or omitted, when
// disabled) at synthesis time rather than baked into a fixed
// ClientHelloID, so an arbitrary resolved spec can be reproduced
// byte-for-byte.
package tlsspec

import (
	"crypto/rand"
	"fmt"
	mathrand "math/rand"

	utls "github.com/refraction-networking/utls"

	"github.com/Goga74/fpengine/internal/fingerprint"
)

// Well-known TLS extension type numbers the synthesizer gives typed
// treatment to; anything else becomes a utls.GenericExtension carrying
// its declared (possibly empty) payload verbatim.
const (
	extServerName           = 0
	extStatusRequest         = 5
	extSupportedGroups       = 10
	extECPointFormats        = 11
	extSignatureAlgorithms   = 13
	extALPN                  = 16
	extSCT                   = 18
	extPadding               = 21
	extExtendedMasterSecret  = 23
	extSessionTicket         = 35
	extSupportedVersions     = 43
	extPSKKeyExchangeModes   = 45
	extKeyShare              = 51
	extRenegotiationInfo     = 0xff01
	extCompressCertificate   = 27
)

// SynthesizeError wraps a synthesis failure as a typed error so callers
// can distinguish synthesis failures from other error sources.
type SynthesizeError struct {
	Reason string
	Err    error
}

func (e *SynthesizeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("tlsspec: %s: %v", e.Reason, e.Err)
	}
	return "tlsspec: " + e.Reason
}

func (e *SynthesizeError) Unwrap() error { return e.Err }

// Synthesize builds a utls.ClientHelloSpec from spec. When spec.DisableGREASE
// is false, each GREASE-flagged slot receives a freshly chosen GREASE value
// (cipher, extension, or group) at synthesis time; when true, GREASE slots
// are omitted entirely rather than zero-filled, for byte-exact JA4R
// reproducibility.
func Synthesize(spec *fingerprint.TransportSpec) (*utls.ClientHelloSpec, error) {
	if spec == nil {
		return nil, &SynthesizeError{Reason: "nil TransportSpec"}
	}
	if err := validate(spec); err != nil {
		return nil, err
	}

	// used tracks every GREASE value already chosen for this ClientHello,
	// across ciphers, extensions, supported_groups, and key_share, so no
	// two GREASE-flagged slots in the same handshake coincidentally pick
	// the identical value.
	used := make(map[uint16]bool)

	ciphers := make([]uint16, 0, len(spec.CipherSuites))
	for _, c := range spec.CipherSuites {
		if fingerprint.IsGREASE(c) {
			if spec.DisableGREASE {
				continue
			}
			ciphers = append(ciphers, randomGREASE(used))
			continue
		}
		ciphers = append(ciphers, c)
	}

	exts, err := buildExtensions(spec, used)
	if err != nil {
		return nil, err
	}

	return &utls.ClientHelloSpec{
		CipherSuites:       ciphers,
		CompressionMethods: []byte{0}, // null compression, universal across browsers
		Extensions:         exts,
		TLSVersMin:         spec.TLSVersMin,
		TLSVersMax:         spec.TLSVersMax,
	}, nil
}

func buildExtensions(spec *fingerprint.TransportSpec, used map[uint16]bool) ([]utls.TLSExtension, error) {
	out := make([]utls.TLSExtension, 0, len(spec.Extensions))
	for _, e := range spec.Extensions {
		if e.GREASE {
			if spec.DisableGREASE {
				continue
			}
			out = append(out, &utls.UtlsGREASEExtension{Value: randomGREASE(used)})
			continue
		}
		ext, err := buildOneExtension(e, spec, used)
		if err != nil {
			return nil, err
		}
		out = append(out, ext)
	}
	return out, nil
}

func buildOneExtension(e fingerprint.ExtensionSpec, spec *fingerprint.TransportSpec, used map[uint16]bool) (utls.TLSExtension, error) {
	switch e.ID {
	case extServerName:
		// Host is filled in by the Handshake Driver via utls.Config.ServerName;
		// utls populates SNIExtension.ServerName from the connection config
		// when left empty here.
		return &utls.SNIExtension{}, nil
	case extStatusRequest:
		return &utls.StatusRequestExtension{}, nil
	case extSupportedGroups:
		curves := make([]utls.CurveID, 0, len(spec.Groups))
		for _, g := range spec.Groups {
			if fingerprint.IsGREASE(g) {
				if spec.DisableGREASE {
					continue
				}
				curves = append(curves, utls.CurveID(randomGREASE(used)))
				continue
			}
			curves = append(curves, utls.CurveID(g))
		}
		return &utls.SupportedCurvesExtension{Curves: curves}, nil
	case extECPointFormats:
		return &utls.SupportedPointsExtension{SupportedPoints: []byte{0}}, nil
	case extSignatureAlgorithms:
		algs := make([]utls.SignatureScheme, 0, len(spec.SigAlgs))
		for _, a := range spec.SigAlgs {
			algs = append(algs, utls.SignatureScheme(a))
		}
		return &utls.SignatureAlgorithmsExtension{SupportedSignatureAlgorithms: algs}, nil
	case extALPN:
		protos := spec.ALPN
		if len(protos) == 0 {
			protos = []string{"h2", "http/1.1"}
		}
		return &utls.ALPNExtension{AlpnProtocols: protos}, nil
	case extSCT:
		return &utls.SCTExtension{}, nil
	case extPadding:
		return &utls.UtlsPaddingExtension{GetPaddingLen: utls.BoringPaddingStyle}, nil
	case extExtendedMasterSecret:
		return &utls.ExtendedMasterSecretExtension{}, nil
	case extSessionTicket:
		return &utls.SessionTicketExtension{}, nil
	case extSupportedVersions:
		return supportedVersionsExtension(spec), nil
	case extPSKKeyExchangeModes:
		return &utls.PSKKeyExchangeModesExtension{Modes: []uint8{utls.PskModeDHE}}, nil
	case extKeyShare:
		return keyShareExtension(spec, used), nil
	case extRenegotiationInfo:
		return &utls.RenegotiationInfoExtension{Renegotiation: utls.RenegotiateOnceAsClient}, nil
	case extCompressCertificate:
		return &utls.UtlsCompressCertExtension{Algorithms: []utls.CertCompressionAlgo{utls.CertCompressionBrotli}}, nil
	default:
		return &utls.GenericExtension{Id: e.ID, Data: append([]byte(nil), e.Data...)}, nil
	}
}

func supportedVersionsExtension(spec *fingerprint.TransportSpec) utls.TLSExtension {
	versions := []uint16{}
	if spec.TLSVersMax >= utls.VersionTLS13 {
		versions = append(versions, utls.GREASE_PLACEHOLDER, utls.VersionTLS13)
	}
	if spec.TLSVersMin <= utls.VersionTLS12 {
		versions = append(versions, utls.VersionTLS12)
	}
	return &utls.SupportedVersionsExtension{Versions: versions}
}

func keyShareExtension(spec *fingerprint.TransportSpec, used map[uint16]bool) utls.TLSExtension {
	groups := spec.KeyShares
	if len(groups) == 0 {
		groups = spec.Groups
	}
	shares := make([]utls.KeyShare, 0, len(groups))
	for _, g := range groups {
		if fingerprint.IsGREASE(g) {
			if spec.DisableGREASE {
				continue
			}
			shares = append(shares, utls.KeyShare{Group: utls.CurveID(randomGREASE(used))})
			continue
		}
		shares = append(shares, utls.KeyShare{Group: utls.CurveID(g)})
	}
	return &utls.KeyShareExtension{KeyShares: shares}
}

// randomGREASE picks a uniformly random canonical GREASE value, retrying
// against used to avoid picking a value already chosen for another slot
// in the same ClientHello (RFC 8701 requires GREASE values be distinct
// across slots within one handshake, not just within a list). math/rand
// is used for slot selection (non-cryptographic, cosmetic randomization);
// the handshake's actual key material still comes from crypto/rand via
// utls. If 16 random draws all land on taken values, the first untaken
// canonical value is used instead; only if every canonical value is
// already taken (impossible given the slot count versus the 16 canonical
// values) is a random, possibly repeated, value returned rather than
// looping forever.
func randomGREASE(used map[uint16]bool) uint16 {
	for attempt := 0; attempt < len(fingerprint.GREASEValues); attempt++ {
		v := fingerprint.GREASEValues[mathrand.Intn(len(fingerprint.GREASEValues))]
		if !used[v] {
			used[v] = true
			return v
		}
	}
	for _, v := range fingerprint.GREASEValues {
		if !used[v] {
			used[v] = true
			return v
		}
	}
	idx := mathrand.Intn(len(fingerprint.GREASEValues))
	return fingerprint.GREASEValues[idx]
}

func init() {
	// Seed math/rand's GREASE slot selection from crypto/rand once, so
	// GREASE value choice isn't deterministic across process restarts.
	var seed [8]byte
	if _, err := rand.Read(seed[:]); err == nil {
		mathrand.Seed(int64(seed[0])<<56 | int64(seed[1])<<48 | int64(seed[2])<<40 | int64(seed[3])<<32 |
			int64(seed[4])<<24 | int64(seed[5])<<16 | int64(seed[6])<<8 | int64(seed[7]))
	}
}
