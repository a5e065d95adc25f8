package tlsspec

import (
	"strconv"
	"strings"

	utls "github.com/refraction-networking/utls"

	"github.com/Goga74/fpengine/internal/fingerprint"
)

// RecomputeJA3 rebuilds a JA3 string from a synthesized ClientHelloSpec,
// the same five comma-separated fields ParseJA3 reads. Synthesize(Parse(J))
// must recompute to J, ignoring GREASE slot contents but preserving their
// positions.
func RecomputeJA3(hello *utls.ClientHelloSpec) string {
	ciphers := make([]string, len(hello.CipherSuites))
	for i, c := range hello.CipherSuites {
		ciphers[i] = strconv.Itoa(int(c))
	}

	extIDs := make([]string, 0, len(hello.Extensions))
	var groups []string
	var points []string
	for _, ext := range hello.Extensions {
		extIDs = append(extIDs, strconv.Itoa(int(extensionID(ext))))
		if curves, ok := ext.(*utls.SupportedCurvesExtension); ok {
			for _, c := range curves.Curves {
				groups = append(groups, strconv.Itoa(int(c)))
			}
		}
		if _, ok := ext.(*utls.SupportedPointsExtension); ok {
			points = append(points, "0")
		}
	}

	return strings.Join([]string{
		strconv.Itoa(int(hello.TLSVersMax)),
		strings.Join(ciphers, "-"),
		strings.Join(extIDs, "-"),
		strings.Join(groups, "-"),
		strings.Join(points, "-"),
	}, ",")
}

// VerifyJA3 reports whether recomputing a JA3 string from synthesized
// matches original, ignoring the numeric value of GREASE-positioned
// cipher/extension/group slots (their presence and position still must
// match) unless disableGREASE is set, in which case comparison is exact.
func VerifyJA3(original string, synthesized *utls.ClientHelloSpec, disableGREASE bool) bool {
	recomputed := RecomputeJA3(synthesized)
	if disableGREASE {
		return original == recomputed
	}

	origFields := strings.Split(original, ",")
	newFields := strings.Split(recomputed, ",")
	if len(origFields) != 5 || len(newFields) != 5 {
		return false
	}
	if origFields[0] != newFields[0] {
		return false
	}
	for i := 1; i < 5; i++ {
		if !dashListsMatchIgnoringGREASE(origFields[i], newFields[i]) {
			return false
		}
	}
	return true
}

func dashListsMatchIgnoringGREASE(a, b string) bool {
	as := splitNonEmpty(a, "-")
	bs := splitNonEmpty(b, "-")
	if len(as) != len(bs) {
		return false
	}
	for i := range as {
		av, aerr := strconv.ParseUint(as[i], 10, 16)
		bv, berr := strconv.ParseUint(bs[i], 10, 16)
		if aerr != nil || berr != nil {
			if as[i] != bs[i] {
				return false
			}
			continue
		}
		if fingerprint.IsGREASE(uint16(av)) && fingerprint.IsGREASE(uint16(bv)) {
			continue
		}
		if av != bv {
			return false
		}
	}
	return true
}

func splitNonEmpty(s, sep string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, sep)
}

func extensionID(ext utls.TLSExtension) uint16 {
	switch e := ext.(type) {
	case *utls.SNIExtension:
		return extServerName
	case *utls.StatusRequestExtension:
		return extStatusRequest
	case *utls.SupportedCurvesExtension:
		return extSupportedGroups
	case *utls.SupportedPointsExtension:
		return extECPointFormats
	case *utls.SignatureAlgorithmsExtension:
		return extSignatureAlgorithms
	case *utls.ALPNExtension:
		return extALPN
	case *utls.SCTExtension:
		return extSCT
	case *utls.UtlsPaddingExtension:
		return extPadding
	case *utls.ExtendedMasterSecretExtension:
		return extExtendedMasterSecret
	case *utls.SessionTicketExtension:
		return extSessionTicket
	case *utls.SupportedVersionsExtension:
		return extSupportedVersions
	case *utls.PSKKeyExchangeModesExtension:
		return extPSKKeyExchangeModes
	case *utls.KeyShareExtension:
		return extKeyShare
	case *utls.RenegotiationInfoExtension:
		return extRenegotiationInfo
	case *utls.UtlsCompressCertExtension:
		return extCompressCertificate
	case *utls.UtlsGREASEExtension:
		return e.Value
	case *utls.GenericExtension:
		return e.Id
	default:
		return 0
	}
}
