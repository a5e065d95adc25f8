package tlsspec

import (
	"testing"

	utls "github.com/refraction-networking/utls"
	"github.com/stretchr/testify/require"

	"github.com/Goga74/fpengine/internal/fingerprint"
)

const chromeJA3 = "771,4865-4866-4867-49195-49199-49196-49200-52393-52392-49171-49172-156-157-47-53,0-23-65281-10-11-35-16-5-13-18-51-45-43-27-21,29-23-24,0"

func TestSynthesize_RoundTripsJA3WithGREASEDisabled(t *testing.T) {
	spec, err := fingerprint.ParseJA3(chromeJA3)
	require.NoError(t, err)
	spec.DisableGREASE = true

	hello, err := Synthesize(spec)
	require.NoError(t, err)
	require.True(t, VerifyJA3(chromeJA3, hello, true))
}

func TestSynthesize_CipherAndExtensionOrderPreserved(t *testing.T) {
	spec, err := fingerprint.ParseJA3(chromeJA3)
	require.NoError(t, err)
	spec.DisableGREASE = true

	hello, err := Synthesize(spec)
	require.NoError(t, err)
	require.Equal(t, []uint16(spec.CipherSuites), hello.CipherSuites)
	require.Len(t, hello.Extensions, len(spec.Extensions))
}

func TestSynthesize_GREASESlotsRandomizedButPositional(t *testing.T) {
	ja3WithGREASE := "771,2570-4865,2570-0-10-11,2570-29,0"
	spec, err := fingerprint.ParseJA3(ja3WithGREASE)
	require.NoError(t, err)

	hello, err := Synthesize(spec)
	require.NoError(t, err)
	require.True(t, fingerprint.IsGREASE(hello.CipherSuites[0]))
	require.Equal(t, uint16(4865), hello.CipherSuites[1])
	require.True(t, VerifyJA3(ja3WithGREASE, hello, false))
}

func TestSynthesize_GREASEOmittedWhenDisabled(t *testing.T) {
	ja3WithGREASE := "771,2570-4865,2570-0-10-11,2570-29,0"
	spec, err := fingerprint.ParseJA3(ja3WithGREASE)
	require.NoError(t, err)
	spec.DisableGREASE = true

	hello, err := Synthesize(spec)
	require.NoError(t, err)
	require.Equal(t, []uint16{4865}, hello.CipherSuites)
}

func TestSynthesize_RejectsEmptyCipherList(t *testing.T) {
	spec := &fingerprint.TransportSpec{TLSVersMin: 771, TLSVersMax: 771}
	_, err := Synthesize(spec)
	require.Error(t, err)
	var ie *IncoherentError
	require.ErrorAs(t, err, &ie)
}

func TestSynthesize_RejectsInvertedVersionBounds(t *testing.T) {
	spec := &fingerprint.TransportSpec{
		TLSVersMin:   772,
		TLSVersMax:   771,
		CipherSuites: []uint16{4865},
	}
	_, err := Synthesize(spec)
	require.Error(t, err)
}

func TestSynthesize_RejectsKeyShareWithoutGroups(t *testing.T) {
	spec := &fingerprint.TransportSpec{
		TLSVersMin:   771,
		TLSVersMax:   772,
		CipherSuites: []uint16{4865},
		Extensions:   []fingerprint.ExtensionSpec{{ID: extKeyShare}},
	}
	_, err := Synthesize(spec)
	require.Error(t, err)
}

func TestSynthesize_NilSpec(t *testing.T) {
	_, err := Synthesize(nil)
	require.Error(t, err)
}

func TestSynthesize_GREASEValuesDistinctAcrossSlots(t *testing.T) {
	spec := &fingerprint.TransportSpec{
		TLSVersMin:   771,
		TLSVersMax:   772,
		CipherSuites: []uint16{0x0A0A, 4865},
		Groups:       []uint16{0x1A1A, 29},
		KeyShares:    []uint16{0x2A2A, 29},
		Extensions: []fingerprint.ExtensionSpec{
			{ID: 0x6969, GREASE: true},
			{ID: extSupportedGroups},
			{ID: extKeyShare},
		},
	}

	hello, err := Synthesize(spec)
	require.NoError(t, err)

	var chosen []uint16
	chosen = append(chosen, hello.CipherSuites[0])

	for _, ext := range hello.Extensions {
		switch x := ext.(type) {
		case *utls.UtlsGREASEExtension:
			chosen = append(chosen, x.Value)
		case *utls.SupportedCurvesExtension:
			for _, c := range x.Curves {
				if fingerprint.IsGREASE(uint16(c)) {
					chosen = append(chosen, uint16(c))
				}
			}
		case *utls.KeyShareExtension:
			for _, ks := range x.KeyShares {
				if fingerprint.IsGREASE(uint16(ks.Group)) {
					chosen = append(chosen, uint16(ks.Group))
				}
			}
		}
	}

	require.Len(t, chosen, 4, "expected one GREASE draw per flagged slot")
	seen := make(map[uint16]bool, len(chosen))
	for _, v := range chosen {
		require.True(t, fingerprint.IsGREASE(v))
		require.False(t, seen[v], "GREASE value %#x reused across slots in the same ClientHello", v)
		seen[v] = true
	}
}
