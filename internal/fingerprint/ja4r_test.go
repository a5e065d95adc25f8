package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseJA4R_TCP(t *testing.T) {
	ja4r := "t13d0201h2_1301,1302_002b_0403"
	spec, err := ParseJA4R(ja4r)
	require.NoError(t, err)
	require.EqualValues(t, 0x0304, spec.TLSVersMin)
	require.EqualValues(t, []uint16{0x1301, 0x1302}, spec.CipherSuites)
	require.Len(t, spec.Extensions, 1)
	require.EqualValues(t, 0x002b, spec.Extensions[0].ID)
	require.EqualValues(t, []uint16{0x0403}, spec.SigAlgs)
	require.Nil(t, spec.QUIC)
}

func TestParseJA4R_QUICTransport(t *testing.T) {
	ja4r := "q13d0100h00_1301__"
	spec, err := ParseJA4R(ja4r)
	require.NoError(t, err)
	require.NotNil(t, spec.QUIC)
	require.Equal(t, ja4r, spec.QUIC.Raw)
}

func TestParseJA4R_CipherCountMismatch(t *testing.T) {
	_, err := ParseJA4R("t13d0301h2_1301,1302_002b_0403")
	require.Error(t, err)
}

func TestParseJA4R_BadTransportMarker(t *testing.T) {
	_, err := ParseJA4R("x13d0201h2_1301,1302_002b_0403")
	require.Error(t, err)
}

func TestMergeJA4ROverlay_GroupsFromJA3(t *testing.T) {
	base, err := ParseJA3(chromeJA3)
	require.NoError(t, err)
	overlay, err := ParseJA4R("t13d0201h2_1301,1302_002b_0403")
	require.NoError(t, err)

	merged := mergeJA4ROverlay(base, overlay)
	require.EqualValues(t, []uint16{0x1301, 0x1302}, merged.CipherSuites)
	require.Equal(t, base.Groups, merged.Groups)
	require.Equal(t, base.JA3, merged.JA3)
}

func TestMergeJA4ROverlay_NilBase(t *testing.T) {
	overlay, err := ParseJA4R("t13d0201h2_1301,1302_002b_0403")
	require.NoError(t, err)
	require.Same(t, overlay, mergeJA4ROverlay(nil, overlay))
}
