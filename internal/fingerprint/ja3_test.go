package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const chromeJA3 = "771,4865-4866-4867-49195-49199-49196-49200-52393-52392-49171-49172-156-157-47-53,0-23-65281-10-11-35-16-5-13-18-51-45-43-27-17513,29-23-24,0"

func TestParseJA3_Chrome(t *testing.T) {
	spec, err := ParseJA3(chromeJA3)
	require.NoError(t, err)
	require.EqualValues(t, 771, spec.TLSVersMin)
	require.EqualValues(t, 771, spec.TLSVersMax)
	require.Len(t, spec.CipherSuites, 15)
	require.EqualValues(t, 4865, spec.CipherSuites[0])
	require.Len(t, spec.Extensions, 15)
	require.EqualValues(t, []uint16{29, 23, 24}, spec.Groups)
	require.Equal(t, chromeJA3, spec.JA3)
}

func TestParseJA3_GREASEDetected(t *testing.T) {
	// 2570 = 0x0A0A, a canonical GREASE extension id.
	spec, err := ParseJA3("771,4865,2570-10,29,0")
	require.NoError(t, err)
	require.True(t, spec.Extensions[0].GREASE)
	require.False(t, spec.Extensions[1].GREASE)
}

func TestParseJA3_WrongFieldCount(t *testing.T) {
	_, err := ParseJA3("771,4865,0-23")
	require.Error(t, err)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	require.Equal(t, "ja3", pe.Field)
}

func TestParseJA3_NonDecimalField(t *testing.T) {
	_, err := ParseJA3("abc,4865,0,29,0")
	require.Error(t, err)
}

func TestParseJA3_EmptyDashList(t *testing.T) {
	spec, err := ParseJA3("771,,0,29,0")
	require.NoError(t, err)
	require.Empty(t, spec.CipherSuites)
}
