package tlsspec

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Goga74/fpengine/internal/fingerprint"
)

func TestComputeJA4_ProducesWellFormedFingerprint(t *testing.T) {
	spec, err := fingerprint.ParseJA3(chromeJA3)
	require.NoError(t, err)
	spec.DisableGREASE = true
	spec.ALPN = []string{"h2", "http/1.1"}

	hello, err := Synthesize(spec)
	require.NoError(t, err)

	ja4 := ComputeJA4(hello, "example.com")
	require.NotEmpty(t, ja4)
	require.Equal(t, byte('t'), ja4[0])
	require.Contains(t, ja4, "_")
}

func TestComputeJA4_DiffersWhenCipherSetDiffers(t *testing.T) {
	specA, err := fingerprint.ParseJA3("771,4865,0,29,0")
	require.NoError(t, err)
	specA.DisableGREASE = true
	helloA, err := Synthesize(specA)
	require.NoError(t, err)

	specB, err := fingerprint.ParseJA3("771,4866,0,29,0")
	require.NoError(t, err)
	specB.DisableGREASE = true
	helloB, err := Synthesize(specB)
	require.NoError(t, err)

	require.NotEqual(t, ComputeJA4(helloA, ""), ComputeJA4(helloB, ""))
}
