package tlsspec

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Goga74/fpengine/internal/fingerprint"
)

func TestVerifyJA3_ExactMatchRequiredWhenGREASEDisabled(t *testing.T) {
	ja3 := "771,2570-4865,2570-0-10-11,2570-29,0"
	spec, err := fingerprint.ParseJA3(ja3)
	require.NoError(t, err)
	spec.DisableGREASE = true

	hello, err := Synthesize(spec)
	require.NoError(t, err)
	// GREASE slots are omitted entirely, so the exact match is against
	// the same JA3 with its GREASE entries removed.
	require.True(t, VerifyJA3("771,4865,0-10-11,29,0", hello, true))

	recomputed := RecomputeJA3(hello)
	require.NotContains(t, recomputed, "2570")
}

func TestVerifyJA3_GREASEValueMismatchToleratedWhenEnabled(t *testing.T) {
	ja3 := "771,2570-4865,2570-0-10-11,2570-29,0"
	spec, err := fingerprint.ParseJA3(ja3)
	require.NoError(t, err)

	hello, err := Synthesize(spec)
	require.NoError(t, err)
	require.True(t, VerifyJA3(ja3, hello, false))

	recomputed := RecomputeJA3(hello)
	require.NotEqual(t, ja3, recomputed) // GREASE value itself was re-randomized
}

func TestVerifyJA3_FieldCountMismatchFails(t *testing.T) {
	spec, err := fingerprint.ParseJA3("771,4865,0,29,0")
	require.NoError(t, err)
	hello, err := Synthesize(spec)
	require.NoError(t, err)
	require.False(t, VerifyJA3("not,enough,fields", hello, false))
}

func TestVerifyJA3_NonGREASEMismatchFails(t *testing.T) {
	spec, err := fingerprint.ParseJA3("771,4865,0,29,0")
	require.NoError(t, err)
	hello, err := Synthesize(spec)
	require.NoError(t, err)
	require.False(t, VerifyJA3("771,9999,0,29,0", hello, false))
}
