package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolve_ByProfileName(t *testing.T) {
	spec, err := Resolve(nil, ResolveInput{ProfileName: "chrome-120"})
	require.NoError(t, err)
	require.NotEmpty(t, spec.CipherSuites)
	require.Equal(t, chromeJA3, spec.JA3)
}

func TestResolve_UnknownProfile(t *testing.T) {
	_, err := Resolve(nil, ResolveInput{ProfileName: "not-a-real-browser"})
	require.Error(t, err)
}

func TestResolve_ExplicitJA3OverridesProfile(t *testing.T) {
	spec, err := Resolve(nil, ResolveInput{ProfileName: "chrome-120", JA3: "771,4865,0,29,0"})
	require.NoError(t, err)
	require.EqualValues(t, []uint16{4865}, spec.CipherSuites)
}

func TestResolve_JA4RWinsOrderingJA3SuppliesGroups(t *testing.T) {
	spec, err := Resolve(nil, ResolveInput{
		JA3:  chromeJA3,
		JA4R: "t13d0201h2_1301,1302_002b_0403",
	})
	require.NoError(t, err)
	require.EqualValues(t, []uint16{0x1301, 0x1302}, spec.CipherSuites)
	require.NotEmpty(t, spec.Groups)
}

func TestResolve_AttachesHTTP2AndQUICFingerprints(t *testing.T) {
	spec, err := Resolve(nil, ResolveInput{
		JA3:              "771,4865,0,29,0",
		HTTP2Fingerprint: "1:65536|0|0|m,p,a,s",
		QUICFingerprint:  "q1|chrome",
	})
	require.NoError(t, err)
	require.NotNil(t, spec.HTTP2)
	require.NotNil(t, spec.QUIC)
	require.Equal(t, "chrome", spec.QUIC.Raw)
}

func TestResolve_NothingSupplied(t *testing.T) {
	_, err := Resolve(nil, ResolveInput{})
	require.Error(t, err)
}

func TestResolve_DisableGREASEPropagates(t *testing.T) {
	spec, err := Resolve(nil, ResolveInput{JA3: "771,4865,0,29,0", DisableGREASE: true})
	require.NoError(t, err)
	require.True(t, spec.DisableGREASE)
}
