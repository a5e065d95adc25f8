package executor

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Goga74/fpengine/internal/fingerprint"
)

func TestBuildKey_DeterministicForIdenticalInputs(t *testing.T) {
	spec := &fingerprint.TransportSpec{TLSVersMin: 771, TLSVersMax: 772, CipherSuites: []uint16{4865, 4866}}
	k1 := BuildKey("https", "example.com:443", spec, "", "example.com")
	k2 := BuildKey("https", "example.com:443", spec, "", "example.com")
	require.Equal(t, k1, k2)
}

func TestBuildKey_DiffersByFingerprint(t *testing.T) {
	specA := &fingerprint.TransportSpec{TLSVersMin: 771, TLSVersMax: 772, CipherSuites: []uint16{4865}}
	specB := &fingerprint.TransportSpec{TLSVersMin: 771, TLSVersMax: 772, CipherSuites: []uint16{4866}}
	kA := BuildKey("https", "example.com:443", specA, "", "example.com")
	kB := BuildKey("https", "example.com:443", specB, "", "example.com")
	require.NotEqual(t, kA, kB)
}

func TestBuildKey_DiffersByProxy(t *testing.T) {
	spec := &fingerprint.TransportSpec{TLSVersMin: 771, TLSVersMax: 772, CipherSuites: []uint16{4865}}
	kDirect := BuildKey("https", "example.com:443", spec, "", "example.com")
	kProxied := BuildKey("https", "example.com:443", spec, "http://proxy.local:8080", "example.com")
	require.NotEqual(t, kDirect, kProxied)
}

func TestBuildKey_DiffersByHTTP2Shape(t *testing.T) {
	base := &fingerprint.TransportSpec{TLSVersMin: 771, TLSVersMax: 772, CipherSuites: []uint16{4865}}
	withH2 := base.Clone()
	withH2.HTTP2 = &fingerprint.HTTP2Shape{Settings: []fingerprint.HTTP2Setting{{ID: 1, Val: 65536}}}

	kBase := BuildKey("https", "example.com:443", base, "", "example.com")
	kH2 := BuildKey("https", "example.com:443", withH2, "", "example.com")
	require.NotEqual(t, kBase, kH2)
}

func TestBuildKey_IncludesSchemeAndAddrInString(t *testing.T) {
	spec := &fingerprint.TransportSpec{TLSVersMin: 771, TLSVersMax: 772, CipherSuites: []uint16{4865}}
	k := BuildKey("https", "example.com:443", spec, "", "example.com")
	require.Contains(t, string(k), "https://example.com:443#")
}
