package executor

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEffectiveBody_PrefersBodyBytes(t *testing.T) {
	r := &Request{Body: "text-body", BodyBytes: []byte("binary-body")}
	require.Equal(t, []byte("binary-body"), r.effectiveBody())
}

func TestEffectiveBody_FallsBackToBody(t *testing.T) {
	r := &Request{Body: "text-body"}
	require.Equal(t, []byte("text-body"), r.effectiveBody())
}

func TestEffectiveBody_NilWhenNeitherSet(t *testing.T) {
	r := &Request{}
	require.Nil(t, r.effectiveBody())
}

func TestNormalizedMethod_PassesThroughKnownVerbs(t *testing.T) {
	for _, m := range []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"} {
		r := &Request{Method: m}
		require.Equal(t, m, r.NormalizedMethod())
	}
}

func TestNormalizedMethod_DefaultsToGETForUnknownOrEmpty(t *testing.T) {
	require.Equal(t, "GET", (&Request{}).NormalizedMethod())
	require.Equal(t, "GET", (&Request{Method: "BOGUS"}).NormalizedMethod())
}
