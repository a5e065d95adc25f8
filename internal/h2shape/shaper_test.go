package h2shape

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSchemeOf_DefaultsToHTTPS(t *testing.T) {
	u, _ := url.Parse("//example.com/path")
	require.Equal(t, "https", schemeOf(u))
}

func TestSchemeOf_PreservesExplicitScheme(t *testing.T) {
	u, _ := url.Parse("http://example.com/path")
	require.Equal(t, "http", schemeOf(u))
}

func TestHTTPLower_LowersOnlyASCIIUpper(t *testing.T) {
	require.Equal(t, "user-agent", httpLower("User-Agent"))
	require.Equal(t, "x-custom-id", httpLower("X-Custom-Id"))
	require.Equal(t, "already-lower", httpLower("already-lower"))
}

func TestHTTPCanonical_MatchesCanonicalHeaderKey(t *testing.T) {
	require.Equal(t, "User-Agent", httpCanonical("user-agent"))
	require.Equal(t, "Accept-Encoding", httpCanonical("accept-encoding"))
}
