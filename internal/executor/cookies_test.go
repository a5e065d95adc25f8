package executor

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseSetCookies_Empty(t *testing.T) {
	require.Nil(t, parseSetCookies(nil))
}

func TestParseSetCookies_BasicAttributes(t *testing.T) {
	cookies := parseSetCookies([]string{
		"session=abc123; Domain=example.com; Path=/; Secure; HttpOnly; SameSite=Strict",
	})
	require.Len(t, cookies, 1)
	c := cookies[0]
	require.Equal(t, "session", c.Name)
	require.Equal(t, "abc123", c.Value)
	require.Equal(t, "example.com", c.Domain)
	require.Equal(t, "/", c.Path)
	require.True(t, c.Secure)
	require.True(t, c.HTTPOnly)
	require.Equal(t, "Strict", c.SameSite)
}

func TestParseSetCookies_MultipleHeaders(t *testing.T) {
	cookies := parseSetCookies([]string{
		"a=1; Path=/",
		"b=2; Path=/account",
	})
	require.Len(t, cookies, 2)
	require.Equal(t, "a", cookies[0].Name)
	require.Equal(t, "b", cookies[1].Name)
}

func TestSameSiteName_AllEnumValues(t *testing.T) {
	require.Equal(t, "Lax", sameSiteName(http.SameSiteLaxMode))
	require.Equal(t, "Strict", sameSiteName(http.SameSiteStrictMode))
	require.Equal(t, "None", sameSiteName(http.SameSiteNoneMode))
	require.Equal(t, "Default", sameSiteName(http.SameSiteDefaultMode))
}
