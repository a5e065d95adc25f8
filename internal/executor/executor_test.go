package executor

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Goga74/fpengine/internal/testsupport"
)

func echoCookieHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc123"})
		w.Header().Set("X-Echo-Method", r.Method)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("hello " + r.URL.Path))
	})
}

func redirectHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/start" {
			http.Redirect(w, r, "/end", http.StatusFound)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("landed"))
	})
}

func TestDo_SucceedsAndCollectsCookies(t *testing.T) {
	addr := testsupport.TLSServer(t, echoCookieHandler())

	ex := New(nil, nil)
	resp := ex.Do(context.Background(), &Request{
		RequestID:          "r1",
		URL:                "https://" + addr + "/path",
		Method:             "GET",
		ProfileName:        "chrome-120",
		InsecureSkipVerify: true,
		TLS13AutoRetry:     true,
		Timeout:            5 * time.Second,
	})

	require.NoError(t, resp.Err)
	require.Equal(t, http.StatusOK, resp.Status)
	require.Contains(t, string(resp.Body), "hello /path")
	require.Len(t, resp.Cookies, 1)
	require.Equal(t, "session", resp.Cookies[0].Name)
	require.Equal(t, "abc123", resp.Cookies[0].Value)
}

func TestDo_FollowsRedirect(t *testing.T) {
	addr := testsupport.TLSServer(t, redirectHandler())

	ex := New(nil, nil)
	resp := ex.Do(context.Background(), &Request{
		RequestID:          "r2",
		URL:                "https://" + addr + "/start",
		Method:             "GET",
		ProfileName:        "chrome-120",
		InsecureSkipVerify: true,
		TLS13AutoRetry:     true,
		Timeout:            5 * time.Second,
	})

	require.NoError(t, resp.Err)
	require.Equal(t, http.StatusOK, resp.Status)
	require.Equal(t, "landed", string(resp.Body))
	require.Contains(t, resp.FinalURL, "/end")
}

func TestDo_DisableRedirectStopsAtFirstHop(t *testing.T) {
	addr := testsupport.TLSServer(t, redirectHandler())

	ex := New(nil, nil)
	resp := ex.Do(context.Background(), &Request{
		RequestID:          "r3",
		URL:                "https://" + addr + "/start",
		Method:             "GET",
		ProfileName:        "chrome-120",
		InsecureSkipVerify: true,
		TLS13AutoRetry:     true,
		DisableRedirect:    true,
		Timeout:            5 * time.Second,
	})

	require.NoError(t, resp.Err)
	require.Equal(t, http.StatusFound, resp.Status)
}

func TestDo_InvalidURLReturnsErrResponse(t *testing.T) {
	ex := New(nil, nil)
	resp := ex.Do(context.Background(), &Request{
		RequestID: "r4",
		URL:       "://not-a-url",
		Method:    "GET",
	})
	require.Error(t, resp.Err)
	require.Equal(t, 0, resp.Status)
}

func TestDo_UnresolvableProfileReturnsErrResponse(t *testing.T) {
	ex := New(nil, nil)
	resp := ex.Do(context.Background(), &Request{
		RequestID:   "r5",
		URL:         "https://example.invalid/",
		Method:      "GET",
		ProfileName: "does-not-exist",
	})
	require.Error(t, resp.Err)
}

func TestMergeCookies_NewNamesAppendedExistingNamesOverwritten(t *testing.T) {
	existing := []Cookie{{Name: "a", Value: "1"}, {Name: "b", Value: "2"}}
	fresh := []Cookie{{Name: "b", Value: "20"}, {Name: "c", Value: "3"}}

	out := mergeCookies(existing, fresh)

	require.Len(t, out, 3)
	require.Equal(t, "1", out[0].Value)
	require.Equal(t, "20", out[1].Value)
	require.Equal(t, "3", out[2].Value)
}

func TestMergeCookies_EmptyFreshReturnsExistingUnchanged(t *testing.T) {
	existing := []Cookie{{Name: "a", Value: "1"}}
	out := mergeCookies(existing, nil)
	require.Equal(t, existing, out)
}
