package boundary

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/Goga74/fpengine/internal/executor"
)

func TestDecodeRequest_DefaultsEnableReuseAndAutoRetryToTrue(t *testing.T) {
	payload, err := msgpack.Marshal(&WireRequest{URL: "https://example.com/"})
	require.NoError(t, err)

	req, err := DecodeRequest(payload)
	require.NoError(t, err)
	require.True(t, req.EnableConnectionReuse)
	require.True(t, req.TLS13AutoRetry)
	require.NotEmpty(t, req.RequestID)
}

func TestDecodeRequest_ExplicitFalseOverridesDefault(t *testing.T) {
	f := false
	payload, err := msgpack.Marshal(&WireRequest{
		URL:                   "https://example.com/",
		EnableConnectionReuse: &f,
		TLS13AutoRetry:        &f,
	})
	require.NoError(t, err)

	req, err := DecodeRequest(payload)
	require.NoError(t, err)
	require.False(t, req.EnableConnectionReuse)
	require.False(t, req.TLS13AutoRetry)
}

func TestDecodeRequest_PreservesSuppliedRequestID(t *testing.T) {
	payload, err := msgpack.Marshal(&WireRequest{URL: "https://example.com/", RequestID: "fixed-id"})
	require.NoError(t, err)

	req, err := DecodeRequest(payload)
	require.NoError(t, err)
	require.Equal(t, "fixed-id", req.RequestID)
}

func TestDecodeRequest_HeadersAndCookiesTranslate(t *testing.T) {
	payload, err := msgpack.Marshal(&WireRequest{
		URL:     "https://example.com/",
		Headers: []WireHeader{{Name: "X-Foo", Value: "bar"}},
		Cookies: []WireCookie{{Name: "session", Value: "abc", Secure: true}},
	})
	require.NoError(t, err)

	req, err := DecodeRequest(payload)
	require.NoError(t, err)
	require.Len(t, req.Headers, 1)
	require.Equal(t, "X-Foo", req.Headers[0].Name)
	require.Len(t, req.Cookies, 1)
	require.True(t, req.Cookies[0].Secure)
}

func TestDecodeRequest_TimeoutSecondsConvertToDuration(t *testing.T) {
	payload, err := msgpack.Marshal(&WireRequest{URL: "https://example.com/", Timeout: 5})
	require.NoError(t, err)

	req, err := DecodeRequest(payload)
	require.NoError(t, err)
	require.Equal(t, 5*time.Second, req.Timeout)
}

func TestDecodeRequest_RejectsMalformedPayload(t *testing.T) {
	_, err := DecodeRequest([]byte{0xff, 0xff, 0xff})
	require.Error(t, err)
}

func TestEncodeResponse_CarriesBodyHeadersAndCookies(t *testing.T) {
	resp := &executor.Response{
		RequestID: "r1",
		Status:    200,
		Body:      []byte("hello"),
		Headers:   map[string][]string{"Content-Type": {"text/plain"}},
		FinalURL:  "https://example.com/final",
		Cookies:   []executor.Cookie{{Name: "session", Value: "abc"}},
	}

	payload, err := EncodeResponse(resp)
	require.NoError(t, err)

	var wr WireResponse
	require.NoError(t, msgpack.Unmarshal(payload, &wr))
	require.Equal(t, "r1", wr.RequestID)
	require.Equal(t, 200, wr.Status)
	require.Equal(t, []byte("hello"), wr.BodyBytes)
	require.Equal(t, "https://example.com/final", wr.FinalURL)
	require.Len(t, wr.Headers, 1)
	require.Equal(t, "Content-Type", wr.Headers[0].Name)
	require.Len(t, wr.Cookies, 1)
}

func TestEncodeResponse_ErrorFillsBodyWhenEmpty(t *testing.T) {
	resp := &executor.Response{
		RequestID: "r2",
		Status:    0,
		Err:       errTest{"boom"},
	}
	payload, err := EncodeResponse(resp)
	require.NoError(t, err)

	var wr WireResponse
	require.NoError(t, msgpack.Unmarshal(payload, &wr))
	require.Equal(t, "boom", wr.Body)
}

type errTest struct{ msg string }

func (e errTest) Error() string { return e.msg }
