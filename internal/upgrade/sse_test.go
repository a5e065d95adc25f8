package upgrade

import (
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Goga74/fpengine/internal/executor"
	"github.com/Goga74/fpengine/internal/testsupport"
)

func sseHandler(body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(body))
	})
}

func fpReq() *executor.Request {
	return &executor.Request{ProfileName: "chrome-120", InsecureSkipVerify: true}
}

func TestDialSSE_ConnectsAndReadsFirstEvent(t *testing.T) {
	addr := testsupport.TLSServer(t, sseHandler("event: ping\ndata: hello\n\n"))
	ex := executor.New(nil, nil)

	stream, err := DialSSE(t.Context(), ex, "https://"+addr+"/stream", fpReq(), nil)
	require.NoError(t, err)

	ev, err := stream.NextEvent()
	require.NoError(t, err)
	require.Equal(t, "ping", ev.Event)
	require.Equal(t, "hello", ev.Data)

	require.NoError(t, stream.Close())
}

func TestDialSSE_NonOKStatusErrors(t *testing.T) {
	addr := testsupport.TLSServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	ex := executor.New(nil, nil)

	_, err := DialSSE(t.Context(), ex, "https://"+addr+"/missing", fpReq(), nil)
	require.Error(t, err)
}

func TestDialSSE_MissingFingerprintErrors(t *testing.T) {
	addr := testsupport.TLSServer(t, sseHandler("data: x\n\n"))
	ex := executor.New(nil, nil)

	_, err := DialSSE(t.Context(), ex, "https://"+addr+"/stream", nil, nil)
	require.Error(t, err)
}

func TestSSEStream_NextEventReturnsEOFWhenExhausted(t *testing.T) {
	addr := testsupport.TLSServer(t, sseHandler("data: only-one\n\n"))
	ex := executor.New(nil, nil)

	stream, err := DialSSE(t.Context(), ex, "https://"+addr+"/stream", fpReq(), nil)
	require.NoError(t, err)

	_, err = stream.NextEvent()
	require.NoError(t, err)

	_, err = stream.NextEvent()
	require.ErrorIs(t, err, io.EOF)
}

func TestSSEStream_ParsesMultipleEventsInOrder(t *testing.T) {
	addr := testsupport.TLSServer(t, sseHandler("id: 1\nevent: a\ndata: first\n\nid: 2\nevent: b\ndata: second\n\n"))
	ex := executor.New(nil, nil)

	stream, err := DialSSE(t.Context(), ex, "https://"+addr+"/stream", fpReq(), nil)
	require.NoError(t, err)

	ev1, err := stream.NextEvent()
	require.NoError(t, err)
	require.Equal(t, "1", ev1.ID)
	require.Equal(t, "first", ev1.Data)

	ev2, err := stream.NextEvent()
	require.NoError(t, err)
	require.Equal(t, "2", ev2.ID)
	require.Equal(t, "second", ev2.Data)
}

func TestDialSSE_SendsSuppliedHeaders(t *testing.T) {
	var gotHeader string
	addr := testsupport.TLSServer(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("X-Custom")
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
	}))
	ex := executor.New(nil, nil)

	_, err := DialSSE(t.Context(), ex, "https://"+addr+"/stream", fpReq(), map[string][]string{"X-Custom": {"present"}})
	require.NoError(t, err)
	require.Equal(t, "present", gotHeader)
}
