package audit

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSink_NilReceiverMethodsAreNoOps(t *testing.T) {
	var s *Sink
	require.NotPanics(t, func() { s.Record(Record{RequestID: "r1"}) })
	require.NoError(t, s.Close())
}

func TestRecord_DropsWhenBufferFull(t *testing.T) {
	s := &Sink{records: make(chan Record, 1)}

	s.Record(Record{RequestID: "first"})
	s.Record(Record{RequestID: "second"}) // buffer full, dropped rather than blocking

	select {
	case r := <-s.records:
		require.Equal(t, "first", r.RequestID)
	default:
		t.Fatal("expected the first record to still be queued")
	}

	select {
	case <-s.records:
		t.Fatal("second record should have been dropped, not queued")
	default:
	}
}

func TestDrain_StopsOnDoneWithoutConsumingDB(t *testing.T) {
	db, err := sql.Open("postgres", "host=127.0.0.1 port=1 dbname=unused sslmode=disable")
	require.NoError(t, err)

	s := &Sink{db: db, records: make(chan Record, 4), done: make(chan struct{})}
	finished := make(chan struct{})
	go func() {
		s.drain()
		close(finished)
	}()

	close(s.done)

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("drain loop did not exit after done was closed")
	}

	require.NoError(t, db.Close())
}

func TestClose_ClosesUnderlyingDB(t *testing.T) {
	db, err := sql.Open("postgres", "host=127.0.0.1 port=1 dbname=unused sslmode=disable")
	require.NoError(t, err)

	s := &Sink{db: db, records: make(chan Record, 1), done: make(chan struct{})}
	require.NoError(t, s.Close())

	// A second Exec against the closed DB must fail.
	_, err = db.Exec("SELECT 1")
	require.Error(t, err)
}
