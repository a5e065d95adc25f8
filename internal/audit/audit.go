// Package audit implements an optional, non-blocking request-audit sink
// recording (request_id, host, protocol, status, duration_ms, broken) to
// Postgres when DATABASE_URL is configured. Adapted from a
// Connect/SetSchema Postgres pool setup, generalized from a generic
// *sql.DB wrapper to a fire-and-forget record queue so a slow or
// unreachable database never blocks a request on the hot path — error
// propagation to the caller covers request errors only, never
// audit-sink availability.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq"
)

// Record is one completed request's audit trail.
type Record struct {
	RequestID  string
	Host       string
	Protocol   string
	Status     int
	DurationMs int64
	Broken     bool
}

// Sink buffers Records on a channel and drains them from a single
// goroutine so a database hiccup never backs up into request handling;
// a full buffer drops the incoming record rather than blocking.
type Sink struct {
	db     *sql.DB
	records chan Record
	done    chan struct{}
}

// Connect opens db at rawURL, creates the audit table if absent, and
// starts the background drain loop. A nil, no-op Sink is never returned;
// callers that don't set DATABASE_URL should simply not call Connect.
func Connect(ctx context.Context, rawURL string) (*Sink, error) {
	db, err := sql.Open("postgres", rawURL)
	if err != nil {
		return nil, fmt.Errorf("audit: open database: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("audit: ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("audit: create table: %w", err)
	}

	s := &Sink{db: db, records: make(chan Record, 1024), done: make(chan struct{})}
	go s.drain()
	return s, nil
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS request_audit (
	id          BIGSERIAL PRIMARY KEY,
	request_id  TEXT NOT NULL,
	host        TEXT NOT NULL,
	protocol    TEXT NOT NULL,
	status      INTEGER NOT NULL,
	duration_ms BIGINT NOT NULL,
	broken      BOOLEAN NOT NULL,
	recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Record enqueues r for asynchronous persistence. Never blocks: if the
// buffer is full, the record is dropped and logged, trading audit
// completeness for request-path latency.
func (s *Sink) Record(r Record) {
	if s == nil {
		return
	}
	select {
	case s.records <- r:
	default:
		log.Printf("[audit] buffer full, dropping record for request %s", r.RequestID)
	}
}

func (s *Sink) drain() {
	for {
		select {
		case r, ok := <-s.records:
			if !ok {
				return
			}
			s.insert(r)
		case <-s.done:
			return
		}
	}
}

func (s *Sink) insert(r Record) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO request_audit (request_id, host, protocol, status, duration_ms, broken) VALUES ($1, $2, $3, $4, $5, $6)`,
		r.RequestID, r.Host, r.Protocol, r.Status, r.DurationMs, r.Broken,
	)
	if err != nil {
		log.Printf("[audit] insert failed: %v", err)
	}
}

// Close stops the drain loop and closes the database handle. Records
// still in the buffer at Close time are discarded.
func (s *Sink) Close() error {
	if s == nil {
		return nil
	}
	close(s.done)
	return s.db.Close()
}
