// Package journal writes coupling lifecycle events to an SQLite audit log.
// Events are recorded without blocking the caller and written in batches by
// a background goroutine.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/milk9111/tether/coupling"
)

const (
	defaultBuffer        = 256
	defaultBatch         = 64
	defaultFlushInterval = 500 * time.Millisecond
)

type Options struct {
	// Buffer is the number of events held before Record starts dropping.
	Buffer        int
	Batch         int
	FlushInterval time.Duration
	// OnDrop is called for every dropped event.
	OnDrop func()
	Logger *zerolog.Logger
}

// Journal implements coupling.Journal.
type Journal struct {
	db      *sql.DB
	session string
	log     zerolog.Logger

	batch         int
	flushInterval time.Duration
	onDrop        func()

	mu      sync.RWMutex
	closed  bool
	events  chan coupling.Event
	done    chan struct{}
	dropped atomic.Uint64
}

var _ coupling.Journal = (*Journal)(nil)

// Open opens or creates the journal at path and starts a new session.
func Open(path string, opts Options) (*Journal, error) {
	if path == "" {
		path = "tether.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("journal: create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("journal: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS coupling_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session TEXT NOT NULL,
		at_unix_ms INTEGER NOT NULL,
		kind TEXT NOT NULL,
		captor INTEGER NOT NULL,
		target INTEGER NOT NULL,
		reason TEXT NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: create table: %w", err)
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS coupling_events_session ON coupling_events (session)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: create index: %w", err)
	}

	if opts.Buffer <= 0 {
		opts.Buffer = defaultBuffer
	}
	if opts.Batch <= 0 {
		opts.Batch = defaultBatch
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = defaultFlushInterval
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	j := &Journal{
		db:            db,
		session:       uuid.NewString(),
		log:           logger.With().Str("component", "journal").Logger(),
		batch:         opts.Batch,
		flushInterval: opts.FlushInterval,
		onDrop:        opts.OnDrop,
		events:        make(chan coupling.Event, opts.Buffer),
		done:          make(chan struct{}),
	}
	go j.run()
	return j, nil
}

// Session identifies the events written through this Journal.
func (j *Journal) Session() string {
	return j.session
}

// Dropped is the number of events lost to a full buffer or a closed journal.
func (j *Journal) Dropped() uint64 {
	return j.dropped.Load()
}

// Record queues e. It never blocks.
func (j *Journal) Record(e coupling.Event) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		j.drop()
		return
	}
	select {
	case j.events <- e:
	default:
		j.drop()
	}
}

func (j *Journal) drop() {
	j.dropped.Add(1)
	if j.onDrop != nil {
		j.onDrop()
	}
}

// Close flushes queued events and closes the database.
func (j *Journal) Close() error {
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return nil
	}
	j.closed = true
	close(j.events)
	j.mu.Unlock()

	<-j.done
	if err := j.db.Close(); err != nil {
		return fmt.Errorf("journal: close: %w", err)
	}
	return nil
}

func (j *Journal) run() {
	defer close(j.done)
	ticker := time.NewTicker(j.flushInterval)
	defer ticker.Stop()

	pending := make([]coupling.Event, 0, j.batch)
	for {
		select {
		case e, ok := <-j.events:
			if !ok {
				j.flush(pending)
				return
			}
			pending = append(pending, e)
			if len(pending) >= j.batch {
				j.flush(pending)
				pending = pending[:0]
			}
		case <-ticker.C:
			if len(pending) > 0 {
				j.flush(pending)
				pending = pending[:0]
			}
		}
	}
}

func (j *Journal) flush(events []coupling.Event) {
	if len(events) == 0 {
		return
	}
	if err := j.insert(context.Background(), events); err != nil {
		j.log.Error().Err(err).Int("events", len(events)).Msg("journal write failed")
	}
}

func (j *Journal) insert(ctx context.Context, events []coupling.Event) (retErr error) {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO coupling_events
		(session, at_unix_ms, kind, captor, target, reason) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer func() { _ = stmt.Close() }()
	for _, e := range events {
		if _, err := stmt.ExecContext(ctx, j.session, e.At.UnixMilli(), string(e.Kind),
			int64(e.Captor), int64(e.Target), string(e.Reason)); err != nil {
			return fmt.Errorf("insert: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Events reads back every event of session in write order.
func (j *Journal) Events(ctx context.Context, session string) ([]coupling.Event, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT at_unix_ms, kind, captor, target, reason
		FROM coupling_events WHERE session = ? ORDER BY id`, session)
	if err != nil {
		return nil, fmt.Errorf("journal: select events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []coupling.Event
	for rows.Next() {
		var (
			at             int64
			kind, reason   string
			captor, target int64
		)
		if err := rows.Scan(&at, &kind, &captor, &target, &reason); err != nil {
			return nil, fmt.Errorf("journal: scan: %w", err)
		}
		out = append(out, coupling.Event{
			At:     time.UnixMilli(at).UTC(),
			Kind:   coupling.EventKind(kind),
			Captor: coupling.ActorID(captor),
			Target: coupling.ActorID(target),
			Reason: coupling.ReleaseReason(reason),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journal: rows: %w", err)
	}
	return out, nil
}

// Sessions lists every session in the journal, oldest first.
func (j *Journal) Sessions(ctx context.Context) ([]string, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT session FROM coupling_events
		GROUP BY session ORDER BY MIN(id)`)
	if err != nil {
		return nil, fmt.Errorf("journal: select sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("journal: scan: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journal: rows: %w", err)
	}
	return out, nil
}
