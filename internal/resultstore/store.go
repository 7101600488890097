// Package resultstore persists per-frame outcomes and terminal sink values of
// dataflow runs in a sqlite database.
package resultstore

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/fliplane/internal/timeutil"
)

// FrameStatus is the outcome of pushing one frame through a graph.
type FrameStatus string

const (
	FrameOK     FrameStatus = "ok"
	FrameFailed FrameStatus = "failed"
)

// FrameOutcome is one row of the frames table.
type FrameOutcome struct {
	FrameID   string        `json:"frame_id"`
	GraphID   uuid.UUID     `json:"graph_id"`
	Counter   int           `json:"counter"`
	Status    FrameStatus   `json:"status"`
	Error     string        `json:"error,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
}

// Result is one decoded sink value.
type Result struct {
	Counter int `json:"counter"`
	Seq     int `json:"seq"`
	Value   any `json:"value"`
}

// Store wraps the result database.
type Store struct {
	db    *sql.DB
	clock timeutil.Clock
}

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA temp_store=MEMORY",
	"PRAGMA foreign_keys=ON",
}

// Open opens (creating if needed) the database at path, applies the
// connection PRAGMAs and migrates the schema to the latest version.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open result db: %w", err)
	}
	// One connection serialises writers from concurrent graphs and keeps the
	// PRAGMAs below in effect for every statement.
	db.SetMaxOpenConns(1)
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	s := &Store{db: db, clock: timeutil.RealClock{}}
	if err := s.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	diagf("opened %s", path)
	return s, nil
}

// SetClock replaces the clock used to stamp frames recorded without a start
// time.
func (s *Store) SetClock(c timeutil.Clock) { s.clock = c }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// RecordFrame persists a frame outcome. If FrameID is empty a UUID is
// generated; a zero StartedAt is stamped with the store clock.
func (s *Store) RecordFrame(o *FrameOutcome) error {
	if o.Status != FrameOK && o.Status != FrameFailed {
		return fmt.Errorf("invalid frame status %q", o.Status)
	}
	if o.FrameID == "" {
		o.FrameID = uuid.New().String()
	}
	if o.StartedAt.IsZero() {
		o.StartedAt = s.clock.Now()
	}

	var errText interface{}
	if o.Error != "" {
		errText = o.Error
	}

	return retryOnBusy(func() error {
		_, err := s.db.Exec(`
			INSERT INTO frames (frame_id, graph_id, counter, status, error, started_at, duration_ns)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			o.FrameID, o.GraphID.String(), o.Counter, string(o.Status), errText,
			o.StartedAt.UnixNano(), o.Duration.Nanoseconds(),
		)
		return err
	})
}

// RecordResults stores the values one sink produced for a frame counter. Each
// value is encoded as a protobuf Value, so it must be one of the types
// structpb.NewValue accepts. The whole batch is written in one transaction.
func (s *Store) RecordResults(graphID uuid.UUID, sink string, counter int, values []any) error {
	encoded := make([][]byte, len(values))
	for i, v := range values {
		pv, err := structpb.NewValue(v)
		if err != nil {
			return fmt.Errorf("encode %s value %d: %w", sink, i, err)
		}
		b, err := proto.Marshal(pv)
		if err != nil {
			return fmt.Errorf("marshal %s value %d: %w", sink, i, err)
		}
		encoded[i] = b
	}

	return retryOnBusy(func() error {
		tx, err := s.db.Begin()
		if err != nil {
			return err
		}
		defer tx.Rollback()

		var next int
		if err := tx.QueryRow(`
			SELECT COALESCE(MAX(seq) + 1, 0) FROM results
			WHERE graph_id = ? AND sink = ? AND counter = ?`,
			graphID.String(), sink, counter,
		).Scan(&next); err != nil {
			return err
		}
		for i, b := range encoded {
			if _, err := tx.Exec(`
				INSERT INTO results (graph_id, sink, counter, seq, value)
				VALUES (?, ?, ?, ?, ?)`,
				graphID.String(), sink, counter, next+i, b,
			); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
}

// Frames returns the recorded outcomes of a graph ordered by counter.
func (s *Store) Frames(graphID uuid.UUID) ([]FrameOutcome, error) {
	rows, err := s.db.Query(`
		SELECT frame_id, graph_id, counter, status, error, started_at, duration_ns
		FROM frames WHERE graph_id = ?
		ORDER BY counter ASC, started_at ASC`, graphID.String())
	if err != nil {
		return nil, fmt.Errorf("query frames: %w", err)
	}
	defer rows.Close()

	var out []FrameOutcome
	for rows.Next() {
		var (
			o        FrameOutcome
			gid      string
			status   string
			errText  sql.NullString
			started  int64
			duration int64
		)
		if err := rows.Scan(&o.FrameID, &gid, &o.Counter, &status, &errText, &started, &duration); err != nil {
			return nil, fmt.Errorf("scan frame: %w", err)
		}
		if o.GraphID, err = uuid.Parse(gid); err != nil {
			return nil, fmt.Errorf("frame %s: %w", o.FrameID, err)
		}
		o.Status = FrameStatus(status)
		o.Error = errText.String
		o.StartedAt = time.Unix(0, started)
		o.Duration = time.Duration(duration)
		out = append(out, o)
	}
	return out, rows.Err()
}

// Results decodes every value a sink of the graph produced, ordered by
// counter and sequence.
func (s *Store) Results(graphID uuid.UUID, sink string) ([]Result, error) {
	rows, err := s.db.Query(`
		SELECT counter, seq, value FROM results
		WHERE graph_id = ? AND sink = ?
		ORDER BY counter ASC, seq ASC`, graphID.String(), sink)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	var out []Result
	for rows.Next() {
		var (
			r   Result
			raw []byte
		)
		if err := rows.Scan(&r.Counter, &r.Seq, &raw); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		var pv structpb.Value
		if err := proto.Unmarshal(raw, &pv); err != nil {
			return nil, fmt.Errorf("decode %s result %d/%d: %w", sink, r.Counter, r.Seq, err)
		}
		r.Value = pv.AsInterface()
		out = append(out, r)
	}
	return out, rows.Err()
}

// Sinks lists the sink names that have results for the graph.
func (s *Store) Sinks(graphID uuid.UUID) ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT sink FROM results WHERE graph_id = ? ORDER BY sink`, graphID.String())
	if err != nil {
		return nil, fmt.Errorf("query sinks: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}

const maxBusyRetries = 5

// retryOnBusy runs fn until it succeeds, fails with a non-busy error or
// maxBusyRetries attempts are used, backing off exponentially in between.
func retryOnBusy(fn func() error) error {
	delay := 10 * time.Millisecond
	var err error
	for attempt := 1; attempt <= maxBusyRetries; attempt++ {
		if err = fn(); !isSQLiteBusy(err) {
			return err
		}
		if attempt < maxBusyRetries {
			opsf("database busy, retry %d/%d in %s", attempt, maxBusyRetries-1, delay)
			time.Sleep(delay)
			delay *= 2
		}
	}
	return errors.Join(errors.New("database busy after retries"), err)
}
