package history

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

const (
	bufferSize    = 256
	batchSize     = 50
	flushInterval = 500 * time.Millisecond
)

// SQLiteStore implements Store with buffered writes of invocations, and
// synchronous writes of markers (markers are low-volume and the hook
// subsystem wants to know immediately whether the write succeeded).
type SQLiteStore struct {
	db      *sql.DB
	logger  *slog.Logger
	writeCh chan *Invocation
	wg      sync.WaitGroup
}

// NewSQLiteStore opens (or creates) the project's prune-history.db and
// starts the background invocation-write consumer.
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	s := &SQLiteStore{
		db:      db,
		logger:  logger,
		writeCh: make(chan *Invocation, bufferSize),
	}

	s.wg.Add(1)
	go s.consumeWrites()

	return s, nil
}

// RecordInvocation enqueues an invocation for async persistence.
func (s *SQLiteStore) RecordInvocation(_ context.Context, inv *Invocation) error {
	select {
	case s.writeCh <- inv:
		return nil
	default:
		s.logger.Warn("write buffer full, dropping invocation record", "session_id", inv.SessionID)
		return nil
	}
}

func (s *SQLiteStore) consumeWrites() {
	defer s.wg.Done()

	batch := make([]*Invocation, 0, batchSize)
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	for {
		select {
		case inv, ok := <-s.writeCh:
			if !ok {
				if len(batch) > 0 {
					s.flushBatch(batch)
				}
				return
			}
			batch = append(batch, inv)
			if len(batch) >= batchSize {
				s.flushBatch(batch)
				batch = batch[:0]
			}

		case <-ticker.C:
			if len(batch) > 0 {
				s.flushBatch(batch)
				batch = batch[:0]
			}
		}
	}
}

func (s *SQLiteStore) flushBatch(batch []*Invocation) {
	tx, err := s.db.Begin()
	if err != nil {
		s.logger.Error("begin tx", "error", err)
		return
	}

	stmt, err := tx.Prepare(`
		INSERT INTO invocations (session_id, mode, timestamp, lines_before, lines_after, bytes_before, bytes_after, kept, dropped, boundary_description)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		s.logger.Error("prepare insert", "error", err)
		return
	}
	defer stmt.Close()

	for _, inv := range batch {
		_, err := stmt.Exec(
			inv.SessionID,
			string(inv.Mode),
			inv.Timestamp.Format(time.RFC3339Nano),
			inv.LinesBefore,
			inv.LinesAfter,
			inv.BytesBefore,
			inv.BytesAfter,
			inv.Kept,
			inv.Dropped,
			nilIfEmpty(inv.BoundaryDescription),
		)
		if err != nil {
			s.logger.Error("insert invocation", "error", err, "session_id", inv.SessionID)
		}
	}

	if err := tx.Commit(); err != nil {
		s.logger.Error("commit batch", "error", err)
	}
}

// RecentInvocations returns recent invocations for a session, most recent first.
func (s *SQLiteStore) RecentInvocations(_ context.Context, sessionID string, limit int) ([]Invocation, error) {
	if limit <= 0 {
		limit = 50
	}

	query := "SELECT id, session_id, mode, timestamp, lines_before, lines_after, bytes_before, bytes_after, kept, dropped, boundary_description FROM invocations"
	args := []any{}
	if sessionID != "" {
		query += " WHERE session_id = ?"
		args = append(args, sessionID)
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query invocations: %w", err)
	}
	defer rows.Close()

	var out []Invocation
	for rows.Next() {
		inv, err := scanInvocation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invocation: %w", err)
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// Stats computes aggregate statistics across the project's full history.
func (s *SQLiteStore) Stats(_ context.Context) (*Stats, error) {
	st := &Stats{}

	var totalBefore, totalAfter sql.NullInt64
	err := s.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(bytes_before), 0), COALESCE(SUM(bytes_after), 0)
		FROM invocations
	`).Scan(&st.TotalPrunes, &totalBefore, &totalAfter)
	if err != nil {
		return nil, fmt.Errorf("stats totals: %w", err)
	}

	st.TotalBytesReclaimed = totalBefore.Int64 - totalAfter.Int64
	if st.TotalPrunes > 0 && totalBefore.Int64 > 0 {
		st.AverageRetentionPercent = 100 * float64(totalAfter.Int64) / float64(totalBefore.Int64)
	}

	return st, nil
}

// RecordMarker persists a boundary marker. Unlike invocations this is
// synchronous: the hook subsystem needs to know the write landed before it
// reports success to the caller.
func (s *SQLiteStore) RecordMarker(_ context.Context, m *MarkerRecord) error {
	_, err := s.db.Exec(
		"INSERT INTO markers (session_id, timestamp, intent, consumed) VALUES (?, ?, ?, 0)",
		m.SessionID,
		m.Timestamp.Format(time.RFC3339Nano),
		nilIfEmpty(m.Intent),
	)
	if err != nil {
		return fmt.Errorf("record marker: %w", err)
	}
	return nil
}

// PendingMarkers returns unconsumed boundary markers, most recent first.
func (s *SQLiteStore) PendingMarkers(_ context.Context) ([]MarkerRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, session_id, timestamp, intent, consumed FROM markers
		WHERE consumed = 0 ORDER BY id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query markers: %w", err)
	}
	defer rows.Close()

	var out []MarkerRecord
	for rows.Next() {
		m, err := scanMarker(rows)
		if err != nil {
			return nil, fmt.Errorf("scan marker: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// MarkConsumed flags a session's markers timestamped at or before upTo as
// consumed, once a prune has cut past them.
func (s *SQLiteStore) MarkConsumed(_ context.Context, sessionID string, upTo time.Time) error {
	_, err := s.db.Exec(
		"UPDATE markers SET consumed = 1 WHERE session_id = ? AND timestamp <= ?",
		sessionID, upTo.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("mark consumed: %w", err)
	}
	return nil
}

// Close flushes pending writes and closes the database.
func (s *SQLiteStore) Close() error {
	close(s.writeCh)
	s.wg.Wait()
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInvocation(sc scanner) (Invocation, error) {
	var inv Invocation
	var mode, ts string
	var desc sql.NullString

	err := sc.Scan(&inv.ID, &inv.SessionID, &mode, &ts, &inv.LinesBefore, &inv.LinesAfter,
		&inv.BytesBefore, &inv.BytesAfter, &inv.Kept, &inv.Dropped, &desc)
	if err != nil {
		return inv, err
	}

	inv.Mode = Mode(mode)
	inv.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
	inv.BoundaryDescription = desc.String
	return inv, nil
}

func scanMarker(sc scanner) (MarkerRecord, error) {
	var m MarkerRecord
	var ts string
	var intent sql.NullString
	var consumed int

	if err := sc.Scan(&m.ID, &m.SessionID, &ts, &intent, &consumed); err != nil {
		return m, err
	}

	m.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
	m.Intent = intent.String
	m.Consumed = consumed != 0
	return m, nil
}

func nilIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
