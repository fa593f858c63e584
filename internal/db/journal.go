package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/tablecal/internal/grbl"
)

// Session is one connection to a controller.
type Session struct {
	ID        string
	Port      string
	StartedAt time.Time
	EndedAt   *time.Time
	Exchanges int
	Failures  int
}

// Journal records the exchanges of one session. It implements grbl.Journal.
type Journal struct {
	db *DB
	id string
}

var _ grbl.Journal = (*Journal)(nil)

// StartSession opens a new session for the controller on port.
func (db *DB) StartSession(port string) (*Journal, error) {
	id := uuid.NewString()
	_, err := db.Exec(
		`INSERT INTO sessions (session_id, port, started_unix_nanos) VALUES (?, ?, ?)`,
		id, port, db.clock.Now().UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}
	return &Journal{db: db, id: id}, nil
}

// ID returns the session identifier.
func (j *Journal) ID() string { return j.id }

// RecordExchange implements grbl.Journal.
func (j *Journal) RecordExchange(ex grbl.Exchange) error {
	_, err := j.db.Exec(
		`INSERT INTO exchanges (
			session_id, seq, command, expected, reply, ok, error,
			sent_unix_nanos, elapsed_nanos
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.id, ex.Seq, ex.Command, ex.Expected, ex.Reply, ex.OK, ex.Error,
		ex.SentAt.UnixNano(), int64(ex.Elapsed),
	)
	if err != nil {
		return fmt.Errorf("failed to record exchange %d: %w", ex.Seq, err)
	}
	return nil
}

// End marks the session finished.
func (j *Journal) End() error {
	_, err := j.db.Exec(
		`UPDATE sessions SET ended_unix_nanos = ? WHERE session_id = ?`,
		j.db.clock.Now().UnixNano(), j.id,
	)
	if err != nil {
		return fmt.Errorf("failed to end session %s: %w", j.id, err)
	}
	return nil
}

// Exchanges returns the exchanges of a session in sequence order.
func (db *DB) Exchanges(sessionID string) ([]grbl.Exchange, error) {
	rows, err := db.Query(
		`SELECT seq, command, expected, reply, ok, error, sent_unix_nanos, elapsed_nanos
		FROM exchanges WHERE session_id = ? ORDER BY seq`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []grbl.Exchange
	for rows.Next() {
		var (
			ex      grbl.Exchange
			sent    int64
			elapsed int64
		)
		if err := rows.Scan(&ex.Seq, &ex.Command, &ex.Expected, &ex.Reply, &ex.OK, &ex.Error, &sent, &elapsed); err != nil {
			return nil, err
		}
		ex.SentAt = time.Unix(0, sent).UTC()
		ex.Elapsed = time.Duration(elapsed)
		out = append(out, ex)
	}
	return out, rows.Err()
}

// Sessions returns the most recent sessions first, with exchange counts.
func (db *DB) Sessions(limit int) ([]Session, error) {
	rows, err := db.Query(
		`SELECT s.session_id, s.port, s.started_unix_nanos, s.ended_unix_nanos,
			COUNT(e.seq), COALESCE(SUM(CASE WHEN e.ok = 0 THEN 1 ELSE 0 END), 0)
		FROM sessions s LEFT JOIN exchanges e ON e.session_id = s.session_id
		GROUP BY s.session_id
		ORDER BY s.started_unix_nanos DESC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var (
			s       Session
			started int64
			ended   sql.NullInt64
		)
		if err := rows.Scan(&s.ID, &s.Port, &started, &ended, &s.Exchanges, &s.Failures); err != nil {
			return nil, err
		}
		s.StartedAt = time.Unix(0, started).UTC()
		if ended.Valid {
			t := time.Unix(0, ended.Int64).UTC()
			s.EndedAt = &t
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
