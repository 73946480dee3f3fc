package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/opd-ai/avscramble/key"
)

// DefaultPath is the database file used when none is configured.
const DefaultPath = "avscramble.db"

// Session outcomes.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// ErrNotFound is returned when a session id does not exist.
var ErrNotFound = errors.New("session not found")

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	kind        TEXT NOT NULL,
	key_offset  INTEGER NOT NULL,
	key_step    INTEGER NOT NULL,
	key_source  TEXT NOT NULL,
	input       TEXT NOT NULL DEFAULT '',
	started_at  INTEGER NOT NULL,
	finished_at INTEGER NOT NULL,
	frames      INTEGER NOT NULL DEFAULT 0,
	status      TEXT NOT NULL,
	error       TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS artifacts (
	session_id INTEGER NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	role       TEXT NOT NULL,
	path       TEXT NOT NULL,
	size       INTEGER NOT NULL,
	digest     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_started ON sessions(started_at);
CREATE INDEX IF NOT EXISTS idx_artifacts_session ON artifacts(session_id);
`

// Session is one recorded run.
type Session struct {
	ID        int64
	Kind      string
	Key       key.Key
	KeySource string
	Input     string
	Started   time.Time
	Finished  time.Time
	Frames    int
	Status    string
	Error     string
	Artifacts []Artifact
}

// Duration returns how long the session ran.
func (s *Session) Duration() time.Duration {
	return s.Finished.Sub(s.Started)
}

// Store is a session history database. It is safe for concurrent use.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger %s: %w", path, err)
	}
	// A single connection serializes writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize ledger %s: %w", path, err)
	}

	logrus.WithFields(logrus.Fields{
		"function": "Open",
		"path":     path,
	}).Info("Ledger opened")

	return &Store{db: db, path: path}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores a session and its artifacts and returns the new id. A zero
// Finished time is stamped with the current time and an empty Status
// defaults to StatusOK.
func (s *Store) Record(ctx context.Context, sess *Session) (int64, error) {
	if sess.Finished.IsZero() {
		sess.Finished = time.Now()
	}
	if sess.Started.IsZero() {
		sess.Started = sess.Finished
	}
	if sess.Status == "" {
		sess.Status = StatusOK
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("record session: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO sessions (kind, key_offset, key_step, key_source, input,
			started_at, finished_at, frames, status, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.Kind, sess.Key.Offset, sess.Key.Step, sess.KeySource, sess.Input,
		sess.Started.UnixNano(), sess.Finished.UnixNano(), sess.Frames, sess.Status, sess.Error)
	if err != nil {
		return 0, fmt.Errorf("record session: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("record session: %w", err)
	}

	for _, a := range sess.Artifacts {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO artifacts (session_id, role, path, size, digest)
			VALUES (?, ?, ?, ?, ?)`,
			id, a.Role, a.Path, a.Size, a.Digest); err != nil {
			return 0, fmt.Errorf("record artifact %s: %w", a.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("record session: %w", err)
	}
	sess.ID = id

	logrus.WithFields(logrus.Fields{
		"function":  "Store.Record",
		"id":        id,
		"kind":      sess.Kind,
		"key":       sess.Key.String(),
		"artifacts": len(sess.Artifacts),
		"status":    sess.Status,
	}).Info("Session recorded")

	return id, nil
}

// Sessions returns up to limit sessions, newest first, with their
// artifacts. A limit of zero or less returns every session.
func (s *Store) Sessions(ctx context.Context, limit int) ([]*Session, error) {
	query := `SELECT id, kind, key_offset, key_step, key_source, input,
		started_at, finished_at, frames, status, error
		FROM sessions ORDER BY started_at DESC, id DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("list sessions: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	rows.Close()

	for _, sess := range sessions {
		if sess.Artifacts, err = s.artifacts(ctx, sess.ID); err != nil {
			return nil, err
		}
	}
	return sessions, nil
}

// Session returns one session by id.
func (s *Store) Session(ctx context.Context, id int64) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, kind, key_offset, key_step,
		key_source, input, started_at, finished_at, frames, status, error
		FROM sessions WHERE id = ?`, id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load session %d: %w", id, err)
	}
	if sess.Artifacts, err = s.artifacts(ctx, id); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *Store) artifacts(ctx context.Context, id int64) ([]Artifact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT role, path, size, digest FROM artifacts WHERE session_id = ? ORDER BY rowid`, id)
	if err != nil {
		return nil, fmt.Errorf("load artifacts of session %d: %w", id, err)
	}
	defer rows.Close()

	var artifacts []Artifact
	for rows.Next() {
		var a Artifact
		if err := rows.Scan(&a.Role, &a.Path, &a.Size, &a.Digest); err != nil {
			return nil, fmt.Errorf("load artifacts of session %d: %w", id, err)
		}
		artifacts = append(artifacts, a)
	}
	return artifacts, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*Session, error) {
	var (
		sess              Session
		started, finished int64
	)
	err := row.Scan(&sess.ID, &sess.Kind, &sess.Key.Offset, &sess.Key.Step,
		&sess.KeySource, &sess.Input, &started, &finished, &sess.Frames,
		&sess.Status, &sess.Error)
	if err != nil {
		return nil, err
	}
	sess.Started = time.Unix(0, started)
	sess.Finished = time.Unix(0, finished)
	return &sess, nil
}
