// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/signtutor/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// ErrSessionNotFound is returned for writes against an unknown session id.
var ErrSessionNotFound = errors.New("session not found")

// ErrNoCachedTargets is returned when a module has no stored targets.
var ErrNoCachedTargets = errors.New("no stored targets for module")

// Store wraps SQLite access for sessions, attempts and cached targets.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// Attempts are written from background goroutines.
	db.SetMaxOpenConns(1)
	store := &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			module TEXT NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT,
			attempts INTEGER NOT NULL DEFAULT 0,
			correct INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS attempts (
			id INTEGER PRIMARY KEY,
			session_id TEXT NOT NULL,
			module TEXT NOT NULL,
			target TEXT NOT NULL,
			correct INTEGER NOT NULL,
			recorded_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS targets (
			module TEXT NOT NULL,
			position INTEGER NOT NULL,
			label TEXT NOT NULL,
			hint TEXT NOT NULL,
			asset TEXT NOT NULL,
			PRIMARY KEY (module, position)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at);`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_session ON attempts(session_id);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// StartSession creates a session with a fresh id.
func (s *Store) StartSession(ctx context.Context, moduleID string) (string, error) {
	id := uuid.NewString()
	if err := s.InsertSession(ctx, id, moduleID); err != nil {
		return "", err
	}
	return id, nil
}

// InsertSession creates a session under an id issued elsewhere. Inserting
// an existing id is a no-op.
func (s *Store) InsertSession(ctx context.Context, id, moduleID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO sessions (id, module, started_at) VALUES (?, ?, ?)`,
		id, moduleID, s.now().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// EndSession stamps the end time. Ending an ended session keeps the first stamp.
func (s *Store) EndSession(ctx context.Context, sessionID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET ended_at = COALESCE(ended_at, ?) WHERE id = ?`,
		s.now().Format(time.RFC3339Nano), sessionID)
	if err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return nil
}

// RecordAttempt stores one attempt and bumps the session counters.
func (s *Store) RecordAttempt(ctx context.Context, rec model.AttemptRecord) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	correct := 0
	if rec.IsCorrect {
		correct = 1
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE sessions SET attempts = attempts + 1, correct = correct + ? WHERE id = ?`,
		correct, rec.SessionID)
	if err != nil {
		return fmt.Errorf("failed to update session counters: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, rec.SessionID)
	}

	recordedAt := rec.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = s.now()
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO attempts (session_id, module, target, correct, recorded_at) VALUES (?, ?, ?, ?, ?)`,
		rec.SessionID, rec.ModuleID, rec.TargetLabel, correct, recordedAt.UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("failed to insert attempt: %w", err)
	}
	return tx.Commit()
}

// SaveTargets replaces the stored target list of a module.
func (s *Store) SaveTargets(ctx context.Context, moduleID string, targets []model.Target) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM targets WHERE module = ?`, moduleID); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO targets (module, position, label, hint, asset) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := stmt.Close(); cerr != nil {
			// Best-effort statement close.
			_ = cerr
		}
	}()
	for i, t := range targets {
		if _, err = stmt.ExecContext(ctx, moduleID, i, t.Label, t.Hint, t.DisplayAsset); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetTargets returns the stored targets of a module in order.
func (s *Store) GetTargets(ctx context.Context, moduleID string) ([]model.Target, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT label, hint, asset FROM targets WHERE module = ? ORDER BY position ASC`, moduleID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var targets []model.Target
	for rows.Next() {
		var t model.Target
		if err := rows.Scan(&t.Label, &t.Hint, &t.DisplayAsset); err != nil {
			return nil, err
		}
		t.ID = moduleID + "/" + t.Label
		targets = append(targets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoCachedTargets, moduleID)
	}
	return targets, nil
}

// ListSessions returns session aggregates filtered by stats config, oldest first.
func (s *Store) ListSessions(ctx context.Context, cfg model.StatsConfig) ([]model.SessionAggregate, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if cfg.Module != "" {
		clauses = append(clauses, "module = ?")
		args = append(args, cfg.Module)
	}
	if cfg.Since != nil {
		clauses = append(clauses, "started_at >= ?")
		args = append(args, cfg.Since.UTC().Format(time.RFC3339Nano))
	}
	query := fmt.Sprintf(`SELECT id, module, started_at, ended_at, attempts, correct
		FROM sessions
		WHERE %s
		ORDER BY started_at ASC`, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var sessions []model.SessionAggregate
	for rows.Next() {
		var agg model.SessionAggregate
		var startedAt string
		var endedAt sql.NullString
		if err := rows.Scan(&agg.SessionID, &agg.ModuleID, &startedAt, &endedAt, &agg.Attempts, &agg.Correct); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, startedAt)
		if err != nil {
			return nil, err
		}
		agg.StartedAt = parsed
		if endedAt.Valid {
			ended, err := time.Parse(time.RFC3339Nano, endedAt.String)
			if err != nil {
				return nil, err
			}
			agg.EndedAt = &ended
		}
		sessions = append(sessions, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if cfg.Last > 0 && len(sessions) > cfg.Last {
		sessions = sessions[len(sessions)-cfg.Last:]
	}
	return sessions, nil
}

// ListTargetAggregates aggregates attempts per target across sessions.
func (s *Store) ListTargetAggregates(ctx context.Context, sessionIDs []string) ([]model.TargetAggregate, error) {
	if len(sessionIDs) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(sessionIDs))
	args := make([]any, len(sessionIDs))
	for i, id := range sessionIDs {
		placeholders[i] = "?"
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT target, COUNT(*) AS attempts, SUM(correct) AS correct
		FROM attempts
		WHERE session_id IN (%s)
		GROUP BY target
		ORDER BY target ASC`, strings.Join(placeholders, ","))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.TargetAggregate
	for rows.Next() {
		var agg model.TargetAggregate
		if err := rows.Scan(&agg.Label, &agg.Attempts, &agg.Correct); err != nil {
			return nil, err
		}
		result = append(result, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
