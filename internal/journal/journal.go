// Package journal persists the engine's observations: refresh passes and
// the state transitions they emitted. SQLite keeps it a single local file
// next to the rest of the tool's state, readable while the engine writes.
package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mtarnawa/bnetlocal/internal/game"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - Initial schema (refreshes, transitions)
const currentSchemaVersion = 1

// Refresh describes one completed refresh pass.
type Refresh struct {
	Token     string
	StartedAt time.Time
	Duration  time.Duration
	Games     int
}

// Transition is one recorded state change.
type Transition struct {
	Seq          int64
	RefreshToken string
	GameID       string
	State        game.State
	RecordedAt   time.Time
}

// Store is the journal database handle.
type Store struct {
	db *sql.DB
}

// Open creates or opens the journal at the given path.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode
//   - 5-second busy timeout for lock contention
//
// Open is idempotent; the schema is applied only where missing.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to journal: %w", err)
	}

	// SQLite supports one writer at a time; a single connection avoids
	// SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the journal.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("journal schema version %d is newer than this build supports (%d)", version, currentSchemaVersion)
	}
	// Incremental migrations slot in here as the schema grows.
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// RecordRefresh writes one refresh pass. Re-recording the same token is a
// no-op.
func (s *Store) RecordRefresh(ctx context.Context, r Refresh) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refreshes (token, started_at, duration_ms, games)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(token) DO NOTHING
	`,
		r.Token,
		r.StartedAt.UnixMilli(),
		r.Duration.Milliseconds(),
		r.Games,
	)
	if err != nil {
		return fmt.Errorf("record refresh: %w", err)
	}
	return nil
}

// RecordTransition writes one state transition. The sequence number is the
// primary key, so writing the same transition twice is a no-op.
func (s *Store) RecordTransition(ctx context.Context, tr Transition) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transitions (seq, refresh_token, game_id, state, recorded_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(seq) DO NOTHING
	`,
		tr.Seq,
		tr.RefreshToken,
		tr.GameID,
		int64(tr.State),
		tr.RecordedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("record transition: %w", err)
	}
	return nil
}

// RecentTransitions returns up to limit transitions, newest first.
func (s *Store) RecentTransitions(ctx context.Context, limit int) ([]Transition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, refresh_token, game_id, state, recorded_at
		FROM transitions
		ORDER BY seq DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("read transitions: %w", err)
	}
	defer rows.Close()
	return scanTransitions(rows)
}

// GameTransitions returns up to limit transitions for one game, newest
// first.
func (s *Store) GameTransitions(ctx context.Context, gameID string, limit int) ([]Transition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, refresh_token, game_id, state, recorded_at
		FROM transitions
		WHERE game_id = ?
		ORDER BY seq DESC
		LIMIT ?
	`, gameID, limit)
	if err != nil {
		return nil, fmt.Errorf("read transitions for %s: %w", gameID, err)
	}
	defer rows.Close()
	return scanTransitions(rows)
}

// Refreshes returns up to limit refresh passes, newest first.
func (s *Store) Refreshes(ctx context.Context, limit int) ([]Refresh, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT token, started_at, duration_ms, games
		FROM refreshes
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("read refreshes: %w", err)
	}
	defer rows.Close()

	var out []Refresh
	for rows.Next() {
		var r Refresh
		var startedAt, durationMS int64
		if err := rows.Scan(&r.Token, &startedAt, &durationMS, &r.Games); err != nil {
			return nil, fmt.Errorf("scan refresh: %w", err)
		}
		r.StartedAt = time.UnixMilli(startedAt)
		r.Duration = time.Duration(durationMS) * time.Millisecond
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read refreshes: %w", err)
	}
	return out, nil
}

func scanTransitions(rows *sql.Rows) ([]Transition, error) {
	var out []Transition
	for rows.Next() {
		var tr Transition
		var state, recordedAt int64
		if err := rows.Scan(&tr.Seq, &tr.RefreshToken, &tr.GameID, &state, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		tr.State = game.State(state)
		tr.RecordedAt = time.UnixMilli(recordedAt)
		out = append(out, tr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read transitions: %w", err)
	}
	return out, nil
}
