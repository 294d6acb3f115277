// Package journal records every brew attempt in SQLite so a run can be
// summarised after the machine stops.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"brewz"

	_ "modernc.org/sqlite"
)

// Memory opens a journal that lives only as long as the process.
const Memory = ":memory:"

// timeLayout is fixed width so timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

type Store struct {
	db *sql.DB
}

// Open opens or creates the journal at path. An empty path or Memory keeps
// the journal in memory.
func Open(path string) (*Store, error) {
	if path == "" {
		path = Memory
	}
	db, err := openDB(path)
	if err != nil {
		return nil, fmt.Errorf("open brew journal: %w", err)
	}
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS brews (
	id TEXT PRIMARY KEY,
	beverage TEXT NOT NULL,
	outcome TEXT NOT NULL,
	short_ingredient TEXT NOT NULL DEFAULT '',
	short_required INTEGER NOT NULL DEFAULT 0,
	short_available INTEGER NOT NULL DEFAULT 0,
	error TEXT NOT NULL DEFAULT '',
	started_at TEXT NOT NULL,
	finished_at TEXT NOT NULL
)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize brew journal schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record stores one brew result. Recording the same ID twice overwrites it.
func (s *Store) Record(ctx context.Context, r brewz.BrewResult) error {
	var short brewz.Shortage
	if r.Shortage != nil {
		short = *r.Shortage
	}
	errText := ""
	if r.Err != nil {
		errText = r.Err.Error()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO brews (id, beverage, outcome, short_ingredient, short_required, short_available, error, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		 beverage = excluded.beverage,
		 outcome = excluded.outcome,
		 short_ingredient = excluded.short_ingredient,
		 short_required = excluded.short_required,
		 short_available = excluded.short_available,
		 error = excluded.error,
		 started_at = excluded.started_at,
		 finished_at = excluded.finished_at`,
		r.ID,
		r.Beverage,
		r.Outcome.String(),
		short.Ingredient,
		short.Required,
		short.Available,
		errText,
		formatTime(r.StartedAt),
		formatTime(r.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("record brew %s: %w", r.ID, err)
	}
	return nil
}

// List returns every recorded brew in the order it finished.
func (s *Store) List(ctx context.Context) ([]brewz.BrewResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, beverage, outcome, short_ingredient, short_required, short_available, error, started_at, finished_at
		 FROM brews ORDER BY finished_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("query brews: %w", err)
	}
	defer rows.Close()

	var out []brewz.BrewResult
	for rows.Next() {
		var (
			r                  brewz.BrewResult
			outcome, errText   string
			short              brewz.Shortage
			startedAt, endedAt string
		)
		if err := rows.Scan(&r.ID, &r.Beverage, &outcome, &short.Ingredient, &short.Required,
			&short.Available, &errText, &startedAt, &endedAt); err != nil {
			return nil, fmt.Errorf("scan brew: %w", err)
		}
		r.Outcome = brewz.ParseOutcome(outcome)
		if short.Ingredient != "" {
			r.Shortage = &short
		}
		r.Err = parseError(errText)
		if r.StartedAt, err = parseTime(startedAt); err != nil {
			return nil, err
		}
		if r.FinishedAt, err = parseTime(endedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate brews: %w", err)
	}
	return out, nil
}

// Summary counts recorded brews per outcome.
func (s *Store) Summary(ctx context.Context) (map[brewz.Outcome]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT outcome, COUNT(*) FROM brews GROUP BY outcome`)
	if err != nil {
		return nil, fmt.Errorf("summarize brews: %w", err)
	}
	defer rows.Close()

	out := make(map[brewz.Outcome]int)
	for rows.Next() {
		var (
			outcome string
			n       int
		)
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		out[brewz.ParseOutcome(outcome)] = n
	}
	return out, rows.Err()
}

// openDB opens SQLite with the standard pragmas. In-memory databases are
// per connection, so they are pinned to a single one.
func openDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if path == Memory {
		db.SetMaxOpenConns(1)
		return db, nil
	}
	if _, err := db.Exec(`PRAGMA journal_mode = WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set journal mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	return db, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse brew timestamp %q: %w", s, err)
	}
	return t, nil
}

func parseError(s string) error {
	switch s {
	case "":
		return nil
	case brewz.ErrMachineStopped.Error():
		return brewz.ErrMachineStopped
	default:
		return errors.New(s)
	}
}
