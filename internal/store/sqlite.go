package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"fic-go/internal/fic"
	"fic-go/internal/store/migrations"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore keeps the baseline as rows of a SQLite table and records the
// history of runs next to it.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

var (
	_ fic.SnapshotStore = (*SQLiteStore)(nil)
	_ fic.RunRecorder   = (*SQLiteStore)(nil)
	_ fic.LocalStore    = (*SQLiteStore)(nil)
)

// NewSQLiteStore opens (creating if needed) the database at path and brings
// its schema up to date. path can be ":memory:" for an in-memory database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	if err := migrations.CheckStatus(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("checking database schema: %w", err)
	}

	return &SQLiteStore{db: db, path: path}, nil
}

// OpenConnection opens and configures a SQLite database connection.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// LocalPath returns the absolute database location, or "" for an
// in-memory database.
func (s *SQLiteStore) LocalPath() string {
	if s.path == ":memory:" {
		return ""
	}
	abs, err := filepath.Abs(s.path)
	if err != nil {
		return s.path
	}
	return abs
}

// Load reads every baseline row. An empty table is an empty baseline.
func (s *SQLiteStore) Load() (fic.Snapshot, error) {
	ctx := context.Background()

	rows, err := s.db.QueryContext(ctx, "SELECT path, fingerprint FROM baseline_entries")
	if err != nil {
		return nil, fmt.Errorf("querying baseline: %w", err)
	}
	defer rows.Close()

	snap := fic.NewSnapshot()
	for rows.Next() {
		var p, h string
		if err := rows.Scan(&p, &h); err != nil {
			return nil, fmt.Errorf("%w: scanning baseline row: %w", fic.ErrCorrupt, err)
		}
		fp, err := fic.ParseFingerprint(h)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %q: %w", fic.ErrCorrupt, p, err)
		}
		snap[p] = fp
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading baseline rows: %w", err)
	}
	return snap, nil
}

// Save replaces all baseline rows with snap in a single transaction.
func (s *SQLiteStore) Save(snap fic.Snapshot) error {
	if err := s.replaceBaseline(context.Background(), snap); err != nil {
		return fmt.Errorf("%w: %w", fic.ErrWriteFailed, err)
	}
	return nil
}

func (s *SQLiteStore) replaceBaseline(ctx context.Context, snap fic.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM baseline_entries"); err != nil {
		return fmt.Errorf("clearing baseline: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO baseline_entries (path, fingerprint) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range snap.Paths() {
		if _, err := stmt.ExecContext(ctx, p, snap[p].String()); err != nil {
			return fmt.Errorf("inserting %q: %w", p, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing baseline: %w", err)
	}
	return nil
}

// RecordRun inserts run or updates the row with the same ID.
func (s *SQLiteStore) RecordRun(run *fic.Run) error {
	_, err := s.db.ExecContext(context.Background(), `
		INSERT INTO runs (id, mode, root, started_at, finished_at, status, files, skipped, modified, deleted, added)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			finished_at = excluded.finished_at,
			status      = excluded.status,
			files       = excluded.files,
			skipped     = excluded.skipped,
			modified    = excluded.modified,
			deleted     = excluded.deleted,
			added       = excluded.added`,
		run.ID, run.Mode, run.Root, run.StartedAt.UTC(), nullTimeUTC(run.FinishedAt), run.Status,
		run.Files, run.Skipped, run.Modified, run.Deleted, run.Added,
	)
	if err != nil {
		return fmt.Errorf("recording run %s: %w", run.ID, err)
	}
	return nil
}

// ListRuns returns up to limit runs, newest first. limit <= 0 means all.
func (s *SQLiteStore) ListRuns(limit int) ([]*fic.Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(context.Background(), `
		SELECT id, mode, root, started_at, finished_at, status, files, skipped, modified, deleted, added
		FROM runs
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []*fic.Run
	for rows.Next() {
		var r fic.Run
		if err := rows.Scan(&r.ID, &r.Mode, &r.Root, &r.StartedAt, &r.FinishedAt, &r.Status,
			&r.Files, &r.Skipped, &r.Modified, &r.Deleted, &r.Added); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading runs: %w", err)
	}
	return runs, nil
}

func nullTimeUTC(t sql.NullTime) sql.NullTime {
	if t.Valid {
		t.Time = t.Time.UTC()
	}
	return t
}
