package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Store persists run history in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure history directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Start records a newly accepted run.
func (s *Store) Start(ctx context.Context, rec Record) error {
	if strings.TrimSpace(rec.RunID) == "" {
		return errors.New("run id required")
	}
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (
            run_id, source_url, format, quality, range_start, range_end,
            state, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID,
		rec.SourceURL,
		rec.Format,
		rec.Quality,
		rec.RangeStart,
		nullableInt(rec.RangeEnd),
		rec.State,
		formatTime(rec.CreatedAt),
		formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// UpdateState records an intermediate state change.
func (s *Store) UpdateState(ctx context.Context, runID, state string) error {
	return s.exec(ctx, "update state",
		`UPDATE runs SET state = ?, updated_at = ? WHERE run_id = ?`,
		state, formatTime(time.Now().UTC()), runID)
}

// Finish records the terminal state of a run.
func (s *Store) Finish(ctx context.Context, runID, state, errorMessage string, outputBytes int64) error {
	now := formatTime(time.Now().UTC())
	return s.exec(ctx, "finish run",
		`UPDATE runs SET state = ?, error_message = ?, output_bytes = ?, updated_at = ?, finished_at = ?
         WHERE run_id = ?`,
		state, nullableString(errorMessage), outputBytes, now, now, runID)
}

// MarkDelivered records that the artifact was streamed to a client.
func (s *Store) MarkDelivered(ctx context.Context, runID string) error {
	now := formatTime(time.Now().UTC())
	return s.exec(ctx, "mark delivered",
		`UPDATE runs SET delivered_at = ?, updated_at = ? WHERE run_id = ?`,
		now, now, runID)
}

// Get fetches a run by ID. A missing run returns nil without error.
func (s *Store) Get(ctx context.Context, runID string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM runs WHERE run_id = ?`, runID)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return rec, nil
}

// List returns the most recent runs, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM runs ORDER BY created_at DESC, run_id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return records, nil
}

// MarkInterrupted closes out runs left unfinished by a previous process.
func (s *Store) MarkInterrupted(ctx context.Context) (int64, error) {
	now := formatTime(time.Now().UTC())
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET state = ?, error_message = ?, updated_at = ?, finished_at = ?
         WHERE finished_at IS NULL`,
		InterruptedState, "process stopped before the run finished", now, now)
	if err != nil {
		return 0, fmt.Errorf("mark interrupted: %w", err)
	}
	return res.RowsAffected()
}

// Prune deletes runs created before cutoff.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE created_at < ?`, formatTime(cutoff.UTC()))
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) exec(ctx context.Context, op, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%s: run not found", op)
	}
	return nil
}
