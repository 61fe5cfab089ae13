package stores

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/cloudweave/cloudweave/pkg/engine"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements Store on a local SQLite file.
type SQLiteStore struct {
	db   *sql.DB
	path string
	cfg  Config
}

// Config holds SQLite store configuration.
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewSQLiteStore creates a new SQLite store instance.
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 25
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 5
	}
	if cfg.ConnMaxLifetime == 0 {
		cfg.ConnMaxLifetime = 5 * time.Minute
	}

	return &SQLiteStore{
		path: cfg.Path,
		cfg:  cfg,
	}, nil
}

// Init opens the database connection and enables WAL mode.
func (s *SQLiteStore) Init(ctx context.Context) error {
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_txlock=immediate", s.path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(s.cfg.MaxOpenConns)
	db.SetMaxIdleConns(s.cfg.MaxIdleConns)
	db.SetConnMaxLifetime(s.cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	// Foreign keys are a connection-level setting.
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate runs the embedded schema migrations.
func (s *SQLiteStore) Migrate(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// SaveRun persists a run with its cell records in one transaction.
func (s *SQLiteStore) SaveRun(ctx context.Context, run *Run, cells []CellRecord) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, environment, action, pipeline, started_at, completed_at, succeeded, failed, skipped)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.Environment,
		run.Action,
		run.Pipeline,
		run.StartedAt,
		run.CompletedAt,
		run.Succeeded,
		run.Failed,
		run.Skipped,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for i := range cells {
		c := &cells[i]
		_, err = tx.ExecContext(ctx, `
			INSERT INTO cells (run_id, cloud, module, status, stage, skip_reason, error, output, duration_ms)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			run.ID,
			c.Cloud,
			c.Module,
			c.Status,
			c.Stage,
			c.SkipReason,
			c.Error,
			c.Output,
			c.DurationMS,
		)
		if err != nil {
			return fmt.Errorf("failed to insert cell %s/%s: %w", c.Cloud, c.Module, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// GetRun retrieves a run and its cells by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, []CellRecord, error) {
	run := &Run{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, environment, action, pipeline, started_at, completed_at, succeeded, failed, skipped
		FROM runs
		WHERE id = ?
	`, id).Scan(
		&run.ID,
		&run.Environment,
		&run.Action,
		&run.Pipeline,
		&run.StartedAt,
		&run.CompletedAt,
		&run.Succeeded,
		&run.Failed,
		&run.Skipped,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get run: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, cloud, module, status, stage, skip_reason, error, output, duration_ms
		FROM cells
		WHERE run_id = ?
		ORDER BY id ASC
	`, id)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list cells: %w", err)
	}
	defer rows.Close()

	var cells []CellRecord
	for rows.Next() {
		var c CellRecord
		err := rows.Scan(
			&c.ID,
			&c.RunID,
			&c.Cloud,
			&c.Module,
			&c.Status,
			&c.Stage,
			&c.SkipReason,
			&c.Error,
			&c.Output,
			&c.DurationMS,
		)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to scan cell: %w", err)
		}
		cells = append(cells, c)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating cells: %w", err)
	}

	return run, cells, nil
}

// ListRuns lists runs newest first with pagination.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit, offset int) ([]*Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, environment, action, pipeline, started_at, completed_at, succeeded, failed, skipped
		FROM runs
		ORDER BY started_at DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := []*Run{}
	for rows.Next() {
		run := &Run{}
		err := rows.Scan(
			&run.ID,
			&run.Environment,
			&run.Action,
			&run.Pipeline,
			&run.StartedAt,
			&run.CompletedAt,
			&run.Succeeded,
			&run.Failed,
			&run.Skipped,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return runs, nil
}

// DeleteRun deletes a run and, via cascade, its cells.
func (s *SQLiteStore) DeleteRun(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("run not found: %s", id)
	}
	return nil
}

// PruneRuns deletes all but the newest keep runs and returns how many were
// removed.
func (s *SQLiteStore) PruneRuns(ctx context.Context, keep int) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM runs
		WHERE id NOT IN (
			SELECT id FROM runs ORDER BY started_at DESC LIMIT ?
		)
	`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows, nil
}

// HealthCheck verifies the database connection is healthy.
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}
	return s.db.PingContext(ctx)
}

// RecordSummary converts a run summary into the store's shape and persists
// it.
func (s *SQLiteStore) RecordSummary(ctx context.Context, summary *engine.RunSummary, pipeline bool) error {
	run := &Run{
		ID:          summary.RunID,
		Environment: summary.Environment,
		Action:      string(summary.Action),
		Pipeline:    pipeline,
		StartedAt:   summary.StartedAt,
		CompletedAt: summary.CompletedAt,
		Succeeded:   summary.Succeeded,
		Failed:      summary.Failed,
		Skipped:     summary.Skipped,
	}

	cells := make([]CellRecord, 0, len(summary.Results))
	for i := range summary.Results {
		res := &summary.Results[i]
		c := CellRecord{
			RunID:      summary.RunID,
			Cloud:      res.Cell.Cloud,
			Module:     res.Cell.Module,
			Status:     string(res.Status),
			Stage:      string(res.Stage),
			SkipReason: string(res.SkipReason),
			Output:     res.Output,
			DurationMS: res.Duration.Milliseconds(),
		}
		if res.Err != nil {
			c.Error = res.Err.Error()
		}
		cells = append(cells, c)
	}

	return s.SaveRun(ctx, run, cells)
}
