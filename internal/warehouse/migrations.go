package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Migration represents a single schema migration step
type Migration struct {
	Version     int
	Description string
	Up          func(ctx context.Context, tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations. Append new migrations to the end
// with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "observations and forecasts",
		Up: func(ctx context.Context, tx *sql.Tx) error {
			stmts := []string{
				`CREATE TABLE IF NOT EXISTS observations (
    dteday VARCHAR(10) NOT NULL,
    site_id VARCHAR(64) NOT NULL,
    cnt INTEGER NOT NULL,
    season DOUBLE PRECISION,
    holiday DOUBLE PRECISION,
    weekday DOUBLE PRECISION,
    workingday DOUBLE PRECISION,
    PRIMARY KEY (site_id, dteday)
)`,
				`CREATE TABLE IF NOT EXISTS forecasts (
    dteday VARCHAR(10) NOT NULL,
    site_id VARCHAR(64) NOT NULL,
    forecast INTEGER NOT NULL,
    forecast_average DOUBLE PRECISION,
    created_at VARCHAR(32) NOT NULL
)`,
			}
			for _, s := range stmts {
				if _, err := tx.ExecContext(ctx, s); err != nil {
					return err
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "forecast lookup index",
		Up: func(ctx context.Context, tx *sql.Tx) error {
			_, err := tx.ExecContext(ctx, `CREATE INDEX idx_forecasts_site_day ON forecasts (site_id, dteday)`)
			return err
		},
	},
}

func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}

func (w *Warehouse) schemaVersion(ctx context.Context) (int, error) {
	var version sql.NullInt64
	if err := w.db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_migrations`).Scan(&version); err != nil {
		return 0, fmt.Errorf("unable to read schema version, %w", err)
	}
	return int(version.Int64), nil
}

// migrate brings the database schema up to the latest version. Applied versions are recorded
// in the schema_migrations table.
func (w *Warehouse) migrate(ctx context.Context) error {
	if _, err := w.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
    version INTEGER PRIMARY KEY,
    description VARCHAR(255) NOT NULL,
    applied_at VARCHAR(32) NOT NULL
)`); err != nil {
		return fmt.Errorf("unable to create schema_migrations, %w", err)
	}

	current, err := w.schemaVersion(ctx)
	if err != nil {
		return err
	}
	if current >= latestVersion() {
		return nil
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		slog.Info("applying migration", "version", m.Version, "description", m.Description)

		tx, err := w.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("unable to begin migration %d, %w", m.Version, err)
		}
		if err := m.Up(ctx, tx); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s), %w", m.Version, m.Description, err)
		}
		if _, err := tx.ExecContext(ctx,
			w.rebind(`INSERT INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)`),
			m.Version, m.Description, time.Now().UTC().Format(time.RFC3339),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("unable to record migration %d, %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("unable to commit migration %d, %w", m.Version, err)
		}
	}
	return nil
}
