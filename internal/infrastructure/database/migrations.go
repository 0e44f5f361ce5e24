package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"
)

// MigrationsFS holds the embedded migration scripts. The migrations
// package sets it from an init func so the schema travels inside the
// binary; an unset value means "no migrations" rather than an error,
// which keeps unit tests free to open throwaway databases.
var MigrationsFS embed.FS

// MigrationsDir is the directory inside MigrationsFS holding the
// scripts. "." when they sit at the root of the embedded tree.
var MigrationsDir = "migrations"

// migration pairs the up and down scripts for one schema version.
// Versions come from the filename prefix, YYYYMMDD_HHMMSS, so
// lexicographic order is chronological order.
type migration struct {
	version string
	name    string
	up      string
	down    string
}

// appliedRow is one entry from the schema_migrations ledger.
type appliedRow struct {
	version   string
	appliedAt time.Time
}

// Migrate brings the schema up to date. Each pending script runs in
// its own transaction and is recorded in schema_migrations on commit,
// so a failure leaves earlier versions applied and the failing one
// rolled back; rerunning after a fix resumes from the failure point.
func (db *DB) Migrate(ctx context.Context) error {
	if err := db.ensureLedger(ctx); err != nil {
		return err
	}

	pending, err := db.pendingMigrations(ctx)
	if err != nil {
		return err
	}

	for _, m := range pending {
		if err := db.runMigration(ctx, m); err != nil {
			return fmt.Errorf("applying migration %s (%s): %w", m.version, m.name, err)
		}
	}
	return nil
}

// MigrateDown reverts the newest applied migration. Development and
// test helper; the service never calls it.
func (db *DB) MigrateDown(ctx context.Context) error {
	applied, err := db.appliedMigrations(ctx)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		return nil
	}
	newest := applied[len(applied)-1].version

	all, err := loadMigrations()
	if err != nil {
		return err
	}

	for _, m := range all {
		if m.version != newest {
			continue
		}
		if m.down == "" {
			return fmt.Errorf("migration %s has no down script", newest)
		}
		return db.revertMigration(ctx, m)
	}
	return fmt.Errorf("migration %s not present in embedded filesystem", newest)
}

// PendingCount reports how many migrations have yet to run.
func (db *DB) PendingCount(ctx context.Context) (int, error) {
	pending, err := db.pendingMigrations(ctx)
	if err != nil {
		return 0, err
	}
	return len(pending), nil
}

func (db *DB) ensureLedger(ctx context.Context) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations: %w", err)
	}
	return nil
}

func (db *DB) pendingMigrations(ctx context.Context) ([]migration, error) {
	all, err := loadMigrations()
	if err != nil {
		return nil, fmt.Errorf("loading migrations: %w", err)
	}
	if len(all) == 0 {
		return nil, nil
	}

	applied, err := db.appliedMigrations(ctx)
	if err != nil {
		return nil, err
	}
	done := make(map[string]bool, len(applied))
	for _, row := range applied {
		done[row.version] = true
	}

	var pending []migration
	for _, m := range all {
		if !done[m.version] {
			pending = append(pending, m)
		}
	}
	return pending, nil
}

func (db *DB) appliedMigrations(ctx context.Context) ([]appliedRow, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT version, applied_at FROM schema_migrations ORDER BY version",
	)
	if err != nil {
		return nil, fmt.Errorf("querying schema_migrations: %w", err)
	}
	defer rows.Close()

	var applied []appliedRow
	for rows.Next() {
		var row appliedRow
		var stamp string
		if err := rows.Scan(&row.version, &stamp); err != nil {
			return nil, fmt.Errorf("scanning schema_migrations row: %w", err)
		}
		row.appliedAt, _ = time.Parse(time.RFC3339, stamp)
		applied = append(applied, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading schema_migrations: %w", err)
	}
	return applied, nil
}

func (db *DB) runMigration(ctx context.Context, m migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op once committed

	if _, err := tx.ExecContext(ctx, m.up); err != nil {
		return fmt.Errorf("executing up script: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)",
		m.version, time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("recording version: %w", err)
	}
	return tx.Commit()
}

func (db *DB) revertMigration(ctx context.Context, m migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck // no-op once committed

	if _, err := tx.ExecContext(ctx, m.down); err != nil {
		return fmt.Errorf("executing down script: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM schema_migrations WHERE version = ?", m.version,
	); err != nil {
		return fmt.Errorf("removing version record: %w", err)
	}
	return tx.Commit()
}

// loadMigrations reads every *.up.sql under MigrationsDir and pairs it
// with its *.down.sql when one exists. Files that do not match the
// version-prefixed naming scheme are ignored.
func loadMigrations() ([]migration, error) {
	var unset embed.FS
	if MigrationsFS == unset {
		return nil, nil
	}

	ups, err := fs.Glob(MigrationsFS, path.Join(MigrationsDir, "*.up.sql"))
	if err != nil {
		return nil, err
	}

	var all []migration
	for _, upPath := range ups {
		base := strings.TrimSuffix(path.Base(upPath), ".up.sql")
		version, name, ok := splitVersion(base)
		if !ok {
			continue
		}

		upSQL, err := fs.ReadFile(MigrationsFS, upPath)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", upPath, err)
		}

		m := migration{version: version, name: name, up: string(upSQL)}

		downPath := strings.TrimSuffix(upPath, ".up.sql") + ".down.sql"
		if downSQL, err := fs.ReadFile(MigrationsFS, downPath); err == nil {
			m.down = string(downSQL)
		}
		all = append(all, m)
	}

	sort.Slice(all, func(i, j int) bool { return all[i].version < all[j].version })
	return all, nil
}

// splitVersion separates "20260815_090000_initial_schema" into the
// version stamp and the descriptive name.
func splitVersion(base string) (version, name string, ok bool) {
	parts := strings.SplitN(base, "_", 3)
	if len(parts) < 3 {
		return "", "", false
	}
	return parts[0] + "_" + parts[1], parts[2], true
}
