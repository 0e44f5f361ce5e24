package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const (
	// dirMode is applied when the database directory has to be created.
	dirMode = 0750

	// fileMode restricts the database file to the owning user. The
	// exposure document embeds entity identifiers and the audit trail
	// records every change, so the file stays owner-only.
	fileMode = 0600

	// openTimeout bounds the initial connectivity check.
	openTimeout = 5 * time.Second

	// idleRecycle is how long an idle connection may sit in the pool.
	idleRecycle = 30 * time.Minute
)

// DB is the SQLite handle shared by the store and audit repositories.
// It embeds *sql.DB and adds migrations, a health probe, and lifecycle
// management on top.
type DB struct {
	*sql.DB
	path string
}

// Config mirrors the database section of config.yaml.
type Config struct {
	// Path to the SQLite file. Parent directories are created on open.
	Path string

	// WALMode turns on write-ahead logging so reads (state queries,
	// audit listings) proceed while a document save is in flight.
	WALMode bool

	// BusyTimeout in seconds. Writers wait this long for the lock
	// instead of failing with SQLITE_BUSY.
	BusyTimeout int
}

// Open connects to the SQLite database at cfg.Path, creating the file
// and its directory if needed, and verifies the connection before
// returning. Pragmas are applied through the DSN so every pooled
// connection carries them.
func Open(cfg Config) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), dirMode); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	sqlDB, err := sql.Open("sqlite3", dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite allows one writer at a time. A single pooled connection
	// sidesteps lock contention between the document store and the
	// audit drain goroutine entirely.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(idleRecycle)

	db := &DB{DB: sqlDB, path: cfg.Path}

	ctx, cancel := context.WithTimeout(context.Background(), openTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		sqlDB.Close() //nolint:errcheck // already on the error path
		return nil, fmt.Errorf("verifying database connection: %w", err)
	}

	// The ping above forced the file into existence; tighten it now.
	// Chmod on a still-missing file is not worth failing startup over.
	_ = os.Chmod(cfg.Path, fileMode)

	return db, nil
}

// dsn builds the go-sqlite3 connection string. Foreign keys are always
// enforced; WAL and the busy timeout follow the configuration.
func dsn(cfg Config) string {
	params := []string{
		fmt.Sprintf("_busy_timeout=%d", cfg.BusyTimeout*int(time.Second/time.Millisecond)),
		"_foreign_keys=on",
	}
	if cfg.WALMode {
		params = append(params, "_journal_mode=WAL", "_synchronous=NORMAL")
	}
	return "file:" + cfg.Path + "?" + strings.Join(params, "&")
}

// Close releases the connection pool. Safe to call on a zero handle.
func (db *DB) Close() error {
	if db.DB == nil {
		return nil
	}
	if err := db.DB.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

// Path returns the filesystem path the handle was opened with.
func (db *DB) Path() string {
	return db.path
}

// HealthCheck runs a trivial query to confirm the connection is live.
// Used by the startup probe and the health endpoint.
func (db *DB) HealthCheck(ctx context.Context) error {
	var one int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("database probe: %w", err)
	}
	return nil
}

// Stats exposes connection pool statistics for the metrics endpoint.
func (db *DB) Stats() sql.DBStats {
	return db.DB.Stats()
}
