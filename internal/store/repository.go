package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// documentKey identifies the single configuration document row. The
// table supports multiple keys, but this service owns exactly one.
const documentKey = "voice_assistant_config"

// Envelope is the persisted form of the configuration document: the raw
// JSON payload plus the schema version needed to interpret it.
type Envelope struct {
	SchemaVersion int
	Document      json.RawMessage
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Repository defines the persistence contract for the configuration
// document. Implementations must be safe for concurrent use.
type Repository interface {
	// Load returns the stored envelope, or ErrNotFound when no document
	// has been persisted yet.
	Load(ctx context.Context) (*Envelope, error)

	// Save upserts the document under the given schema version.
	Save(ctx context.Context, schemaVersion int, document []byte) error
}

// SQLiteRepository persists the configuration document in the
// config_documents table as a versioned JSON envelope.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed document repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Load reads the document envelope.
func (r *SQLiteRepository) Load(ctx context.Context) (*Envelope, error) {
	var env Envelope
	var createdAt, updatedAt string
	var document string

	err := r.db.QueryRowContext(ctx,
		`SELECT schema_version, document, created_at, updated_at
		 FROM config_documents WHERE key = ?`,
		documentKey,
	).Scan(&env.SchemaVersion, &document, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading document: %w", err)
	}

	env.Document = json.RawMessage(document)

	// Timestamp format is controlled by Save, parse failures mean a
	// corrupted row and should surface.
	if env.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at %q: %w", createdAt, err)
	}
	if env.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return nil, fmt.Errorf("parsing updated_at %q: %w", updatedAt, err)
	}

	return &env, nil
}

// Save upserts the document envelope, preserving created_at on update.
func (r *SQLiteRepository) Save(ctx context.Context, schemaVersion int, document []byte) error {
	now := time.Now().UTC().Format(time.RFC3339)

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO config_documents (key, schema_version, document, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
		     schema_version = excluded.schema_version,
		     document = excluded.document,
		     updated_at = excluded.updated_at`,
		documentKey, schemaVersion, string(document), now, now,
	)
	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}

	return nil
}
