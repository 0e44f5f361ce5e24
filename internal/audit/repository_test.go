package audit

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// setupTestDB creates an in-memory SQLite database with the audit_logs table.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("opening in-memory sqlite: %v", err)
	}

	schema := `
		CREATE TABLE audit_logs (
			id         TEXT PRIMARY KEY,
			action     TEXT NOT NULL,
			assistant  TEXT,
			source     TEXT NOT NULL,
			details    TEXT,
			created_at TEXT NOT NULL
		);
		CREATE INDEX idx_audit_logs_created_at ON audit_logs(created_at);
		CREATE INDEX idx_audit_logs_action ON audit_logs(action);
		CREATE INDEX idx_audit_logs_assistant ON audit_logs(assistant);
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		t.Fatalf("creating schema: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return db
}

func TestSQLiteRepository_Create(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	t.Run("creates entry with generated id and timestamp", func(t *testing.T) {
		entry := &Entry{
			Action:    "set_mode",
			Source:    "api",
			Details:   map[string]any{"mode": "separate"},
			Assistant: "",
		}

		if err := repo.Create(ctx, entry); err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		if entry.ID == "" {
			t.Error("Create() should generate an ID")
		}
		if entry.CreatedAt.IsZero() {
			t.Error("Create() should set CreatedAt")
		}
	})

	t.Run("preserves provided id", func(t *testing.T) {
		entry := &Entry{
			ID:     "aud-fixed01",
			Action: "toggle_override",
			Source: "api",
		}

		if err := repo.Create(ctx, entry); err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		if entry.ID != "aud-fixed01" {
			t.Errorf("Create() changed ID to %q", entry.ID)
		}
	})
}

func TestSQLiteRepository_List(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	base := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	seed := []*Entry{
		{ID: "aud-1", Action: "set_mode", Source: "api", CreatedAt: base},
		{ID: "aud-2", Action: "bulk_update", Assistant: "google", Source: "api", CreatedAt: base.Add(time.Minute)},
		{ID: "aud-3", Action: "sync_push", Assistant: "homekit", Source: "api", CreatedAt: base.Add(2 * time.Minute)},
		{ID: "aud-4", Action: "bulk_update", Assistant: "alexa", Source: "api", CreatedAt: base.Add(3 * time.Minute)},
	}
	for _, e := range seed {
		if err := repo.Create(ctx, e); err != nil {
			t.Fatalf("seeding entry %s: %v", e.ID, err)
		}
	}

	t.Run("returns all entries newest first", func(t *testing.T) {
		result, err := repo.List(ctx, Filter{})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}

		if result.Total != 4 {
			t.Errorf("Total = %d, want 4", result.Total)
		}
		if len(result.Entries) != 4 {
			t.Fatalf("len(Entries) = %d, want 4", len(result.Entries))
		}
		if result.Entries[0].ID != "aud-4" {
			t.Errorf("first entry = %q, want aud-4 (newest)", result.Entries[0].ID)
		}
	})

	t.Run("filters by action", func(t *testing.T) {
		result, err := repo.List(ctx, Filter{Action: "bulk_update"})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}

		if result.Total != 2 {
			t.Errorf("Total = %d, want 2", result.Total)
		}
		for _, e := range result.Entries {
			if e.Action != "bulk_update" {
				t.Errorf("entry %s has action %q", e.ID, e.Action)
			}
		}
	})

	t.Run("filters by assistant", func(t *testing.T) {
		result, err := repo.List(ctx, Filter{Assistant: "homekit"})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}

		if result.Total != 1 {
			t.Errorf("Total = %d, want 1", result.Total)
		}
		if len(result.Entries) == 1 && result.Entries[0].ID != "aud-3" {
			t.Errorf("entry = %q, want aud-3", result.Entries[0].ID)
		}
	})

	t.Run("paginates", func(t *testing.T) {
		result, err := repo.List(ctx, Filter{Limit: 2, Offset: 2})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}

		if result.Total != 4 {
			t.Errorf("Total = %d, want 4", result.Total)
		}
		if len(result.Entries) != 2 {
			t.Errorf("len(Entries) = %d, want 2", len(result.Entries))
		}
	})

	t.Run("round-trips details", func(t *testing.T) {
		entry := &Entry{
			ID:      "aud-det",
			Action:  "set_alias",
			Source:  "api",
			Details: map[string]any{"entity_id": "light.kitchen", "alias": "Cooker Light"},
		}
		if err := repo.Create(ctx, entry); err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		result, err := repo.List(ctx, Filter{Action: "set_alias"})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(result.Entries) != 1 {
			t.Fatalf("len(Entries) = %d, want 1", len(result.Entries))
		}
		if got := result.Entries[0].Details["entity_id"]; got != "light.kitchen" {
			t.Errorf("Details[entity_id] = %v, want light.kitchen", got)
		}
	})

	t.Run("empty result is an empty slice", func(t *testing.T) {
		result, err := repo.List(ctx, Filter{Action: "nonexistent"})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if result.Entries == nil {
			t.Error("Entries should be an empty slice, not nil")
		}
	})
}
