package database

import (
	"context"
	"embed"
	"strings"
	"testing"
)

//go:embed testdata
var testMigrationsFS embed.FS

// useMigrations points the package at a fixture directory for the
// duration of one test.
func useMigrations(t *testing.T, dir string) {
	t.Helper()

	origFS, origDir := MigrationsFS, MigrationsDir
	t.Cleanup(func() {
		MigrationsFS = origFS
		MigrationsDir = origDir
	})
	MigrationsFS = testMigrationsFS
	MigrationsDir = dir
}

func ledgerVersions(t *testing.T, db *DB) []string {
	t.Helper()

	rows, err := db.QueryContext(context.Background(),
		"SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		t.Fatalf("querying ledger: %v", err)
	}
	defer rows.Close()

	var versions []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			t.Fatalf("scanning ledger: %v", err)
		}
		versions = append(versions, v)
	}
	return versions
}

func TestMigrate(t *testing.T) {
	useMigrations(t, "testdata")
	db := newTestDB(t, true)
	ctx := context.Background()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	var name string
	err := db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='table' AND name='test_notes'",
	).Scan(&name)
	if err != nil {
		t.Fatalf("test_notes table not created: %v", err)
	}

	got := ledgerVersions(t, db)
	want := []string{"20260815_090000", "20260816_100000"}
	if len(got) != len(want) {
		t.Fatalf("ledger = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ledger[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	pending, err := db.PendingCount(ctx)
	if err != nil {
		t.Fatalf("PendingCount() error = %v", err)
	}
	if pending != 0 {
		t.Errorf("PendingCount() = %d, want 0", pending)
	}

	// Second run finds nothing to do.
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("repeat Migrate() error = %v", err)
	}
	if got := ledgerVersions(t, db); len(got) != 2 {
		t.Errorf("ledger grew on repeat run: %v", got)
	}
}

func TestMigrateDown(t *testing.T) {
	useMigrations(t, "testdata")
	db := newTestDB(t, true)
	ctx := context.Background()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	// Only the newest version is reverted; the index goes, the table stays.
	if err := db.MigrateDown(ctx); err != nil {
		t.Fatalf("MigrateDown() error = %v", err)
	}

	var indexes int
	if err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name='idx_test_notes_body'",
	).Scan(&indexes); err != nil {
		t.Fatalf("query error: %v", err)
	}
	if indexes != 0 {
		t.Error("index survived rollback")
	}

	var tables int
	if err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='test_notes'",
	).Scan(&tables); err != nil {
		t.Fatalf("query error: %v", err)
	}
	if tables != 1 {
		t.Error("older migration was reverted along with the newest")
	}

	got := ledgerVersions(t, db)
	if len(got) != 1 || got[0] != "20260815_090000" {
		t.Errorf("ledger after rollback = %v, want [20260815_090000]", got)
	}

	// Rolling back twice more drains the ledger, then becomes a no-op.
	if err := db.MigrateDown(ctx); err != nil {
		t.Fatalf("second MigrateDown() error = %v", err)
	}
	if err := db.MigrateDown(ctx); err != nil {
		t.Fatalf("MigrateDown() on empty ledger error = %v", err)
	}
}

func TestMigrateStopsAtFailure(t *testing.T) {
	useMigrations(t, "testdata/broken")
	db := newTestDB(t, true)
	ctx := context.Background()

	err := db.Migrate(ctx)
	if err == nil {
		t.Fatal("Migrate() succeeded, want failure from bad script")
	}
	if !strings.Contains(err.Error(), "20260817_110000") {
		t.Errorf("error does not name the failing version: %v", err)
	}

	// The good script before the bad one stays committed.
	got := ledgerVersions(t, db)
	if len(got) != 1 || got[0] != "20260815_090000" {
		t.Errorf("ledger after failure = %v, want [20260815_090000]", got)
	}
}

func TestMigrateWithoutEmbeddedFS(t *testing.T) {
	origFS := MigrationsFS
	t.Cleanup(func() { MigrationsFS = origFS })
	MigrationsFS = embed.FS{}

	db := newTestDB(t, true)

	if err := db.Migrate(context.Background()); err != nil {
		t.Errorf("Migrate() with no embedded migrations error = %v", err)
	}
}

func TestSplitVersion(t *testing.T) {
	tests := []struct {
		base        string
		wantVersion string
		wantName    string
		wantOK      bool
	}{
		{"20260815_090000_initial_schema", "20260815_090000", "initial_schema", true},
		{"20260816_100000_audit_assistant_index", "20260816_100000", "audit_assistant_index", true},
		{"20260815_090000", "", "", false},
		{"notes", "", "", false},
		{"", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.base, func(t *testing.T) {
			version, name, ok := splitVersion(tt.base)
			if ok != tt.wantOK {
				t.Fatalf("splitVersion(%q) ok = %v, want %v", tt.base, ok, tt.wantOK)
			}
			if version != tt.wantVersion || name != tt.wantName {
				t.Errorf("splitVersion(%q) = (%q, %q), want (%q, %q)",
					tt.base, version, name, tt.wantVersion, tt.wantName)
			}
		})
	}
}
