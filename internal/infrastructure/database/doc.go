// Package database opens and maintains the SQLite file backing
// VoiceBridge. Two things live in it: the versioned exposure document
// written by the store, and the audit trail of configuration changes.
//
// The pool is pinned to a single connection because SQLite permits one
// writer at a time; with WAL mode on, readers still proceed while the
// store commits. Foreign keys are enforced on every connection via the
// DSN.
//
// Schema migrations are embedded .sql files registered by the
// migrations package:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//		return err
//	}
//	defer db.Close()
//	if err := db.Migrate(ctx); err != nil {
//		return err
//	}
//
// Each script runs in its own transaction and is recorded in the
// schema_migrations ledger, so an interrupted upgrade resumes cleanly
// on the next start. Scripts are additive only: new columns arrive
// nullable or with defaults, and nothing is dropped or renamed, so a
// rolled-back binary still reads the newer file.
package database
