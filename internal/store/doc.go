// Package store owns the persisted voice-assistant configuration
// document and serialises every mutation against it.
//
// # Architecture
//
//	┌──────────────┐     mutate(fn)      ┌──────────────┐
//	│  API / bulk  │ ──────────────────> │    Store     │
//	│  operations  │ <── snapshots ───── │  (one mutex) │
//	└──────────────┘                     └──────┬───────┘
//	                                            │ persist before publish
//	                                            ▼
//	                                     ┌──────────────┐
//	                                     │  Repository  │
//	                                     │   (SQLite)   │
//	                                     └──────────────┘
//
// The document is a single row keyed by a fixed storage key. The Store
// keeps one in-memory copy and treats every operation as a logical
// read-modify-write: deep-copy, mutate the copy, persist, then swap the
// copy in. The mutex is held across the whole sequence, so concurrent
// commands cannot interleave and lose updates, and a persistence
// failure leaves the in-memory document untouched for retry.
//
// # Snapshot isolation
//
// State returns a deep copy; callers can never reach the live document
// through a returned reference. Mutations likewise work on a copy, so a
// validation or storage failure part-way through a batch never leaves a
// half-applied document visible.
//
// # Schema versions
//
// Documents are stored in a versioned envelope. Version 1 is the legacy
// flat layout (exclusion lists plus aliases); it is upgraded to the
// current structured layout on first load and persisted immediately.
// Unknown versions are rejected rather than guessed at.
//
// # Usage
//
//	repo := store.NewSQLiteRepository(db)
//	st, err := store.New(store.Deps{Repository: repo, Logger: logger})
//	if err != nil {
//	    return err
//	}
//	if err := st.Load(ctx); err != nil {
//	    return err
//	}
//
//	err = st.SetMode(ctx, exposure.ModeSeparate)
//	snapshot, err := st.State(ctx)
package store
