// Package store provides a SQLite-backed registry of named query
// snapshots.
//
// Each entry keeps the JSON snapshot of a query together with its compiled
// text, bind variables and fingerprint, so a stored query can be restored
// into a builder or inspected without recompiling.
//
// # Revisions
//
//   - Saving a changed snapshot under an existing name adds a revision
//   - Saving an identical snapshot again is a no-op (UNIQUE(name, snapshot_hash))
//   - Load returns the latest revision; LoadRevision a specific one
//
// # Deterministic Results
//
//   - List orders by name COLLATE BINARY
//   - History orders by revision ASC
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - user_version: schema migrations
//
// Snapshot hashes and query fingerprints are computed by package ir using
// canonical JSON and SHA-256 with domain separation.
package store
