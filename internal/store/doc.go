// Package store provides SQLite-backed storage for the catalog's versioned
// entities.
//
// The store is insert-only for everything except the entity header:
//   - Revisions: who changed what, with parent links forming a DAG
//   - Versioned sets: alias, identifier, relationship, language and
//     publisher sets, shared by reference across entity data rows
//   - Entity data: one immutable row per (entity, revision) that changed it
//   - Redirects: source bbid merged into target bbid
//
// Only entity.master_revision_id and entity.data_id are ever updated, and
// only inside a Tx. A data row may be rewritten while the Tx that created it
// is still open; after commit it is immutable.
//
// # Deterministic Reads
//
// Set members are returned ORDER BY id ASC. Publisher bbids and language ids
// are returned in ascending order. Revision history is newest first.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// The pool holds one connection. Every read made while a Tx is open must go
// through that Tx.
package store
