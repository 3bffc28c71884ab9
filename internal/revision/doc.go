// Package revision implements the catalog's versioning engine.
//
// Every write goes through one storage transaction and produces at most one
// Revision. Within it the engine:
//
//  1. Loads the current state of each entity it touches
//  2. Diffs proposed aliases, identifiers, relationships, languages and
//     publishers against the current sets (package setdiff)
//  3. Materializes new immutable sets only for collections that changed,
//     attaching unchanged members by reference
//  4. Computes the changed-property map over set pointers, annotation,
//     disambiguation and type-specific attributes
//  5. Aborts with NO_CHANGE when that map is empty, before anything has
//     been written
//  6. Writes a fresh entity data row, links the Revision to its parents and
//     moves the entity head
//
// A Submit batch may create several entities that reference each other by
// temporary key. Entities are processed sequentially in a fixed order so a
// key is committed before anything that depends on it; relationships are
// applied in a second pass once every entity in the batch has a bbid.
//
// Merge folds source entities into a target, writes a redirect per source
// and tombstones the sources. Resolve follows redirect chains with a hard
// depth cap.
//
// Post-commit hooks receive a freshly loaded view of every touched entity
// only after the transaction commits. Hook failures never reach the caller.
package revision
