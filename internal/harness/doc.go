// Package harness runs scripted catalog scenarios against the revision
// engine.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: merge_two_authors
//	description: "Merging unions aliases into the target"
//	steps:
//	  - submit:
//	      entities:
//	        a:
//	          type: author
//	          nameSection: { name: Jane Doe, sortName: "Doe, Jane" }
//	        b:
//	          type: author
//	          nameSection: { name: J. Doe, sortName: "Doe, J." }
//	  - merge: { target: $b, sources: [$a] }
//	  - delete: { bbid: $a }
//	    expect: { error: ALREADY_DELETED }
//	assertions:
//	  - type: resolves
//	    bbid: $a
//	    to: $b
//	  - type: entity
//	    bbid: $b
//	    expect: { aliases: 2, revision: 2 }
//
// Keys of a submit step are bound to the bbids the engine assigned; later
// steps and assertions refer to them as "$key".
//
// # Assertion Types
//
//   - entity: fetches an entity (following redirects) and subset-matches
//     its summary: bbid, type, revision, deleted, name, sort_name, counts
//     of aliases, identifiers, relationships, languages and publishers,
//     annotation, disambiguation and attributes
//   - resolves: checks where a bbid's redirect chain ends
//   - history: subset-matches count, revision, merge, deleted and parents
//     of the newest revision
//   - table_count: checks the row count of a table
//
// # Deterministic Testing
//
// Every run uses a fresh in-memory SQLite database, a sequential bbid
// allocator and a deterministic clock, so traces are identical across runs
// and can be compared against golden snapshots.
package harness
