// Package notify delivers committed entities to downstream consumers.
//
// The revision engine calls a Dispatcher once per committed transaction
// with a fresh view of every entity it touched. The Dispatcher hands each
// view to its hooks; a failing hook is logged and never reaches the
// writer, so search indexers and feed publishers can lag or fail without
// affecting edits.
package notify
