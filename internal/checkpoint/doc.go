// Package checkpoint persists crawl statistics snapshots.
//
// A checkpoint is a single self-contained file holding one model.Snapshot.
// Stores write it to a temporary file in the destination directory and
// rename it over the previous checkpoint, so a concurrent reader sees either
// the old snapshot or the new one, never a partial write.
//
// Design decision: The default store uses SQLite (via modernc.org/sqlite)
// because:
//  1. The checkpoint stays a single file that any sqlite3 shell can query
//  2. CGO-free implementation allows easy cross-compilation
//  3. The schema carries a version, so later releases can migrate old files
//
// A JSON store is available for hosts that want a plain-text checkpoint.
package checkpoint
