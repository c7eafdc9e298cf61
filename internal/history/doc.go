// Package history records one SQLite row per pipeline run.
//
// Rows are keyed by the run's ULID, so listing by id returns runs in start
// order. A row is inserted when the run begins and updated once when it ends,
// including halted runs, so committed side effects (an uploaded image, a
// token type left without a mint) stay discoverable after the process exits.
//
// Schema changes bump schemaVersion in schema.go; users delete history.db to
// adopt the new schema.
package history
