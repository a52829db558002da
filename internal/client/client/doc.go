// Package client bootstraps the local persistence of the diary client.
//
// InitDatabase opens the SQLite database (modernc.org/sqlite, pure Go),
// applies the embedded goose migrations and returns the handle.
// NewRepositories wires the local repositories on top of it:
//
//   - Metadata: session and other key/value state
//   - Uploads:  pending image uploads
//   - Deletes:  pending image deletes
//
// The database is the durable part of the sync layer: anything queued here is
// replayed by the image reconciler after a restart.
package client
