// Package docstore is the remote document store holding diary documents.
//
// Two implementations satisfy Store:
//
//   - PostgresStore: documents in a "diaries" table reached through
//     database/sql with the pgx stdlib driver. The schema is migrated with
//     goose from the embedded migrations package. Watch polls the query at a
//     fixed interval and emits a snapshot whenever the result changes.
//   - MemoryStore: a process-local map. Watch pushes a fresh snapshot after
//     every write. Used by tests and by the "memory://" DSN.
//
// Every read is scoped to an owner; writes are guarded so that a document id
// owned by one user can never be overwritten or deleted by another. Such
// attempts report ErrNotFound, exactly like a missing document.
package docstore
