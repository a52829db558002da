// Package uploads provides the durable local queue of image uploads that the
// blob store has not confirmed yet.
//
// # Overview
//
// The package defines a Repository interface (List/Add/Remove) and a
// SQLite-backed implementation (SQLiteRepository) persisting rows of the
// image_uploads table through a dbx.DBTX (*sql.DB or *sql.Tx).
//
// # Semantics
//
//   - List returns entries in insertion order (ascending id), which is the
//     replay order of the reconciler.
//   - Add is keyed by remote path: re-adding a path replaces the previous row
//     (INSERT OR REPLACE), so N re-adds leave exactly one row. The replacement
//     gets a fresh id.
//   - Remove deletes by id and is a no-op for unknown ids.
//
// Rows are never updated in place; every change is a single statement, so
// concurrent reconciliation and new enqueues need no extra locking.
//
// Typical Usage
//
//	repo := uploads.NewSQLiteRepository(db)
//	id, _ := repo.Add(ctx, &models.PendingImageUpload{RemotePath: p, ContentRef: ref})
//	pending, _ := repo.List(ctx)
//	_ = repo.Remove(ctx, id)
package uploads
