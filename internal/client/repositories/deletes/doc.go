// Package deletes persists remote image deletions that have not been
// confirmed by the blob store. Entries are keyed by remote path; re-adding
// the same path replaces the row. Rows are replayed in id order by the
// reconciler and removed once the blob is gone.
package deletes
