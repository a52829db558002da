package models

// PendingImageUpload is a queued image upload that the blob store has not
// confirmed yet. RemotePath is the natural key: re-adding the same path
// replaces the previous row.
type PendingImageUpload struct {
	ID int64

	// RemotePath is the destination key in the blob store.
	RemotePath string

	// ContentRef points at the local source (file path or file:// URI).
	ContentRef string

	// SessionToken identifies a resumable upload session. Empty while the
	// upload is not in flight.
	SessionToken string

	// DiaryID is the diary the image is attached to once the upload is
	// confirmed. Empty means no attachment is needed.
	DiaryID string
}

// PendingImageDelete is a queued blob deletion.
type PendingImageDelete struct {
	ID         int64
	RemotePath string
}
