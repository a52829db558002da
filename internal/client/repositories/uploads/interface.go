package uploads

import (
	"context"

	"github.com/dmitrijs2005/gophdiary/internal/client/models"
)

// Repository describes the pending-upload queue.
type Repository interface {
	// List returns all pending uploads ordered by id ascending.
	List(ctx context.Context) ([]models.PendingImageUpload, error)

	// Add inserts the upload, replacing any entry with the same remote path,
	// and returns the id of the stored row.
	Add(ctx context.Context, upload *models.PendingImageUpload) (int64, error)

	// Remove deletes the entry with the given id; unknown ids are ignored.
	Remove(ctx context.Context, id int64) error
}
