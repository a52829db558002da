package deletes

import (
	"context"

	"github.com/dmitrijs2005/gophdiary/internal/client/models"
)

// Repository describes the pending-delete queue.
type Repository interface {
	List(ctx context.Context) ([]models.PendingImageDelete, error)
	Add(ctx context.Context, del *models.PendingImageDelete) (int64, error)
	Remove(ctx context.Context, id int64) error
}
