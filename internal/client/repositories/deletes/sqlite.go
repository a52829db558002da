package deletes

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophdiary/internal/client/models"
	"github.com/dmitrijs2005/gophdiary/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) List(ctx context.Context) ([]models.PendingImageDelete, error) {
	rows, err := r.db.QueryContext(ctx, `select id, remote_path from image_deletes order by id asc`)
	if err != nil {
		return nil, fmt.Errorf("failed to select pending deletes: %w", err)
	}
	defer rows.Close()

	var result []models.PendingImageDelete
	for rows.Next() {
		var item models.PendingImageDelete
		if err := rows.Scan(&item.ID, &item.RemotePath); err != nil {
			return nil, fmt.Errorf("failed to scan pending delete: %w", err)
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pending deletes: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) Add(ctx context.Context, d *models.PendingImageDelete) (int64, error) {
	res, err := r.db.ExecContext(ctx, `INSERT OR REPLACE INTO image_deletes (remote_path) values (?)`, d.RemotePath)
	if err != nil {
		return 0, fmt.Errorf("failed to add pending delete: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get pending delete id: %w", err)
	}
	d.ID = id
	return id, nil
}

func (r *SQLiteRepository) Remove(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `delete from image_deletes where id=?`, id); err != nil {
		return fmt.Errorf("failed to remove pending delete: %w", err)
	}
	return nil
}
