package uploads

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophdiary/internal/client/models"
	"github.com/dmitrijs2005/gophdiary/internal/dbx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) List(ctx context.Context) ([]models.PendingImageUpload, error) {
	query := `select id, remote_path, content_ref, session_token, diary_id from image_uploads order by id asc`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select pending uploads: %w", err)
	}
	defer rows.Close()

	var result []models.PendingImageUpload
	for rows.Next() {
		var item models.PendingImageUpload
		if err := rows.Scan(&item.ID, &item.RemotePath, &item.ContentRef, &item.SessionToken, &item.DiaryID); err != nil {
			return nil, fmt.Errorf("failed to scan pending upload: %w", err)
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pending uploads: %w", err)
	}
	return result, nil
}

// Add stores the upload and sets u.ID to the id of the new row.
func (r *SQLiteRepository) Add(ctx context.Context, u *models.PendingImageUpload) (int64, error) {
	query := `INSERT OR REPLACE INTO image_uploads (remote_path, content_ref, session_token, diary_id)
			values (?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, query, u.RemotePath, u.ContentRef, u.SessionToken, u.DiaryID)
	if err != nil {
		return 0, fmt.Errorf("failed to add pending upload: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get pending upload id: %w", err)
	}
	u.ID = id
	return id, nil
}

func (r *SQLiteRepository) Remove(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `delete from image_uploads where id=?`, id); err != nil {
		return fmt.Errorf("failed to remove pending upload: %w", err)
	}
	return nil
}
