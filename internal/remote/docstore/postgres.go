package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/dmitrijs2005/gophdiary/internal/dbx"
	"github.com/dmitrijs2005/gophdiary/internal/logging"
	"github.com/dmitrijs2005/gophdiary/internal/remote/docstore/migrations"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

const DefaultWatchInterval = 2 * time.Second

const selectColumns = `id, owner_id, title, description, mood, images, entry_date`

// PostgresStore implements Store over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresStore struct {
	db            dbx.DBTX
	closer        func() error
	watchInterval time.Duration
}

// NewPostgresStore binds a store to an already migrated database.
func NewPostgresStore(db dbx.DBTX, watchInterval time.Duration) *PostgresStore {
	if watchInterval <= 0 {
		watchInterval = DefaultWatchInterval
	}
	return &PostgresStore{db: db, watchInterval: watchInterval, closer: func() error { return nil }}
}

// migrate is a seam for testing dbx.Migrate.
var migrate = dbx.Migrate

// RunMigrations applies the embedded schema migrations.
func RunMigrations(ctx context.Context, db *sql.DB, log logging.Logger) error {
	return migrate(ctx, db, goose.DialectPostgres, migrations.Migrations, log)
}

// OpenPostgres connects with the pgx driver and migrates the schema.
func OpenPostgres(ctx context.Context, dsn string, watchInterval time.Duration, log logging.Logger) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := RunMigrations(ctx, db, log); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}
	s := NewPostgresStore(db, watchInterval)
	s.closer = db.Close
	return s, nil
}

func (s *PostgresStore) Close() error {
	return s.closer()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var (
		d      Document
		images []byte
	)
	if err := row.Scan(&d.ID, &d.OwnerID, &d.Title, &d.Description, &d.Mood, &images, &d.Date); err != nil {
		return Document{}, err
	}
	if len(images) > 0 {
		if err := json.Unmarshal(images, &d.Images); err != nil {
			return Document{}, fmt.Errorf("failed to decode images: %w", err)
		}
	}
	return d, nil
}

func encodeImages(images []string) ([]byte, error) {
	if images == nil {
		images = []string{}
	}
	return json.Marshal(images)
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func (s *PostgresStore) Find(ctx context.Context, q Query) ([]Document, error) {
	query := `SELECT ` + selectColumns + ` FROM diaries
		WHERE owner_id = $1
		  AND ($2::timestamptz IS NULL OR entry_date >= $2)
		  AND ($3::timestamptz IS NULL OR entry_date < $3)
		ORDER BY entry_date DESC, id`
	rows, err := s.db.QueryContext(ctx, query, q.OwnerID, nullTime(q.From), nullTime(q.To))
	if err != nil {
		return nil, fmt.Errorf("failed to select diaries: %w", err)
	}
	defer rows.Close()

	var result []Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan diary: %w", err)
		}
		result = append(result, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate diaries: %w", err)
	}
	return result, nil
}

func (s *PostgresStore) Get(ctx context.Context, id, ownerID string) (Document, error) {
	query := `SELECT ` + selectColumns + ` FROM diaries WHERE id = $1 AND owner_id = $2`
	d, err := scanDocument(s.db.QueryRowContext(ctx, query, id, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("failed to get diary: %w", err)
	}
	return d, nil
}

// Upsert replaces on conflict only when the owner matches; otherwise no row
// is returned and the call reports ErrNotFound.
func (s *PostgresStore) Upsert(ctx context.Context, doc Document) (Document, error) {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	images, err := encodeImages(doc.Images)
	if err != nil {
		return Document{}, fmt.Errorf("failed to encode images: %w", err)
	}

	query := `
		INSERT INTO diaries (id, owner_id, title, description, mood, images, entry_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id)
		DO UPDATE SET
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			mood = EXCLUDED.mood,
			images = EXCLUDED.images,
			entry_date = EXCLUDED.entry_date,
			updated_at = now()
			WHERE diaries.owner_id = EXCLUDED.owner_id
		RETURNING ` + selectColumns

	saved, err := scanDocument(s.db.QueryRowContext(ctx, query,
		doc.ID, doc.OwnerID, doc.Title, doc.Description, doc.Mood, images, doc.Date))
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("db error: %w", err)
	}
	return saved, nil
}

func (s *PostgresStore) DeleteOwned(ctx context.Context, id, ownerID string) (Document, error) {
	query := `DELETE FROM diaries WHERE id = $1 AND owner_id = $2 RETURNING ` + selectColumns
	d, err := scanDocument(s.db.QueryRowContext(ctx, query, id, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("failed to delete diary: %w", err)
	}
	return d, nil
}

func (s *PostgresStore) DeleteAllOwned(ctx context.Context, ownerID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM diaries WHERE owner_id = $1`, ownerID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete diaries: %w", err)
	}
	return dbx.RowsAffected(res)
}

// Watch polls Find every watchInterval. A snapshot is emitted on the first
// poll and whenever it differs from the previous one; errors are emitted
// once per failure streak and polling continues.
func (s *PostgresStore) Watch(ctx context.Context, q Query) <-chan Event {
	out := make(chan Event)

	go func() {
		defer close(out)

		ticker := time.NewTicker(s.watchInterval)
		defer ticker.Stop()

		var (
			last    []Document
			emitted bool
			failing bool
		)
		for {
			docs, err := s.Find(ctx, q)
			if ctx.Err() != nil {
				return
			}

			var ev *Event
			switch {
			case err != nil:
				if !failing {
					ev = &Event{Err: err}
				}
				failing = true
			case !emitted || failing || !slices.EqualFunc(last, docs, Document.Equal):
				ev = &Event{Docs: docs}
				last, emitted, failing = docs, true, false
			}

			if ev != nil {
				select {
				case out <- *ev:
				case <-ctx.Done():
					return
				}
			}

			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
