package client

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/gophdiary/internal/client/migrations"
	"github.com/dmitrijs2005/gophdiary/internal/client/repositories/deletes"
	"github.com/dmitrijs2005/gophdiary/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/gophdiary/internal/client/repositories/uploads"
	"github.com/dmitrijs2005/gophdiary/internal/dbx"
	"github.com/dmitrijs2005/gophdiary/internal/logging"
	"github.com/pressly/goose/v3"
)

type Repositories struct {
	Metadata metadata.Repository
	Uploads  uploads.Repository
	Deletes  deletes.Repository
}

func NewRepositories(db *sql.DB) *Repositories {
	return &Repositories{
		Metadata: metadata.NewSQLiteRepository(db),
		Uploads:  uploads.NewSQLiteRepository(db),
		Deletes:  deletes.NewSQLiteRepository(db),
	}
}

func RunMigrations(ctx context.Context, db *sql.DB, log logging.Logger) error {
	return dbx.Migrate(ctx, db, goose.DialectSQLite3, migrations.Migrations, log)
}

// InitDatabase opens the SQLite database at dsn and migrates it.
func InitDatabase(ctx context.Context, dsn string, log logging.Logger) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// sqlite allows one writer; background uploads share this handle
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db, log); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations failed: %w", err)
	}

	return db, nil
}
