package dbx

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	"github.com/dmitrijs2005/gophdiary/internal/logging"
	"github.com/pressly/goose/v3"
)

// Migrate applies the goose migrations found at the root of fsys. Each call
// uses its own provider, so databases of different dialects can be migrated
// in any order. Applied migrations are reported to log.
func Migrate(ctx context.Context, db *sql.DB, dialect goose.Dialect, fsys fs.FS, log logging.Logger) error {
	p, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}

	results, err := p.Up(ctx)
	if err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	for _, r := range results {
		log.Info(ctx, "migration applied",
			"dialect", string(dialect),
			"version", r.Source.Version,
			"file", r.Source.Path,
			"duration", r.Duration)
	}
	return nil
}
