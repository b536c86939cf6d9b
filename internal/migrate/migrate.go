// Package migrate applies the embedded schema migrations with goose.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"path/filepath"
	"time"

	"github.com/pressly/goose/v3"
)

//go:embed sql/*.sql
var migrations embed.FS

// Up applies all pending migrations.
func Up(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, "sql")
}

// Record describes one known migration and whether it has been applied.
type Record struct {
	Version   int64
	Source    string
	Applied   bool
	AppliedAt time.Time
}

// Status returns the state of every known migration.
func Status(ctx context.Context, db *sql.DB) ([]Record, error) {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return nil, err
	}
	migs, err := goose.CollectMigrations("sql", 0, goose.MaxVersion)
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(migs))
	for _, m := range migs {
		rec := Record{Version: m.Version, Source: filepath.Base(m.Source)}
		row := db.QueryRowContext(ctx,
			"SELECT tstamp, is_applied FROM goose_db_version WHERE version_id = $1 ORDER BY tstamp DESC LIMIT 1",
			m.Version)
		var ts sql.NullTime
		var applied bool
		switch err := row.Scan(&ts, &applied); {
		case errors.Is(err, sql.ErrNoRows):
			// pending
		case err != nil:
			return nil, err
		default:
			rec.Applied = applied
			if ts.Valid {
				rec.AppliedAt = ts.Time
			}
		}
		records = append(records, rec)
	}
	return records, nil
}
