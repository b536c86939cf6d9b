// Package repo is the SQL projection layer. Every method runs against a
// connection already scoped to the request's session, so row-level tenant
// filtering is enforced by the store, not repeated here.
package repo

import (
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
)

type Repo struct{}

var ErrNotFound = errors.New("not found")

// psql builds statements with Postgres placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

func notFoundIfNoRows(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
