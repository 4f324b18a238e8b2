// Package postgres holds the sqlx-backed repository implementations.
package postgres

import (
	"database/sql"
	"errors"

	sq "github.com/Masterminds/squirrel"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
