// Package postgres implements the primary record store on PostgreSQL.
// The urls table carries a global UNIQUE constraint on short_code across the
// entire record space; that constraint, not the generator's pre-check, is
// what enforces short code uniqueness under concurrent writers.
package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	uniqueViolationErrCode = "23505"
	foreignKeyErrCode      = "23503"

	shortCodeConstraint  = "urls_short_code_key"
	ownerEmailConstraint = "owners_email_key"
)

func pgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	ok := errors.As(err, &pgErr)
	return pgErr, ok
}

func isUniqueViolation(err error, constraint string) bool {
	pgErr, ok := pgError(err)
	return ok && pgErr.SQLState() == uniqueViolationErrCode && pgErr.ConstraintName == constraint
}

func isForeignKeyViolation(err error) bool {
	pgErr, ok := pgError(err)
	return ok && pgErr.SQLState() == foreignKeyErrCode
}
