package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// isUniqueViolation reports whether the error is a Postgres unique-constraint
// failure (SQLSTATE 23505). The identity serializer already prevents duplicate
// registrations; the constraint is defense in depth.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
