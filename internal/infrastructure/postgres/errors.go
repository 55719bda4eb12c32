package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/oksasatya/adhunt/internal/domain/errs"
)

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeStringTooLong       = "22001"
)

// constraint name -> domain error for unique violations
var uniqueConstraints = map[string]error{
	"users_email_key":             errs.ErrDuplicateEmail,
	"users_phone_number_key":      errs.ErrDuplicatePhone,
	"favorite_advertisements_pkey": errs.ErrAlreadyFavorited,
}

// translate maps driver errors onto the domain taxonomy.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return errs.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			if mapped, ok := uniqueConstraints[pgErr.ConstraintName]; ok {
				return mapped
			}
			return errs.ErrConflict
		case codeForeignKeyViolation:
			return errs.ErrNotFound
		case codeStringTooLong:
			return errs.Field(fieldOf(pgErr), "value is too long")
		}
	}
	return err
}

// fieldOf names the offending column when the server reports it.
func fieldOf(pgErr *pgconn.PgError) string {
	if pgErr.ColumnName != "" {
		return pgErr.ColumnName
	}
	return "payload"
}
