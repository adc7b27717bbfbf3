package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/md-rashed-zaman/hotelbook/services/booking-service/internal/model"
)

const (
	codeExclusionViolation  = "23P01"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func IsConflict(err error) bool {
	return pgCode(err) == codeExclusionViolation
}

func IsForeignKeyViolation(err error) bool {
	return pgCode(err) == codeForeignKeyViolation
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// translate maps driver errors onto the model sentinels. Context errors pass
// through untouched.
func translate(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case IsConflict(err):
		return model.ErrConflict
	case IsForeignKeyViolation(err), IsNotFound(err):
		return fmt.Errorf("%s: %w", op, model.ErrNotFound)
	case pgCode(err) == codeCheckViolation:
		return fmt.Errorf("%s: %w", op, model.ErrInvalidInput)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
