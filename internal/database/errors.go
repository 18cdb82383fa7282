package database

import (
	"errors"

	"cafe-orders/internal/apperror"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
	codeCheckViolation       = "23514"
	codeForeignKeyViolation  = "23503"
)

// Classify turns a driver error into an apperror. Errors that already carry
// a kind pass through unchanged.
func Classify(err error, message string) error {
	if err == nil {
		return nil
	}

	var ae *apperror.Error
	if errors.As(err, &ae) {
		return err
	}
	var ve apperror.ValidationError
	if errors.As(err, &ve) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable:
			return apperror.Wrap(apperror.Conflict, "concurrent update, please retry", err)
		case codeCheckViolation:
			return apperror.Wrap(apperror.Conflict, apperror.ErrInsufficientStock.Message, err)
		case codeForeignKeyViolation:
			return apperror.Wrap(apperror.NotFound, "referenced record not found", err)
		}
	}

	return apperror.Wrap(apperror.Storage, message, err)
}
