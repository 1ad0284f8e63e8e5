package database

import (
	"context"
	"errors"

	apperrors "wykonczymy/internal/errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// SQLSTATE codes the service reacts to.
const (
	sqlStateUniqueViolation      = "23505"
	sqlStateForeignKeyViolation  = "23503"
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
	sqlStateLockNotAvailable     = "55P03"
	sqlStateQueryCanceled        = "57014"
)

// Translate maps a persistence error to an AppError. AppErrors pass through
// untouched so it can wrap the result of gorm's Transaction directly.
//
// Lock conflicts, serialization failures, statement timeouts and an expired
// request context all become ErrConsistencyViolation: the unit was rolled
// back and the caller may retry.
func Translate(err error) error {
	if err == nil {
		return nil
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Wrap(apperrors.ErrConsistencyViolation, err)
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.Wrap(apperrors.ErrNotFound, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlStateSerializationFailure, sqlStateDeadlockDetected, sqlStateLockNotAvailable, sqlStateQueryCanceled:
			return apperrors.Wrap(apperrors.ErrConsistencyViolation, err)
		case sqlStateForeignKeyViolation:
			return apperrors.Wrap(apperrors.ErrInvalidInput, err)
		}
	}

	return apperrors.Wrap(apperrors.ErrInternalServer, err)
}

// IsUniqueViolation reports whether err is a unique-constraint failure.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == sqlStateUniqueViolation
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
