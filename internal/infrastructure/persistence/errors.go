package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/admarket/backend/internal/domain/shared"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Postgres SQLSTATE codes that mean "another writer holds the row, try again"
var contentionCodes = map[string]struct{}{
	"40001": {}, // serialization_failure
	"40P01": {}, // deadlock_detected
	"55P03": {}, // lock_not_available
	"57014": {}, // query_canceled (lock_timeout / statement_timeout)
}

// TranslateError maps driver errors onto domain errors. Domain errors pass
// through unchanged; lock and serialization failures become CONTENTION.
func TranslateError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := shared.AsDomainError(err); ok {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.ErrNotFound
	}
	if IsContention(err) {
		return shared.NewContentionError(err)
	}
	return err
}

// IsContention reports whether err is a retryable locking failure
func IsContention(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		_, ok := contentionCodes[pgErr.Code]
		return ok
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "database table is locked")
}

// notFound maps gorm.ErrRecordNotFound to the given domain error
func notFound(err error, domainErr error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domainErr
	}
	return TranslateError(err)
}
