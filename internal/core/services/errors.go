package services

import (
	"errors"

	"sacco-hub/internal/core/domain"

	"gorm.io/gorm"
)

// storeErr maps a repository error: record-not-found becomes notFound,
// anything else is a persistence failure. Domain errors pass through.
func storeErr(err error, notFound error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return notFound
	case isDomainErr(err):
		return err
	default:
		return domain.Persistence(err)
	}
}

func isDomainErr(err error) bool {
	for _, kind := range []error{
		domain.ErrValidation,
		domain.ErrUnauthorized,
		domain.ErrNotFound,
		domain.ErrInvalidTransition,
		domain.ErrDuplicateRequest,
		domain.ErrUnknownTransaction,
		domain.ErrPersistence,
		domain.ErrGatewayUnavailable,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}
