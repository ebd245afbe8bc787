package services

import (
	"errors"

	apperrors "messaging-service/pkg/errors"

	"gorm.io/gorm"
)

// storeError classifies a repository failure. Errors that are already
// AppErrors pass through so a rejection raised inside a transaction keeps
// its kind.
func storeError(op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperrors.As(err); ok {
		return err
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperrors.Conflict(apperrors.ErrDuplicateMembership.Error(), err)
	}
	return apperrors.Infrastructure(op, err)
}

// notFoundOr maps gorm.ErrRecordNotFound to notFound and everything else
// through storeError.
func notFoundOr(op string, err error, notFound error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return storeError(op, err)
}
