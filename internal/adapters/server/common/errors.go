package common

import (
	"context"
	"errors"

	"github.com/evanschultz/beacon/internal/app"
	"github.com/evanschultz/beacon/internal/domain"
	"github.com/evanschultz/beacon/internal/store"
)

// Error codes shared by every transport.
const (
	CodeNotFound         = "not_found"
	CodeInvalidRequest   = "invalid_request"
	CodeValidationFailed = "validation_failed"
	CodeUnavailable      = "unavailable"
	CodeCanceled         = "canceled"
	CodeInternal         = "internal_error"
)

var invalidInput = []error{
	ErrInvalidRequest,
	app.ErrInvalidID,
	app.ErrInvalidSortField,
	app.ErrInvalidView,
	app.ErrInvalidSnapshot,
	domain.ErrInvalidID,
	domain.ErrInvalidTitle,
	domain.ErrInvalidPriority,
	domain.ErrInvalidStatus,
	domain.ErrInvalidType,
	domain.ErrInvalidStage,
	domain.ErrInvalidProgress,
	domain.ErrInvalidDate,
	domain.ErrInvalidProjectID,
	domain.ErrInvalidPhase,
	domain.ErrInvalidKPI,
	domain.ErrInvalidUpdateType,
	domain.ErrInvalidUpdateText,
}

// ErrorCode classifies err into one transport error code.
func ErrorCode(err error) string {
	var validation *store.ValidationError
	switch {
	case err == nil:
		return CodeInternal
	case errors.Is(err, app.ErrNotFound):
		return CodeNotFound
	case errors.As(err, &validation):
		return CodeValidationFailed
	case errors.Is(err, app.ErrSeedUnavailable):
		return CodeUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return CodeCanceled
	}
	for _, sentinel := range invalidInput {
		if errors.Is(err, sentinel) {
			return CodeInvalidRequest
		}
	}
	return CodeInternal
}
