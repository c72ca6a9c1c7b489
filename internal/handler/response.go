package handler

import (
	"errors"
	"net/http"

	"github.com/dafibh/kitty/kitty-backend/internal/domain"
	"github.com/dafibh/kitty/kitty-backend/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// ProblemDetails represents an RFC 7807 Problem Details response
type ProblemDetails struct {
	Type     string            `json:"type"`
	Title    string            `json:"title"`
	Status   int               `json:"status"`
	Detail   string            `json:"detail,omitempty"`
	Instance string            `json:"instance,omitempty"`
	Errors   []ValidationError `json:"errors,omitempty"`
}

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error types
const (
	ErrorTypeValidation   = "https://kitty.app/errors/validation"
	ErrorTypeNotFound     = "https://kitty.app/errors/not-found"
	ErrorTypeUnauthorized = "https://kitty.app/errors/unauthorized"
	ErrorTypeForbidden    = "https://kitty.app/errors/forbidden"
	ErrorTypeConflict     = "https://kitty.app/errors/conflict"
	ErrorTypeLocked       = "https://kitty.app/errors/period-locked"
	ErrorTypeUnavailable  = "https://kitty.app/errors/unavailable"
	ErrorTypeInternal     = "https://kitty.app/errors/internal"
)

func problem(c echo.Context, status int, errType, title, detail string, errs []ValidationError) error {
	return c.JSON(status, ProblemDetails{
		Type:     errType,
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: c.Request().URL.Path,
		Errors:   errs,
	})
}

// NewValidationError creates a validation error response
func NewValidationError(c echo.Context, detail string, errors []ValidationError) error {
	return problem(c, http.StatusBadRequest, ErrorTypeValidation, "Validation Error", detail, errors)
}

// NewNotFoundError creates a not found error response
func NewNotFoundError(c echo.Context, detail string) error {
	return problem(c, http.StatusNotFound, ErrorTypeNotFound, "Not Found", detail, nil)
}

// NewUnauthorizedError creates an unauthorized error response
func NewUnauthorizedError(c echo.Context, detail string) error {
	return problem(c, http.StatusUnauthorized, ErrorTypeUnauthorized, "Unauthorized", detail, nil)
}

// NewForbiddenError creates a forbidden error response
func NewForbiddenError(c echo.Context, detail string) error {
	return problem(c, http.StatusForbidden, ErrorTypeForbidden, "Forbidden", detail, nil)
}

// NewConflictError creates a conflict error response
func NewConflictError(c echo.Context, detail string) error {
	return problem(c, http.StatusConflict, ErrorTypeConflict, "Conflict", detail, nil)
}

// NewLockedError creates a response for mutations against a finalized period
func NewLockedError(c echo.Context, detail string) error {
	return problem(c, http.StatusLocked, ErrorTypeLocked, "Period Locked", detail, nil)
}

// NewServiceUnavailableError creates a service unavailable error response
func NewServiceUnavailableError(c echo.Context, detail string) error {
	return problem(c, http.StatusServiceUnavailable, ErrorTypeUnavailable, "Service Unavailable", detail, nil)
}

// NewInternalError creates an internal error response
func NewInternalError(c echo.Context, detail string) error {
	return problem(c, http.StatusInternalServerError, ErrorTypeInternal, "Internal Server Error", detail, nil)
}

// receiptFieldErrors are upload failures reported against the file field
var receiptFieldErrors = []error{
	service.ErrReceiptTooLarge,
	service.ErrReceiptInvalidFormat,
	service.ErrReceiptTooSmall,
	service.ErrReceiptInvalidData,
}

// handleServiceError maps engine errors to problem details
func handleServiceError(c echo.Context, err error, op string) error {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		return NewValidationError(c, "Validation failed", []ValidationError{
			{Field: validationErr.Field, Message: validationErr.Message},
		})
	}
	for _, re := range receiptFieldErrors {
		if errors.Is(err, re) {
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "file", Message: re.Error()},
			})
		}
	}

	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return NewValidationError(c, err.Error(), nil)
	case errors.Is(err, domain.ErrNotFound):
		return NewNotFoundError(c, err.Error())
	case errors.Is(err, domain.ErrPeriodLocked):
		return NewLockedError(c, err.Error())
	case errors.Is(err, domain.ErrAlreadyExists):
		return NewConflictError(c, err.Error())
	case errors.Is(err, domain.ErrConcurrencyConflict):
		return NewConflictError(c, "The record was modified concurrently. Please retry.")
	case errors.Is(err, domain.ErrUnauthorized):
		return NewUnauthorizedError(c, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		return NewForbiddenError(c, err.Error())
	case errors.Is(err, service.ErrReceiptStorageNotConfigured):
		return NewServiceUnavailableError(c, "Receipt uploads are disabled (storage not configured)")
	}

	log.Error().Err(err).Str("op", op).Str("path", c.Request().URL.Path).Msg("Request failed")
	return NewInternalError(c, "Failed to "+op)
}
