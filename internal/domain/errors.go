package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Error categories. Typed errors below match one of these via errors.Is.
var (
	ErrNotFound             = errors.New("resource not found")
	ErrAlreadyExists        = errors.New("resource already exists")
	ErrInvalidInput         = errors.New("invalid input")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrForbidden            = errors.New("forbidden")
	ErrPeriodLocked         = errors.New("period is finalized")
	ErrConcurrencyConflict  = errors.New("concurrent modification")
	ErrNotificationDelivery = errors.New("notification delivery failed")
)

// ValidationError reports malformed input. It is surfaced to the caller as-is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Is makes every ValidationError match ErrInvalidInput
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NotFoundError reports a missing period, payment, loan or member.
type NotFoundError struct {
	Entity string
}

func (e *NotFoundError) Error() string {
	return e.Entity + " not found"
}

// Is makes every NotFoundError match ErrNotFound
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// PeriodLockedError is returned by payment mutations against a finalized period.
type PeriodLockedError struct {
	PeriodID uuid.UUID
}

func (e *PeriodLockedError) Error() string {
	return fmt.Sprintf("contribution period %s is finalized", e.PeriodID)
}

func (e *PeriodLockedError) Is(target error) bool {
	return target == ErrPeriodLocked
}

// ConcurrencyConflictError wraps a serialization failure from the store.
// Callers should retry the whole operation once.
type ConcurrencyConflictError struct {
	Err error
}

func (e *ConcurrencyConflictError) Error() string {
	if e.Err == nil {
		return ErrConcurrencyConflict.Error()
	}
	return fmt.Sprintf("%s: %v", ErrConcurrencyConflict, e.Err)
}

func (e *ConcurrencyConflictError) Is(target error) bool {
	return target == ErrConcurrencyConflict
}

func (e *ConcurrencyConflictError) Unwrap() error {
	return e.Err
}

// NotificationDeliveryError is non-fatal: it is logged and never returned from
// a financial mutation.
type NotificationDeliveryError struct {
	MemberID uuid.UUID
	Err      error
}

func (e *NotificationDeliveryError) Error() string {
	return fmt.Sprintf("notify member %s: %v", e.MemberID, e.Err)
}

func (e *NotificationDeliveryError) Is(target error) bool {
	return target == ErrNotificationDelivery
}

func (e *NotificationDeliveryError) Unwrap() error {
	return e.Err
}

// Entity-specific errors
var (
	ErrGroupNotFound        = &NotFoundError{Entity: "group"}
	ErrMemberNotFound       = &NotFoundError{Entity: "member"}
	ErrPeriodNotFound       = &NotFoundError{Entity: "contribution period"}
	ErrPaymentNotFound      = &NotFoundError{Entity: "payment"}
	ErrLoanNotFound         = &NotFoundError{Entity: "loan"}
	ErrNotificationNotFound = &NotFoundError{Entity: "notification"}

	ErrAmountInvalid           = &ValidationError{Field: "amount", Message: "amount must be a positive number"}
	ErrPaymentStatusInvalid    = &ValidationError{Field: "status", Message: "status must be one of pending, paid, partial, overdue"}
	ErrPrincipalInvalid        = &ValidationError{Field: "principal", Message: "principal must be a positive number"}
	ErrMonthlyRepaymentInvalid = &ValidationError{Field: "monthlyRepayment", Message: "monthly repayment must be a positive number"}
	ErrRepaymentTypeInvalid    = &ValidationError{Field: "repaymentType", Message: "repayment type must be one of manual, auto_deduction, partial, bank_transfer"}
	ErrPeriodMonthInvalid      = &ValidationError{Field: "month", Message: "month must be between 1 and 12"}
	ErrPeriodYearInvalid       = &ValidationError{Field: "year", Message: "year must be between 2000 and 2100"}
	ErrMemberNotInGroup        = &ValidationError{Field: "memberId", Message: "member does not belong to this group"}
	ErrMemberRequired          = &ValidationError{Field: "memberId", Message: "member is required"}
	ErrLoanAlreadyPaid         = &ValidationError{Field: "loanId", Message: "loan is already fully repaid"}

	ErrPeriodAlreadyExists = fmt.Errorf("contribution period for this month: %w", ErrAlreadyExists)
)
