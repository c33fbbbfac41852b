package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind groups error codes by how callers are expected to react to them.
type ErrorKind string

const (
	KindValidation           ErrorKind = "VALIDATION"
	KindConflict             ErrorKind = "CONFLICT"
	KindUnauthorized         ErrorKind = "UNAUTHORIZED"
	KindNotFound             ErrorKind = "NOT_FOUND"
	KindUntrustedSignal      ErrorKind = "UNTRUSTED_SIGNAL"
	KindTransientIntegration ErrorKind = "TRANSIENT_INTEGRATION"
)

// DomainError represents a business logic error
type DomainError struct {
	Kind    ErrorKind
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

const (
	ErrCodeMissingRequiredField = "MISSING_REQUIRED_FIELD"
	ErrCodeInvalidInterval      = "INVALID_INTERVAL"
	ErrCodeStartInPast          = "START_IN_PAST"
	ErrCodeSpotBlocked          = "SPOT_BLOCKED"
	ErrCodeSpotUnavailable      = "SPOT_UNAVAILABLE"
	ErrCodeInvalidTransition    = "INVALID_TRANSITION"
	ErrCodeAlreadyStarted       = "BOOKING_ALREADY_STARTED"
	ErrCodeAlreadyPaid          = "BOOKING_ALREADY_PAID"
	ErrCodeNoPaymentAttempt     = "NO_PAYMENT_ATTEMPT"
	ErrCodeNoPendingRefund      = "NO_PENDING_REFUND"
	ErrCodeBookingNotFound      = "BOOKING_NOT_FOUND"
	ErrCodeSpotNotFound         = "SPOT_NOT_FOUND"
	ErrCodePromoNotFound        = "PROMO_NOT_FOUND"
	ErrCodeNotOwner             = "NOT_BOOKING_OWNER"
	ErrCodeForbidden            = "FORBIDDEN"
	ErrCodeChecksumMismatch     = "CHECKSUM_MISMATCH"
	ErrCodeUnknownOrder         = "UNKNOWN_ORDER"
	ErrCodeAmountMismatch       = "AMOUNT_MISMATCH"
	ErrCodeGatewayUnavailable   = "GATEWAY_UNAVAILABLE"
)

func NewMissingRequiredFieldError(field string) *DomainError {
	return &DomainError{
		Kind:    KindValidation,
		Code:    ErrCodeMissingRequiredField,
		Message: fmt.Sprintf("%s is required", field),
	}
}

func NewInvalidIntervalError(start, end time.Time) *DomainError {
	return &DomainError{
		Kind:    KindValidation,
		Code:    ErrCodeInvalidInterval,
		Message: fmt.Sprintf("end time %s must be after start time %s", end.Format(time.RFC3339), start.Format(time.RFC3339)),
	}
}

func NewStartInPastError(start time.Time) *DomainError {
	return &DomainError{
		Kind:    KindValidation,
		Code:    ErrCodeStartInPast,
		Message: fmt.Sprintf("start time %s is in the past", start.Format(time.RFC3339)),
	}
}

func NewSpotBlockedError(label string) *DomainError {
	return &DomainError{
		Kind:    KindConflict,
		Code:    ErrCodeSpotBlocked,
		Message: fmt.Sprintf("spot %s is blocked for maintenance", label),
	}
}

func NewSpotUnavailableError() *DomainError {
	return &DomainError{
		Kind:    KindConflict,
		Code:    ErrCodeSpotUnavailable,
		Message: "This spot is already booked for the selected time range",
	}
}

func NewInvalidTransitionError(from, to BookingStatus) *DomainError {
	return &DomainError{
		Kind:    KindConflict,
		Code:    ErrCodeInvalidTransition,
		Message: fmt.Sprintf("cannot transition booking from %s to %s", from, to),
	}
}

func NewAlreadyStartedError() *DomainError {
	return &DomainError{
		Kind:    KindConflict,
		Code:    ErrCodeAlreadyStarted,
		Message: "booking has already started and can no longer be cancelled",
	}
}

func NewAlreadyPaidError(id int64) *DomainError {
	return &DomainError{
		Kind:    KindConflict,
		Code:    ErrCodeAlreadyPaid,
		Message: fmt.Sprintf("booking %d is already paid", id),
	}
}

func NewNoPaymentAttemptError(id int64) *DomainError {
	return &DomainError{
		Kind:    KindConflict,
		Code:    ErrCodeNoPaymentAttempt,
		Message: fmt.Sprintf("booking %d has no payment attempt to check", id),
	}
}

func NewNoPendingRefundError(id int64) *DomainError {
	return &DomainError{
		Kind:    KindConflict,
		Code:    ErrCodeNoPendingRefund,
		Message: fmt.Sprintf("booking %d has no pending refund", id),
	}
}

func NewBookingNotFoundError(id string) *DomainError {
	return &DomainError{
		Kind:    KindNotFound,
		Code:    ErrCodeBookingNotFound,
		Message: fmt.Sprintf("booking %s not found", id),
	}
}

func NewSpotNotFoundError(id int64) *DomainError {
	return &DomainError{
		Kind:    KindNotFound,
		Code:    ErrCodeSpotNotFound,
		Message: fmt.Sprintf("spot %d not found", id),
	}
}

func NewPromoNotFoundError(code string) *DomainError {
	return &DomainError{
		Kind:    KindNotFound,
		Code:    ErrCodePromoNotFound,
		Message: fmt.Sprintf("promo code %s not found", code),
	}
}

func NewNotOwnerError() *DomainError {
	return &DomainError{
		Kind:    KindUnauthorized,
		Code:    ErrCodeNotOwner,
		Message: "booking belongs to a different user",
	}
}

func NewForbiddenError(action string) *DomainError {
	return &DomainError{
		Kind:    KindUnauthorized,
		Code:    ErrCodeForbidden,
		Message: fmt.Sprintf("%s requires operator privileges", action),
	}
}

func NewChecksumMismatchError(orderID string) *DomainError {
	return &DomainError{
		Kind:    KindUntrustedSignal,
		Code:    ErrCodeChecksumMismatch,
		Message: fmt.Sprintf("payment signal for order %s failed verification", orderID),
	}
}

func NewUnknownOrderError(orderID string, err error) *DomainError {
	return &DomainError{
		Kind:    KindUntrustedSignal,
		Code:    ErrCodeUnknownOrder,
		Message: fmt.Sprintf("payment signal references unknown order %q", orderID),
		Err:     err,
	}
}

func NewAmountMismatchError(orderID, got, want string) *DomainError {
	return &DomainError{
		Kind:    KindUntrustedSignal,
		Code:    ErrCodeAmountMismatch,
		Message: fmt.Sprintf("payment signal for order %s reports %s, booking expects %s", orderID, got, want),
	}
}

func NewGatewayUnavailableError(err error) *DomainError {
	return &DomainError{
		Kind:    KindTransientIntegration,
		Code:    ErrCodeGatewayUnavailable,
		Message: "payment gateway is unreachable, retry later",
		Err:     err,
	}
}

// IsErrorCode reports whether any DomainError in err's chain carries code.
func IsErrorCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// IsKind reports whether err is a DomainError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Kind == kind
	}
	return false
}
