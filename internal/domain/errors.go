package domain

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrSeatUnavailable              = errors.New("seat is unavailable")
	ErrUnknownSeat                  = errors.New("unknown seat")
	ErrQuantityBelowIncludedMinimum = errors.New("quantity below included minimum")
	ErrUnknownBaggageOption         = errors.New("unknown baggage option")
	ErrUnknownFarePlan              = errors.New("unknown fare plan")
	ErrIncompleteBooking            = errors.New("booking is incomplete")
	ErrInvalidAmount                = errors.New("amount must not be negative")
	ErrAttemptInProgress            = errors.New("payment attempt in progress")
	ErrPaymentValidationFailed      = errors.New("payment validation failed")
	ErrPaymentProviderFailure       = errors.New("payment provider failure")
	ErrUnsupportedPaymentMethod     = errors.New("unsupported payment method")
	ErrIdentityRequired             = errors.New("identity is required")
	ErrBookingNotPriced             = errors.New("booking is not priced")
	ErrBookingCompleted             = errors.New("booking is completed")
	ErrBookingNotCompleted          = errors.New("only completed bookings can be stored")
	ErrSessionNotFound              = errors.New("session not found")
	ErrFlightNotFound               = errors.New("flight not found")
)

// ValidationError carries per-field messages and unwraps to its kind,
// e.g. ErrIncompleteBooking or ErrPaymentValidationFailed.
type ValidationError struct {
	Kind   error
	Fields map[string]string
}

func NewValidationError(kind error) *ValidationError {
	return &ValidationError{Kind: kind, Fields: make(map[string]string)}
}

func (e *ValidationError) Add(field, message string) {
	e.Fields[field] = message
}

func (e *ValidationError) Empty() bool {
	return len(e.Fields) == 0
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+e.Fields[name])
	}
	return e.Kind.Error() + " (" + strings.Join(parts, "; ") + ")"
}

func (e *ValidationError) Unwrap() error {
	return e.Kind
}
