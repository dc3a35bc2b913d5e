package domain

import "errors"

// Sentinel errors for domain-level error handling.
// Trade rejections carry these as their cause; the handler layer maps
// ErrUnknownUser to an HTTP status for read endpoints.
var (
	ErrUnknownUser         = errors.New("unknown_user")
	ErrUnknownPosition     = errors.New("unknown_position")
	ErrNonPositiveQuantity = errors.New("non_positive_quantity")
	ErrInsufficientShares  = errors.New("insufficient_shares")
	ErrQuantityTooLarge    = errors.New("quantity_too_large")
	ErrUnknownAction       = errors.New("unknown_action")
	ErrBusUnavailable      = errors.New("bus_unavailable")
)

// ValidationError represents a request validation failure.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
