package domain

import (
	"errors"
	"fmt"
)

var (
	ErrProductNotFound       = errors.New("product not found")
	ErrEmptyCart             = errors.New("cart is empty")
	ErrPaymentMethodRequired = errors.New("payment method is required")
	// ErrInvalidQuantity is returned for add deltas below one and for
	// quantities above MaxQuantity. They are rejected, never clamped.
	ErrInvalidQuantity      = errors.New("invalid quantity")
	ErrInvalidPaymentMethod = errors.New("payment method not accepted")
	ErrCartLocked           = errors.New("cart is locked by checkout")
	ErrSessionActive        = errors.New("checkout session already active")
	ErrCheckoutInProgress   = errors.New("payment is processing")
	ErrInvalidTransition    = errors.New("invalid checkout transition")
	ErrNoSession            = errors.New("no checkout session")
	ErrInvalidPricing       = errors.New("invalid pricing config")
	ErrReceiptNotFound      = errors.New("receipt not found")
	// ErrCartChanged is returned by Submit when the cart no longer matches
	// the reviewed snapshot. The session is back in review.
	ErrCartChanged = errors.New("cart changed since review")
)

// TransitionError reports an action that is not allowed in the current state.
type TransitionError struct {
	From   CheckoutState
	Action string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s not allowed in state %s", e.Action, e.From)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// IsClientError reports whether err is caused by the caller rather than
// by an adapter failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrEmptyCart) ||
		errors.Is(err, ErrPaymentMethodRequired) ||
		errors.Is(err, ErrInvalidPaymentMethod) ||
		errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, ErrCartLocked) ||
		errors.Is(err, ErrSessionActive) ||
		errors.Is(err, ErrCheckoutInProgress) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrNoSession) ||
		errors.Is(err, ErrCartChanged)
}
