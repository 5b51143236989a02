package services

import (
	"errors"
	"fmt"

	"food-ordering-api/statemachine"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrInvalidTransition = statemachine.ErrInvalidTransition
	ErrPaymentFailed     = errors.New("payment failed")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrInvalidRating     = errors.New("rating must be an integer from 1 to 5")
	ErrInvalidPromo      = errors.New("invalid promo code")
	ErrInvalidQuantity   = errors.New("quantity must be at least 1")
)

// PaymentFailedError carries the processor status that ended the attempt
type PaymentFailedError struct {
	Status string
	Reason string
}

func (e *PaymentFailedError) Error() string {
	msg := "payment failed with status: " + e.Status
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	return msg
}

func (e *PaymentFailedError) Unwrap() error { return ErrPaymentFailed }

func notFound(what string) error {
	return fmt.Errorf("%s %w", what, ErrNotFound)
}
