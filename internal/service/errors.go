package service

import "errors"

var (
	ErrNotFound  = errors.New("not found")
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidInput marks failures the client caused and can correct.
	// Handlers map it to 4xx; anything unwrapped is treated as an internal
	// failure and surfaces as 5xx, never as a client error.
	ErrInvalidInput = errors.New("invalid input")

	// Checkout failures the client can act on.
	ErrUnsupportedCurrency = errors.New("unsupported currency")
	ErrPaymentFailed       = errors.New("payment verification failed")
	ErrCurrencyMismatch    = errors.New("gateway currency does not match order currency")
	ErrVariantNotFound     = errors.New("no such color/size combination")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrAmountMismatch      = errors.New("captured amount does not match order total")
)
