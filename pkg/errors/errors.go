// Package errors provides common, reusable error values and helpers.
package errors

import (
	"errors"
	"fmt"
)

// Common errors
var (
	ErrAccountNotFound   = errors.New("account not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrInvoiceNotFound  = errors.New("invoice not found")
	ErrInvalidStatus    = errors.New("invalid invoice status")
	ErrInvoicePaid      = errors.New("invoice already paid")

	// Conversion errors
	ErrInvalidAmount       = errors.New("amount must be a non-negative number")
	ErrInvalidCurrency     = errors.New("currency must be a 3-letter code")
	ErrUnsupportedCurrency = errors.New("currency not supported by rate provider")
	ErrProviderFailure     = errors.New("failed to fetch exchange rate")

	ErrInvalidRateType = errors.New("rate must be either 'historic' or 'current'")
)

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
