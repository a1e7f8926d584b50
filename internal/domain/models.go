// Package domain defines the core data model shared across services.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Currency is an uppercase 3-letter ISO-style currency code.
type Currency string

// ReportingCurrency is the single currency all aggregate figures are
// expressed in.
const ReportingCurrency = USD

const (
	USD Currency = "USD"
	EUR Currency = "EUR"
	GBP Currency = "GBP"
	CAD Currency = "CAD"
	AUD Currency = "AUD"
	JPY Currency = "JPY"
)

// NormalizeCurrency trims and uppercases a currency code.
func NormalizeCurrency(code string) Currency {
	return Currency(strings.ToUpper(strings.TrimSpace(code)))
}

// Valid reports whether the code is exactly 3 letters after normalization.
func (c Currency) Valid() bool {
	if len(c) != 3 {
		return false
	}
	for _, r := range c {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// Account is a tenant. Users and invoices belong to exactly one account.
type Account struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// User is a member of an account.
type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	AccountID    uuid.UUID `json:"account_id" db:"account_id"`
	Email        string    `json:"email" db:"email"`
	Name         string    `json:"name" db:"name"`
	PasswordHash string    `json:"-" db:"password_hash"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	LastLogin    *time.Time `json:"last_login,omitempty" db:"last_login"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// InvoiceStatus represents invoice lifecycle states.
type InvoiceStatus string

const (
	InvoiceStatusPending InvoiceStatus = "PENDING"
	InvoiceStatusPaid    InvoiceStatus = "PAID"
)

// Valid reports whether the status is one of the known states.
func (s InvoiceStatus) Valid() bool {
	return s == InvoiceStatusPending || s == InvoiceStatusPaid
}

// Invoice carries an original amount/currency plus the USD amount computed
// with the exchange rate in effect when it was created or last updated.
type Invoice struct {
	ID               uuid.UUID       `json:"id" db:"id"`
	AccountID        uuid.UUID       `json:"account_id" db:"account_id"`
	OriginalAmount   decimal.Decimal `json:"original_amount" db:"original_amount"`
	OriginalCurrency Currency        `json:"original_currency" db:"original_currency"`
	ExchangeRate     decimal.Decimal `json:"exchange_rate" db:"exchange_rate"`
	ConvertedAmount  decimal.Decimal `json:"converted_amount" db:"converted_amount"`
	Status           InvoiceStatus   `json:"status" db:"status"`
	CreatedAt        time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at" db:"updated_at"`
}

// CurrencyGroup is the grouped projection of an account's invoices: one row
// per distinct original currency with the summed original amount and the
// number of invoices in the group.
type CurrencyGroup struct {
	Currency Currency        `json:"currency" db:"original_currency"`
	Total    decimal.Decimal `json:"total" db:"total"`
	Count    int64           `json:"count" db:"count"`
}
