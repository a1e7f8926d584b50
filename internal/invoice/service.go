// Package invoice implements invoice CRUD with conversion-at-write: every
// create or update computes the USD amount using the rate then in effect and
// stores it alongside the original amount.
package invoice

import (
	"context"
	"fmt"
	"time"

	"invoicer/internal/domain"
	"invoicer/internal/forex"
	apperrors "invoicer/pkg/errors"
	"invoicer/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Repository defines persistence operations for invoices.
type Repository interface {
	Create(ctx context.Context, inv *domain.Invoice) error
	Update(ctx context.Context, inv *domain.Invoice) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Invoice, error)
	FindByAccount(ctx context.Context, accountID uuid.UUID, limit, offset int) ([]*domain.Invoice, error)
	CountByAccount(ctx context.Context, accountID uuid.UUID) (int, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Converter converts an amount between currencies.
type Converter interface {
	Convert(ctx context.Context, amount decimal.Decimal, from, to string) (*forex.Conversion, error)
}

// Service provides account-scoped invoice operations.
type Service struct {
	repo      Repository
	converter Converter
	logger    logger.Logger
}

func NewService(repo Repository, converter Converter, log logger.Logger) *Service {
	return &Service{
		repo:      repo,
		converter: converter,
		logger:    log,
	}
}

// CreateRequest captures the fields required to create an invoice.
type CreateRequest struct {
	Amount   decimal.Decimal `json:"amount" validate:"gte=0"`
	Currency string          `json:"currency" validate:"required,currency_code"`
}

// UpdateRequest carries optional changes to an invoice. Nil fields are left
// untouched; changing amount or currency re-runs the conversion at today's
// rate.
type UpdateRequest struct {
	Amount   *decimal.Decimal      `json:"amount,omitempty" validate:"omitempty,gte=0"`
	Currency *string               `json:"currency,omitempty" validate:"omitempty,currency_code"`
	Status   *domain.InvoiceStatus `json:"status,omitempty"`
}

// Create converts the original amount to the reporting currency and persists
// the invoice with the rate used.
func (s *Service) Create(ctx context.Context, accountID uuid.UUID, req *CreateRequest) (*domain.Invoice, error) {
	conv, err := s.converter.Convert(ctx, req.Amount, req.Currency, string(domain.ReportingCurrency))
	if err != nil {
		return nil, err
	}

	now := time.Now()
	inv := &domain.Invoice{
		ID:               uuid.New(),
		AccountID:        accountID,
		OriginalAmount:   req.Amount,
		OriginalCurrency: conv.From,
		ExchangeRate:     conv.Rate,
		ConvertedAmount:  conv.ConvertedAmount.Round(2),
		Status:           domain.InvoiceStatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.repo.Create(ctx, inv); err != nil {
		return nil, err
	}

	s.logger.Info("Invoice created", map[string]interface{}{
		"invoice_id": inv.ID.String(),
		"account_id": accountID.String(),
		"currency":   string(inv.OriginalCurrency),
		"rate":       inv.ExchangeRate.String(),
	})

	return inv, nil
}

// Get returns an invoice if it belongs to the given account.
func (s *Service) Get(ctx context.Context, accountID, invoiceID uuid.UUID) (*domain.Invoice, error) {
	inv, err := s.repo.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.AccountID != accountID {
		return nil, apperrors.ErrInvoiceNotFound
	}
	return inv, nil
}

// ListResult is a page of invoices with the account's total count.
type ListResult struct {
	Invoices []*domain.Invoice `json:"invoices"`
	Total    int               `json:"total"`
	Limit    int               `json:"limit"`
	Offset   int               `json:"offset"`
}

// List returns a page of the account's invoices, newest first.
func (s *Service) List(ctx context.Context, accountID uuid.UUID, limit, offset int) (*ListResult, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	invoices, err := s.repo.FindByAccount(ctx, accountID, limit, offset)
	if err != nil {
		return nil, err
	}

	total, err := s.repo.CountByAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if invoices == nil {
		invoices = []*domain.Invoice{}
	}

	return &ListResult{Invoices: invoices, Total: total, Limit: limit, Offset: offset}, nil
}

// Update applies changes to an invoice. When the amount or currency changes
// the conversion is recomputed at the current rate, overwriting the stored
// converted amount and rate.
func (s *Service) Update(ctx context.Context, accountID, invoiceID uuid.UUID, req *UpdateRequest) (*domain.Invoice, error) {
	inv, err := s.Get(ctx, accountID, invoiceID)
	if err != nil {
		return nil, err
	}

	reconvert := false

	if req.Amount != nil && !req.Amount.Equal(inv.OriginalAmount) {
		inv.OriginalAmount = *req.Amount
		reconvert = true
	}
	if req.Currency != nil {
		cur := domain.NormalizeCurrency(*req.Currency)
		if cur != inv.OriginalCurrency {
			inv.OriginalCurrency = cur
			reconvert = true
		}
	}
	if req.Status != nil {
		if !req.Status.Valid() {
			return nil, fmt.Errorf("%w: %q", apperrors.ErrInvalidStatus, *req.Status)
		}
		inv.Status = *req.Status
	}

	if reconvert {
		conv, err := s.converter.Convert(ctx, inv.OriginalAmount, string(inv.OriginalCurrency), string(domain.ReportingCurrency))
		if err != nil {
			return nil, err
		}
		inv.ExchangeRate = conv.Rate
		inv.ConvertedAmount = conv.ConvertedAmount.Round(2)
	}

	inv.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, inv); err != nil {
		return nil, err
	}

	return inv, nil
}

// Delete removes an account's invoice.
func (s *Service) Delete(ctx context.Context, accountID, invoiceID uuid.UUID) error {
	if _, err := s.Get(ctx, accountID, invoiceID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, invoiceID)
}
