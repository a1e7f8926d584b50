// Package analytics aggregates invoice revenue figures in the reporting
// currency.
package analytics

import (
	"context"
	"fmt"
	"strings"

	"invoicer/internal/domain"
	"invoicer/internal/forex"
	apperrors "invoicer/pkg/errors"
	"invoicer/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Rate policies for revenue summaries.
const (
	RateTypeHistoric = "historic"
	RateTypeCurrent  = "current"
)

// InvoiceStats supplies the stored-invoice projections the aggregator
// consumes. Implemented by the postgres invoice repository.
type InvoiceStats interface {
	SumConvertedByAccount(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error)
	GroupByCurrency(ctx context.Context, accountID uuid.UUID) ([]domain.CurrencyGroup, error)
}

// Converter converts an amount between currencies.
type Converter interface {
	Convert(ctx context.Context, amount decimal.Decimal, from, to string) (*forex.Conversion, error)
}

// RevenueSummary is an account's total revenue in the reporting currency.
type RevenueSummary struct {
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	Currency     domain.Currency `json:"currency"`
	RateType     string          `json:"rate_type"`
}

// AverageInvoiceSize reports averages and totals in the target currency,
// before and after conversion fees. All figures are rounded to 2 decimal
// places for presentation.
type AverageInvoiceSize struct {
	AverageBeforeFees decimal.Decimal `json:"average_size_before_fees"`
	AverageAfterFees  decimal.Decimal `json:"average_size_after_fees"`
	GrossRevenue      decimal.Decimal `json:"gross_revenue"`
	NetRevenue        decimal.Decimal `json:"net_revenue"`
	Currency          domain.Currency `json:"currency"`
	InvoiceCount      int64           `json:"invoice_count"`
}

// Service computes revenue aggregates over an account's invoices. It is a
// pure aggregation pipeline over a snapshot of grouped data; the only
// external calls are one conversion per distinct currency.
type Service struct {
	invoices   InvoiceStats
	converter  Converter
	feePercent decimal.Decimal
	logger     logger.Logger
}

// NewService constructs the aggregator. feePercent is the conversion fee
// applied to converted group totals, as a percentage (2 means 2%).
func NewService(invoices InvoiceStats, converter Converter, feePercent decimal.Decimal, log logger.Logger) *Service {
	return &Service{
		invoices:   invoices,
		converter:  converter,
		feePercent: feePercent,
		logger:     log,
	}
}

var hundred = decimal.NewFromInt(100)

// RevenueSummary totals an account's revenue in the reporting currency.
//
// With the historic policy the stored converted amounts are summed directly:
// each already carries the rate in effect when the invoice was written, so
// no conversion call is made. With the current policy each distinct original
// currency's summed amount is converted at today's rate — one conversion per
// distinct currency, not per invoice.
func (s *Service) RevenueSummary(ctx context.Context, accountID uuid.UUID, rateType string) (*RevenueSummary, error) {
	rateType = strings.ToLower(strings.TrimSpace(rateType))
	if rateType == "" {
		rateType = RateTypeHistoric
	}

	var total decimal.Decimal

	switch rateType {
	case RateTypeHistoric:
		sum, err := s.invoices.SumConvertedByAccount(ctx, accountID)
		if err != nil {
			return nil, err
		}
		total = sum

	case RateTypeCurrent:
		groups, err := s.invoices.GroupByCurrency(ctx, accountID)
		if err != nil {
			return nil, err
		}
		for _, g := range groups {
			conv, err := s.converter.Convert(ctx, g.Total, string(g.Currency), string(domain.ReportingCurrency))
			if err != nil {
				return nil, fmt.Errorf("converting %s group: %w", g.Currency, err)
			}
			total = total.Add(conv.ConvertedAmount)
		}

	default:
		return nil, apperrors.ErrInvalidRateType
	}

	return &RevenueSummary{
		TotalRevenue: total.Round(2),
		Currency:     domain.ReportingCurrency,
		RateType:     rateType,
	}, nil
}

// AverageInvoiceSize computes the account's average invoice size in the
// target currency. The conversion fee applies to each converted group total,
// and is skipped entirely when the group's currency already matches the
// target. An account with no invoices yields a zero-filled result, not an
// error.
func (s *Service) AverageInvoiceSize(ctx context.Context, accountID uuid.UUID, targetCurrency string) (*AverageInvoiceSize, error) {
	target := domain.NormalizeCurrency(targetCurrency)
	if !target.Valid() {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrInvalidCurrency, targetCurrency)
	}

	groups, err := s.invoices.GroupByCurrency(ctx, accountID)
	if err != nil {
		return nil, err
	}

	if len(groups) == 0 {
		return &AverageInvoiceSize{Currency: target}, nil
	}

	var (
		grossRevenue decimal.Decimal
		totalFees    decimal.Decimal
		invoiceCount int64
	)

	for _, g := range groups {
		conv, err := s.converter.Convert(ctx, g.Total, string(g.Currency), string(target))
		if err != nil {
			return nil, fmt.Errorf("converting %s group: %w", g.Currency, err)
		}

		grossRevenue = grossRevenue.Add(conv.ConvertedAmount)
		invoiceCount += g.Count

		if g.Currency != target {
			totalFees = totalFees.Add(conv.ConvertedAmount.Mul(s.feePercent).Div(hundred))
		}
	}

	count := decimal.NewFromInt(invoiceCount)
	netRevenue := grossRevenue.Sub(totalFees)

	return &AverageInvoiceSize{
		AverageBeforeFees: grossRevenue.Div(count).Round(2),
		AverageAfterFees:  netRevenue.Div(count).Round(2),
		GrossRevenue:      grossRevenue.Round(2),
		NetRevenue:        netRevenue.Round(2),
		Currency:          target,
		InvoiceCount:      invoiceCount,
	}, nil
}
