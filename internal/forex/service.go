// Package forex implements exchange rate retrieval, caching, and currency
// conversion.
package forex

import (
	"context"
	"fmt"
	"time"

	"invoicer/internal/domain"
	apperrors "invoicer/pkg/errors"
	"invoicer/pkg/logger"

	"github.com/shopspring/decimal"
)

// Conversion is the result of converting an amount between two currencies.
// ConvertedAmount is exactly Amount multiplied by Rate; rounding happens
// only at presentation.
type Conversion struct {
	Amount          decimal.Decimal `json:"amount"`
	From            domain.Currency `json:"from"`
	To              domain.Currency `json:"to"`
	ConvertedAmount decimal.Decimal `json:"converted_amount"`
	Rate            decimal.Decimal `json:"rate"`
}

// Service converts amounts between currencies, consulting the cache before
// the provider and storing fresh rates best-effort.
type Service struct {
	provider RateProvider
	cache    RateCache
	cacheTTL time.Duration
	logger   logger.Logger
}

// NewService constructs a converter around a provider and a cache. The cache
// client handle is injected; its lifecycle belongs to the process bootstrap.
func NewService(provider RateProvider, cache RateCache, cacheTTL time.Duration, log logger.Logger) *Service {
	return &Service{
		provider: provider,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   log,
	}
}

var one = decimal.NewFromInt(1)

// Convert converts amount from one currency to another. Self-conversion
// returns (amount, 1) without touching the cache or the network.
func (s *Service) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (*Conversion, error) {
	if amount.IsNegative() {
		return nil, apperrors.ErrInvalidAmount
	}

	fromCur := domain.NormalizeCurrency(from)
	toCur := domain.NormalizeCurrency(to)
	if !fromCur.Valid() {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrInvalidCurrency, from)
	}
	if !toCur.Valid() {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrInvalidCurrency, to)
	}

	if fromCur == toCur {
		return &Conversion{
			Amount:          amount,
			From:            fromCur,
			To:              toCur,
			ConvertedAmount: amount,
			Rate:            one,
		}, nil
	}

	rate, err := s.Rate(ctx, fromCur, toCur)
	if err != nil {
		return nil, err
	}

	return &Conversion{
		Amount:          amount,
		From:            fromCur,
		To:              toCur,
		ConvertedAmount: amount.Mul(rate),
		Rate:            rate,
	}, nil
}

// Rate returns the exchange rate for a normalized pair, fetching from the
// provider on a cache miss. Concurrent callers may race to populate the same
// key; last write wins.
func (s *Service) Rate(ctx context.Context, from, to domain.Currency) (decimal.Decimal, error) {
	if from == to {
		return one, nil
	}

	if rate, ok := s.cache.Get(ctx, from, to); ok {
		return rate, nil
	}

	s.logger.Info("Rate cache miss, fetching from provider", map[string]interface{}{
		"from":     string(from),
		"to":       string(to),
		"provider": s.provider.Name(),
	})

	rate, err := s.provider.FetchRate(ctx, from, to)
	if err != nil {
		return decimal.Zero, err
	}

	s.cache.Set(ctx, from, to, rate, s.cacheTTL)

	return rate, nil
}
