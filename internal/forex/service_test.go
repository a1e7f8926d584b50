package forex

import (
	"context"
	"testing"
	"time"

	"invoicer/internal/domain"
	apperrors "invoicer/pkg/errors"
	"invoicer/pkg/logger"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- Mocks ---

type MockRateProvider struct {
	mock.Mock
}

func (m *MockRateProvider) Name() string {
	return "MockProvider"
}

func (m *MockRateProvider) FetchRate(ctx context.Context, from, to domain.Currency) (decimal.Decimal, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

// fakeRateCache is an in-memory RateCache with a controllable clock so tests
// can cross the TTL boundary without sleeping.
type fakeRateCache struct {
	now     func() time.Time
	entries map[string]fakeEntry
	gets    int
	sets    int
}

type fakeEntry struct {
	rate      decimal.Decimal
	expiresAt time.Time
}

func newFakeRateCache() *fakeRateCache {
	return &fakeRateCache{
		now:     time.Now,
		entries: make(map[string]fakeEntry),
	}
}

func (c *fakeRateCache) Get(ctx context.Context, from, to domain.Currency) (decimal.Decimal, bool) {
	c.gets++
	e, ok := c.entries[cacheKey(from, to)]
	if !ok || c.now().After(e.expiresAt) {
		return decimal.Zero, false
	}
	return e.rate, true
}

func (c *fakeRateCache) Set(ctx context.Context, from, to domain.Currency, rate decimal.Decimal, ttl time.Duration) {
	c.sets++
	c.entries[cacheKey(from, to)] = fakeEntry{rate: rate, expiresAt: c.now().Add(ttl)}
}

func newTestService(provider RateProvider, cache RateCache) *Service {
	return NewService(provider, cache, 300*time.Second, logger.NewNop())
}

// --- Tests ---

func TestConvert_SameCurrencyBypassesCacheAndProvider(t *testing.T) {
	provider := new(MockRateProvider)
	cache := newFakeRateCache()
	svc := newTestService(provider, cache)

	result, err := svc.Convert(context.Background(), decimal.NewFromInt(100), " usd ", "USD")
	require.NoError(t, err)

	assert.True(t, result.ConvertedAmount.Equal(decimal.NewFromInt(100)))
	assert.True(t, result.Rate.Equal(decimal.NewFromInt(1)))
	assert.Equal(t, domain.USD, result.From)
	assert.Equal(t, domain.USD, result.To)
	assert.Equal(t, 0, cache.gets)
	assert.Equal(t, 0, cache.sets)
	provider.AssertNotCalled(t, "FetchRate", mock.Anything, mock.Anything, mock.Anything)
}

func TestConvert_ConvertedAmountIsExactMultiply(t *testing.T) {
	provider := new(MockRateProvider)
	cache := newFakeRateCache()
	svc := newTestService(provider, cache)

	rate := decimal.RequireFromString("1.0863")
	provider.On("FetchRate", mock.Anything, domain.EUR, domain.USD).Return(rate, nil).Once()

	amount := decimal.RequireFromString("123.45")
	result, err := svc.Convert(context.Background(), amount, "EUR", "USD")
	require.NoError(t, err)

	assert.True(t, result.ConvertedAmount.Equal(amount.Mul(rate)),
		"converted amount must equal amount * rate exactly")
	assert.True(t, result.Rate.Equal(rate))
}

func TestConvert_NegativeAmount(t *testing.T) {
	provider := new(MockRateProvider)
	cache := newFakeRateCache()
	svc := newTestService(provider, cache)

	_, err := svc.Convert(context.Background(), decimal.NewFromInt(-1), "EUR", "USD")
	assert.ErrorIs(t, err, apperrors.ErrInvalidAmount)
	provider.AssertNotCalled(t, "FetchRate", mock.Anything, mock.Anything, mock.Anything)
}

func TestConvert_InvalidCurrencyCode(t *testing.T) {
	provider := new(MockRateProvider)
	svc := newTestService(provider, newFakeRateCache())

	_, err := svc.Convert(context.Background(), decimal.NewFromInt(10), "EURO", "USD")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCurrency)

	_, err = svc.Convert(context.Background(), decimal.NewFromInt(10), "EUR", "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCurrency)
}

func TestConvert_CacheRoundTrip(t *testing.T) {
	provider := new(MockRateProvider)
	cache := newFakeRateCache()
	svc := newTestService(provider, cache)

	rate := decimal.RequireFromString("1.1")
	provider.On("FetchRate", mock.Anything, domain.EUR, domain.USD).Return(rate, nil).Once()

	first, err := svc.Convert(context.Background(), decimal.NewFromInt(50), "EUR", "USD")
	require.NoError(t, err)

	// Second call within the TTL window must be served from cache.
	second, err := svc.Convert(context.Background(), decimal.NewFromInt(80), "eur", "usd")
	require.NoError(t, err)

	assert.True(t, first.Rate.Equal(second.Rate))
	provider.AssertNumberOfCalls(t, "FetchRate", 1)
	assert.Equal(t, 1, cache.sets)
}

func TestConvert_ExpiredEntryTriggersRefetch(t *testing.T) {
	provider := new(MockRateProvider)
	cache := newFakeRateCache()
	svc := newTestService(provider, cache)

	provider.On("FetchRate", mock.Anything, domain.EUR, domain.USD).
		Return(decimal.RequireFromString("1.1"), nil).Twice()

	base := time.Now()
	cache.now = func() time.Time { return base }

	_, err := svc.Convert(context.Background(), decimal.NewFromInt(50), "EUR", "USD")
	require.NoError(t, err)

	cache.now = func() time.Time { return base.Add(301 * time.Second) }

	_, err = svc.Convert(context.Background(), decimal.NewFromInt(50), "EUR", "USD")
	require.NoError(t, err)

	provider.AssertNumberOfCalls(t, "FetchRate", 2)
}

func TestConvert_ProviderFailurePropagatesAndNothingIsCached(t *testing.T) {
	provider := new(MockRateProvider)
	cache := newFakeRateCache()
	svc := newTestService(provider, cache)

	provider.On("FetchRate", mock.Anything, domain.EUR, domain.USD).
		Return(decimal.Zero, apperrors.ErrProviderFailure).Once()

	_, err := svc.Convert(context.Background(), decimal.NewFromInt(50), "EUR", "USD")
	assert.ErrorIs(t, err, apperrors.ErrProviderFailure)
	assert.Equal(t, 0, cache.sets)
}

func TestConvert_UnsupportedCurrencyNothingCached(t *testing.T) {
	provider := new(MockRateProvider)
	cache := newFakeRateCache()
	svc := newTestService(provider, cache)

	provider.On("FetchRate", mock.Anything, domain.EUR, domain.Currency("XXX")).
		Return(decimal.Zero, apperrors.ErrUnsupportedCurrency).Once()

	_, err := svc.Convert(context.Background(), decimal.NewFromInt(50), "EUR", "XXX")
	assert.ErrorIs(t, err, apperrors.ErrUnsupportedCurrency)
	assert.Equal(t, 0, cache.sets)
}

func TestRate_SameCurrencyIsAlwaysOne(t *testing.T) {
	provider := new(MockRateProvider)
	svc := newTestService(provider, newFakeRateCache())

	rate, err := svc.Rate(context.Background(), domain.JPY, domain.JPY)
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.NewFromInt(1)))
	provider.AssertNotCalled(t, "FetchRate", mock.Anything, mock.Anything, mock.Anything)
}
