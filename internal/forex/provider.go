package forex

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"invoicer/internal/domain"
	apperrors "invoicer/pkg/errors"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

// RateProvider supplies exchange rates from an external quote source.
type RateProvider interface {
	Name() string
	FetchRate(ctx context.Context, from, to domain.Currency) (decimal.Decimal, error)
}

// ExchangeRateAPIProvider fetches rates from an exchangerate-api style
// endpoint: GET {base}/{api_key}/latest/{FROM} returns a JSON document with
// a "result" flag and a "conversion_rates" table keyed by target currency.
type ExchangeRateAPIProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewExchangeRateAPIProvider constructs a provider with a fixed request
// timeout. A single attempt is made per call; retries belong to the caller.
func NewExchangeRateAPIProvider(baseURL, apiKey string, timeout time.Duration) *ExchangeRateAPIProvider {
	return &ExchangeRateAPIProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (p *ExchangeRateAPIProvider) Name() string {
	return "ExchangeRateAPI"
}

// FetchRate returns the rate quoted for one unit of from in to. Both codes
// must already be normalized and non-identical.
func (p *ExchangeRateAPIProvider) FetchRate(ctx context.Context, from, to domain.Currency) (decimal.Decimal, error) {
	url := fmt.Sprintf("%s/%s/latest/%s", p.baseURL, p.apiKey, from)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: building request: %v", apperrors.ErrProviderFailure, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", apperrors.ErrProviderFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("%w: provider returned status %d", apperrors.ErrProviderFailure, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: reading response: %v", apperrors.ErrProviderFailure, err)
	}

	if result := gjson.GetBytes(body, "result"); result.String() != "success" {
		errType := gjson.GetBytes(body, "error-type").String()
		if errType == "" {
			errType = "unknown error"
		}
		return decimal.Zero, fmt.Errorf("%w: provider result %q (%s)", apperrors.ErrProviderFailure, result.String(), errType)
	}

	quote := gjson.GetBytes(body, "conversion_rates."+string(to))
	if !quote.Exists() {
		return decimal.Zero, fmt.Errorf("%w: %s not quoted for base %s", apperrors.ErrUnsupportedCurrency, to, from)
	}

	// quote.Raw is the untouched JSON number text, so no float round-trip.
	rate, err := decimal.NewFromString(quote.Raw)
	if err != nil || rate.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("%w: unusable rate %q for %s->%s", apperrors.ErrProviderFailure, quote.Raw, from, to)
	}

	return rate, nil
}
