package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"invoicer/internal/domain"
	"invoicer/internal/forex"
	"invoicer/pkg/logger"
	"invoicer/pkg/validator"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticProvider struct {
	rate decimal.Decimal
}

func (p *staticProvider) Name() string { return "static" }

func (p *staticProvider) FetchRate(ctx context.Context, from, to domain.Currency) (decimal.Decimal, error) {
	return p.rate, nil
}

type noopCache struct{}

func (noopCache) Get(ctx context.Context, from, to domain.Currency) (decimal.Decimal, bool) {
	return decimal.Zero, false
}

func (noopCache) Set(ctx context.Context, from, to domain.Currency, rate decimal.Decimal, ttl time.Duration) {
}

func newTestForexHandler() *ForexHandler {
	svc := forex.NewService(
		&staticProvider{rate: decimal.RequireFromString("1.0863")},
		noopCache{},
		time.Minute,
		logger.NewNop(),
	)
	return NewForexHandler(svc, validator.New(), logger.NewNop())
}

func TestWebSocketStream_SendsInitialRates(t *testing.T) {
	h := newTestForexHandler()

	srv := httptest.NewServer(http.HandlerFunc(h.WebSocketHandler))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	var msg struct {
		Type  string `json:"type"`
		Rates []struct {
			From string `json:"from"`
			To   string `json:"to"`
		} `json:"rates"`
	}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "rates_update", msg.Type)
	require.NotEmpty(t, msg.Rates)
	for _, r := range msg.Rates {
		assert.Equal(t, string(domain.ReportingCurrency), r.To)
	}
}

func TestWebSocketStream_ExitsPromptlyOnClientClose(t *testing.T) {
	h := newTestForexHandler()

	handlerDone := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.WebSocketHandler(w, r)
		close(handlerDone)
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}

	var first map[string]interface{}
	require.NoError(t, conn.ReadJSON(&first))

	require.NoError(t, conn.Close())

	// The stream must notice the disconnect well before the next 30s tick.
	select {
	case <-handlerDone:
	case <-time.After(2 * time.Second):
		t.Fatal("stream goroutine still running after client disconnect")
	}
}
