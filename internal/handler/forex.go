package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"invoicer/internal/domain"
	"invoicer/internal/forex"
	"invoicer/pkg/logger"
	"invoicer/pkg/validator"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// streamedCurrencies are the pairs pushed over the websocket rate feed, all
// quoted against the reporting currency.
var streamedCurrencies = []domain.Currency{
	domain.EUR, domain.GBP, domain.CAD, domain.AUD, domain.JPY,
}

// ForexHandler exposes rate lookups and conversion previews.
type ForexHandler struct {
	service   *forex.Service
	validator *validator.Validator
	logger    logger.Logger
}

func NewForexHandler(service *forex.Service, val *validator.Validator, log logger.Logger) *ForexHandler {
	return &ForexHandler{
		service:   service,
		validator: val,
		logger:    log,
	}
}

// GetRate returns the rate for a pair given as ?from=EUR&to=USD.
func (h *ForexHandler) GetRate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from := domain.NormalizeCurrency(q.Get("from"))
	to := domain.NormalizeCurrency(q.Get("to"))
	if !from.Valid() || !to.Valid() {
		respondError(w, http.StatusBadRequest, "from and to must be 3-letter currency codes")
		return
	}

	rate, err := h.service.Rate(r.Context(), from, to)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"from": from,
		"to":   to,
		"rate": rate,
	})
}

// ConvertRequest is the payload for a conversion preview.
type ConvertRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"gte=0"`
	From   string          `json:"from" validate:"required,currency_code"`
	To     string          `json:"to" validate:"required,currency_code"`
}

// Convert computes a conversion without persisting anything.
func (h *ForexHandler) Convert(w http.ResponseWriter, r *http.Request) {
	var req ConvertRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if valErrs := h.validator.ValidateStructured(&req); valErrs != nil {
		respondValidationErrors(w, valErrs)
		return
	}

	result, err := h.service.Convert(r.Context(), req.Amount, req.From, req.To)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// WebSocketHandler streams reporting-currency rates to the client.
func (h *ForexHandler) WebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("WebSocket upgrade failed", map[string]interface{}{"error": err.Error()})
		return
	}
	defer conn.Close()

	// Reader whose only job is to notice the peer going away; without it a
	// close is only seen when the next periodic write fails.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := h.sendRates(r.Context(), conn); err != nil {
		return
	}

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := h.sendRates(r.Context(), conn); err != nil {
				h.logger.Debug("Closing rate stream", map[string]interface{}{"error": err.Error()})
				return
			}
		case <-done:
			return
		case <-r.Context().Done():
			return
		}
	}
}

type streamedRate struct {
	From domain.Currency `json:"from"`
	To   domain.Currency `json:"to"`
	Rate decimal.Decimal `json:"rate"`
}

func (h *ForexHandler) sendRates(ctx context.Context, conn *websocket.Conn) error {
	rates := make([]streamedRate, 0, len(streamedCurrencies))
	var failures []string

	for _, from := range streamedCurrencies {
		rate, err := h.service.Rate(ctx, from, domain.ReportingCurrency)
		if err != nil {
			failures = append(failures, string(from))
			continue
		}
		rates = append(rates, streamedRate{From: from, To: domain.ReportingCurrency, Rate: rate})
	}

	if len(failures) > 0 {
		h.logger.Warn("Some rates unavailable for stream", map[string]interface{}{
			"currencies": strings.Join(failures, ","),
		})
	}

	return conn.WriteJSON(map[string]interface{}{
		"type":      "rates_update",
		"timestamp": time.Now().UTC(),
		"rates":     rates,
	})
}
