package handler

import (
	"net/http"

	"invoicer/internal/analytics"
	"invoicer/internal/domain"
	"invoicer/internal/middleware"
	"invoicer/pkg/logger"
)

// AnalyticsHandler serves revenue aggregation endpoints.
type AnalyticsHandler struct {
	service *analytics.Service
	logger  logger.Logger
}

func NewAnalyticsHandler(service *analytics.Service, log logger.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		service: service,
		logger:  log,
	}
}

// RevenueSummary returns the account's total revenue in the reporting
// currency. Query parameter "rate" selects the historic (default) or
// current rate policy.
func (h *AnalyticsHandler) RevenueSummary(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.AccountIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	result, err := h.service.RevenueSummary(r.Context(), accountID, r.URL.Query().Get("rate"))
	if err != nil {
		h.logger.Error("Revenue summary failed", map[string]interface{}{
			"account_id": accountID.String(),
			"error":      err.Error(),
		})
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// AverageInvoiceSize returns the account's average invoice size in the
// target currency (query parameter "currency", default USD), with
// conversion fees applied to non-matching currency groups.
func (h *AnalyticsHandler) AverageInvoiceSize(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.AccountIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	target := r.URL.Query().Get("currency")
	if target == "" {
		target = string(domain.ReportingCurrency)
	}

	result, err := h.service.AverageInvoiceSize(r.Context(), accountID, target)
	if err != nil {
		h.logger.Error("Average invoice size failed", map[string]interface{}{
			"account_id": accountID.String(),
			"error":      err.Error(),
		})
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}
