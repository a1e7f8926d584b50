package handler

import (
	"net/http"
	"strconv"

	"invoicer/internal/invoice"
	"invoicer/internal/middleware"
	"invoicer/pkg/logger"
	"invoicer/pkg/validator"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// InvoiceHandler manages invoice CRUD endpoints, all scoped to the
// authenticated user's account.
type InvoiceHandler struct {
	service   *invoice.Service
	validator *validator.Validator
	logger    logger.Logger
}

func NewInvoiceHandler(service *invoice.Service, val *validator.Validator, log logger.Logger) *InvoiceHandler {
	return &InvoiceHandler{
		service:   service,
		validator: val,
		logger:    log,
	}
}

// Create creates an invoice, converting the original amount at today's rate.
func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.AccountIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req invoice.CreateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if valErrs := h.validator.ValidateStructured(&req); valErrs != nil {
		respondValidationErrors(w, valErrs)
		return
	}

	inv, err := h.service.Create(r.Context(), accountID, &req)
	if err != nil {
		h.logger.Error("Invoice creation failed", map[string]interface{}{
			"account_id": accountID.String(),
			"error":      err.Error(),
		})
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, inv)
}

// List returns a page of the account's invoices.
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.AccountIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	limit := 50
	offset := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	result, err := h.service.List(r.Context(), accountID, limit, offset)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Get returns a single invoice.
func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	accountID, invoiceID, ok := h.scope(w, r)
	if !ok {
		return
	}

	inv, err := h.service.Get(r.Context(), accountID, invoiceID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, inv)
}

// Update applies changes, re-running the conversion when amount or currency
// changed.
func (h *InvoiceHandler) Update(w http.ResponseWriter, r *http.Request) {
	accountID, invoiceID, ok := h.scope(w, r)
	if !ok {
		return
	}

	var req invoice.UpdateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if valErrs := h.validator.ValidateStructured(&req); valErrs != nil {
		respondValidationErrors(w, valErrs)
		return
	}

	inv, err := h.service.Update(r.Context(), accountID, invoiceID, &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, inv)
}

// Delete removes an invoice.
func (h *InvoiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	accountID, invoiceID, ok := h.scope(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), accountID, invoiceID); err != nil {
		respondServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// scope extracts the account from the context and the invoice ID from the
// path, responding on failure.
func (h *InvoiceHandler) scope(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	accountID, ok := middleware.AccountIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Authentication required")
		return uuid.Nil, uuid.Nil, false
	}

	invoiceID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid invoice ID")
		return uuid.Nil, uuid.Nil, false
	}

	return accountID, invoiceID, true
}
