package http

import (
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Tinii1601/DA-SE347/internal/service"
	"github.com/Tinii1601/DA-SE347/pkg/httputil"
	"github.com/Tinii1601/DA-SE347/pkg/middleware"
)

// PaymentHandler handles HTTP requests for payment endpoints, including the
// gateway's return redirect and webhook.
type PaymentHandler struct {
	service *service.PaymentService
	logger  *slog.Logger
}

// NewPaymentHandler creates a new payment HTTP handler.
func NewPaymentHandler(svc *service.PaymentService, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: svc,
		logger:  logger,
	}
}

// Initiate handles POST /api/v1/payments/{orderID}/payos
func (h *PaymentHandler) Initiate(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.InitiatePayment(r.Context(), chi.URLParam(r, "orderID"),
		middleware.UserIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

// Return handles GET /api/v1/payments/return — the gateway's redirect back
// to the storefront, carrying orderCode and its result code in the query.
func (h *PaymentHandler) Return(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	orderCode, err := strconv.ParseInt(q.Get("orderCode"), 10, 64)
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid orderCode"},
		})
		return
	}

	result, err := h.service.HandleReturn(r.Context(), cartKey(r), orderCode, q.Get("code"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

// Webhook handles POST /api/v1/payments/webhook. An unverifiable payload
// gets a 400 so the gateway retries later.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "unreadable payload"},
		})
		return
	}

	if err := h.service.HandleWebhook(r.Context(), payload); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Status handles GET /api/v1/payments/{orderID}/status
func (h *PaymentHandler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.PollStatus(r.Context(), chi.URLParam(r, "orderID"),
		middleware.UserIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{"status": status}})
}

// BankTransfer handles GET /api/v1/payments/{orderID}/bank-transfer
func (h *PaymentHandler) BankTransfer(w http.ResponseWriter, r *http.Request) {
	details, err := h.service.BankTransferDetails(r.Context(), chi.URLParam(r, "orderID"),
		middleware.UserIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: details})
}

// ConfirmBankTransfer handles POST /api/v1/payments/{orderID}/bank-transfer/confirm
func (h *PaymentHandler) ConfirmBankTransfer(w http.ResponseWriter, r *http.Request) {
	err := h.service.ConfirmBankTransfer(r.Context(), cartKey(r), chi.URLParam(r, "orderID"),
		middleware.UserIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{
		"status":  "reported",
		"message": "transfer recorded, the order will be confirmed after manual verification",
	}})
}
