package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/Tinii1601/DA-SE347/internal/service"
	"github.com/Tinii1601/DA-SE347/pkg/httputil"
	"github.com/Tinii1601/DA-SE347/pkg/middleware"
	"github.com/Tinii1601/DA-SE347/pkg/validator"
)

// CheckoutHandler handles HTTP requests for coupon preview and checkout.
type CheckoutHandler struct {
	service *service.CheckoutService
	logger  *slog.Logger
}

// NewCheckoutHandler creates a new checkout HTTP handler.
func NewCheckoutHandler(svc *service.CheckoutService, logger *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// ApplyCouponRequest is the JSON request body for attaching a coupon.
type ApplyCouponRequest struct {
	Code string `json:"code" validate:"required"`
}

// PlaceOrderRequest is the JSON request body for committing a checkout.
type PlaceOrderRequest struct {
	PaymentMethod string                `json:"payment_method" validate:"required,oneof=cod payos bank_transfer"`
	Notes         string                `json:"notes"`
	AddressID     string                `json:"address_id" validate:"omitempty,uuid"`
	Address       *service.AddressInput `json:"address"`
}

// --- Handlers ---

// ApplyCoupon handles POST /api/v1/cart/coupon
func (h *CheckoutHandler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req ApplyCouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	result, err := h.service.ApplyCoupon(r.Context(), cartKey(r), req.Code)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

// RemoveCoupon handles DELETE /api/v1/cart/coupon
func (h *CheckoutHandler) RemoveCoupon(w http.ResponseWriter, r *http.Request) {
	if err := h.service.RemoveCoupon(r.Context(), cartKey(r)); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PlaceOrder handles POST /api/v1/checkout
func (h *CheckoutHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req PlaceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	order, err := h.service.PlaceOrder(r.Context(), service.PlaceOrderInput{
		UserID:        middleware.UserIDFromContext(r.Context()),
		SessionKey:    cartKey(r),
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
		AddressID:     req.AddressID,
		Address:       req.Address,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: order})
}

// ListAddresses handles GET /api/v1/addresses
func (h *CheckoutHandler) ListAddresses(w http.ResponseWriter, r *http.Request) {
	addresses, err := h.service.ListAddresses(r.Context(), middleware.UserIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: addresses})
}
