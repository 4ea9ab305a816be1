package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/doanquockiet/be-exe-cho-do-cu/internal/service"
	"github.com/doanquockiet/be-exe-cho-do-cu/internal/vnpay"
)

type paymentService interface {
	CreatePaymentURL(ctx context.Context, userID primitive.ObjectID, in service.CreatePaymentInput) (*service.PaymentRedirect, error)
	VerifyReturn(params map[string]string) (string, bool)
}

type settlementService interface {
	HandleIPN(ctx context.Context, params map[string]string) service.SettlementResult
}

type PaymentHandler struct {
	payments   paymentService
	settlement settlementService
}

func NewPaymentHandler(payments paymentService, settlement settlementService) *PaymentHandler {
	return &PaymentHandler{payments: payments, settlement: settlement}
}

type CreatePaymentRequestDTO struct {
	OrderDescription string `json:"order_description"`
	BankCode         string `json:"bank_code,omitempty"`
	Language         string `json:"language,omitempty"`
}

func (h *PaymentHandler) CreatePaymentURL(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req CreatePaymentRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.OrderDescription == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "order_description is required")
		return
	}

	redirect, err := h.payments.CreatePaymentURL(r.Context(), userID, service.CreatePaymentInput{
		OrderInfo: req.OrderDescription,
		BankCode:  req.BankCode,
		Locale:    req.Language,
		IPAddr:    clientIP(r),
	})
	if errors.Is(err, service.ErrEmptyCart) {
		respondError(w, http.StatusBadRequest, "empty_cart", "cart is empty")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal", "failed to create payment URL")
		return
	}

	respondJSON(w, http.StatusOK, redirect)
}

// IPN receives the gateway's asynchronous notification. The HTTP status
// mirrors the gateway protocol: 200 for accepted/rejected outcomes, 400 for
// a checksum failure, 500 when settlement failed and the gateway should
// redeliver.
func (h *PaymentHandler) IPN(w http.ResponseWriter, r *http.Request) {
	params := vnpay.ParseCallback(r.URL.Query())
	result := h.settlement.HandleIPN(r.Context(), params)

	status := http.StatusOK
	switch result.RspCode {
	case service.RspChecksumFailed:
		status = http.StatusBadRequest
	case service.RspInternalError:
		status = http.StatusInternalServerError
	}
	respondJSON(w, status, result)
}

type ReturnResponseDTO struct {
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Data    map[string]string `json:"data,omitempty"`
}

// Return handles the browser redirect after payment. Informational only: the
// user sees the outcome here, but state changed (or will change) through the
// IPN path.
func (h *PaymentHandler) Return(w http.ResponseWriter, r *http.Request) {
	params := vnpay.ParseCallback(r.URL.Query())

	responseCode, ok := h.payments.VerifyReturn(params)
	if !ok {
		respondJSON(w, http.StatusBadRequest, ReturnResponseDTO{
			Status:  "error",
			Message: "invalid signature",
		})
		return
	}

	if responseCode == vnpay.ResponseCodeSuccess {
		respondJSON(w, http.StatusOK, ReturnResponseDTO{
			Status:  "success",
			Message: "payment completed",
			Data:    params,
		})
		return
	}

	respondJSON(w, http.StatusOK, ReturnResponseDTO{
		Status:  "failed",
		Message: "payment failed with code " + responseCode,
	})
}
