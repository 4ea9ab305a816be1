package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/doanquockiet/be-exe-cho-do-cu/internal/domain"
	"github.com/doanquockiet/be-exe-cho-do-cu/internal/service"
)

type checkoutService interface {
	Checkout(ctx context.Context, userID primitive.ObjectID, productIDs []primitive.ObjectID) (*domain.Order, error)
}

type CheckoutHandler struct {
	checkout checkoutService
}

func NewCheckoutHandler(checkout checkoutService) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout}
}

type CheckoutRequestDTO struct {
	ProductIDs []string `json:"product_ids"`
}

type CheckoutResponseDTO struct {
	Message string        `json:"message"`
	Order   *domain.Order `json:"order"`
}

func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req CheckoutRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if len(req.ProductIDs) == 0 {
		respondError(w, http.StatusBadRequest, "invalid_request", "product_ids must not be empty")
		return
	}

	productIDs := make([]primitive.ObjectID, 0, len(req.ProductIDs))
	for _, raw := range req.ProductIDs {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_product_id", "invalid product id: "+raw)
			return
		}
		productIDs = append(productIDs, id)
	}

	order, err := h.checkout.Checkout(r.Context(), userID, productIDs)
	if err != nil {
		respondCheckoutError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, CheckoutResponseDTO{Message: "Checkout successful", Order: order})
}

func respondCheckoutError(w http.ResponseWriter, err error) {
	var stockErr *service.InsufficientStockError
	var missingErr *service.ProductNotFoundError

	switch {
	case errors.Is(err, service.ErrEmptyCart):
		respondError(w, http.StatusBadRequest, "empty_cart", "cart is empty")
	case errors.Is(err, service.ErrNoSelectedItems):
		respondError(w, http.StatusBadRequest, "no_selected_items", "no cart items matched the requested products")
	case errors.As(err, &stockErr):
		respondError(w, http.StatusConflict, "insufficient_stock", stockErr.Error())
	case errors.As(err, &missingErr):
		respondError(w, http.StatusNotFound, "product_not_found", missingErr.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal", "checkout failed")
	}
}
