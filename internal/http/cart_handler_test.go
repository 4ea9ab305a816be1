package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/doanquockiet/be-exe-cho-do-cu/internal/domain"
	"github.com/doanquockiet/be-exe-cho-do-cu/internal/repository"
)

type stubCartService struct {
	cart *domain.Cart
	err  error

	addedProductID primitive.ObjectID
	addedQuantity  int
	removed        primitive.ObjectID
}

func (s *stubCartService) GetCart(ctx context.Context, userID primitive.ObjectID) (*domain.Cart, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.cart != nil {
		return s.cart, nil
	}
	return &domain.Cart{UserID: userID}, nil
}

func (s *stubCartService) AddItem(ctx context.Context, userID, productID primitive.ObjectID, quantity int) error {
	s.addedProductID = productID
	s.addedQuantity = quantity
	return s.err
}

func (s *stubCartService) RemoveItem(ctx context.Context, userID, productID primitive.ObjectID) error {
	s.removed = productID
	return s.err
}

func TestCartHandler_AddItem(t *testing.T) {
	stub := &stubCartService{}
	h := NewCartHandler(stub)

	productID := primitive.NewObjectID()
	body := `{"product_id":"` + productID.Hex() + `","quantity":2}`
	rec := httptest.NewRecorder()
	h.AddItem(rec, authedRequest(http.MethodPost, "/api/cart/add", body, primitive.NewObjectID()))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, productID, stub.addedProductID)
	assert.Equal(t, 2, stub.addedQuantity)
}

func TestCartHandler_AddItem_Validation(t *testing.T) {
	productID := primitive.NewObjectID().Hex()
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{`},
		{"bad product id", `{"product_id":"nope","quantity":1}`},
		{"zero quantity", `{"product_id":"` + productID + `","quantity":0}`},
		{"negative quantity", `{"product_id":"` + productID + `","quantity":-1}`},
		{"excessive quantity", `{"product_id":"` + productID + `","quantity":100}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewCartHandler(&stubCartService{})

			rec := httptest.NewRecorder()
			h.AddItem(rec, authedRequest(http.MethodPost, "/api/cart/add", tt.body, primitive.NewObjectID()))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestCartHandler_AddItem_UnknownProduct(t *testing.T) {
	h := NewCartHandler(&stubCartService{err: repository.ErrProductNotFound})

	body := `{"product_id":"` + primitive.NewObjectID().Hex() + `","quantity":1}`
	rec := httptest.NewRecorder()
	h.AddItem(rec, authedRequest(http.MethodPost, "/api/cart/add", body, primitive.NewObjectID()))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCartHandler_GetCart(t *testing.T) {
	h := NewCartHandler(&stubCartService{})

	rec := httptest.NewRecorder()
	h.GetCart(rec, authedRequest(http.MethodGet, "/api/cart", "", primitive.NewObjectID()))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCartHandler_RemoveItem(t *testing.T) {
	stub := &stubCartService{}
	h := NewCartHandler(stub)

	productID := primitive.NewObjectID()
	req := authedRequest(http.MethodDelete, "/api/cart/remove/"+productID.Hex(), "", primitive.NewObjectID())

	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("productID", productID.Hex())
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	rec := httptest.NewRecorder()
	h.RemoveItem(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, productID, stub.removed)
}

func TestCartHandler_Unauthenticated(t *testing.T) {
	h := NewCartHandler(&stubCartService{})

	rec := httptest.NewRecorder()
	h.GetCart(rec, httptest.NewRequest(http.MethodGet, "/api/cart", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
