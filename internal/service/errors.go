package service

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrEmptyCart       = errors.New("cart is empty, nothing to checkout")
	ErrNoSelectedItems = errors.New("none of the requested products are in the cart")
)

// InsufficientStockError names the product that could not cover the requested
// quantity, so the storefront can tell the user which line to fix.
type InsufficientStockError struct {
	ProductID primitive.ObjectID
	Name      string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %q (%s)", e.Name, e.ProductID.Hex())
}

// ProductNotFoundError reports a cart line whose product vanished between the
// snapshot and the ledger step.
type ProductNotFoundError struct {
	ProductID primitive.ObjectID
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s no longer exists", e.ProductID.Hex())
}
