package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/doanquockiet/be-exe-cho-do-cu/internal/domain"
	"github.com/doanquockiet/be-exe-cho-do-cu/internal/publisher"
)

type checkoutFixture struct {
	svc      *CheckoutService
	tx       *mockTxRunner
	products *mockProductRepo
	carts    *mockCartRepo
	orders   *mockOrderRepo
	cache    *mockCartCache
	events   *mockPublisher
}

func newCheckoutFixture(products ...*domain.Product) *checkoutFixture {
	f := &checkoutFixture{
		tx:       &mockTxRunner{},
		products: newMockProductRepo(products...),
		carts:    newMockCartRepo(),
		orders:   &mockOrderRepo{},
		cache:    newMockCartCache(),
		events:   &mockPublisher{},
	}
	f.svc = NewCheckoutService(f.tx, f.products, f.carts, f.orders, f.cache, f.events)
	return f
}

func TestCheckout_Success(t *testing.T) {
	shirt := &domain.Product{ID: primitive.NewObjectID(), Name: "Shirt", Price: 100, Quantity: 5}
	hat := &domain.Product{ID: primitive.NewObjectID(), Name: "Hat", Price: 50, Quantity: 1}
	f := newCheckoutFixture(shirt, hat)

	buyer := primitive.NewObjectID()
	other := primitive.NewObjectID()
	f.carts.seed(buyer,
		domain.CartItem{ProductID: shirt.ID, Quantity: 2},
		domain.CartItem{ProductID: hat.ID, Quantity: 1},
	)
	f.carts.seed(other, domain.CartItem{ProductID: hat.ID, Quantity: 3})

	order, err := f.svc.Checkout(context.Background(), buyer, []primitive.ObjectID{shirt.ID, hat.ID})
	require.NoError(t, err)

	assert.Equal(t, int64(250), order.Total)
	assert.Len(t, order.Items, 2)
	assert.Equal(t, buyer, order.UserID)
	assert.False(t, order.ID.IsZero())

	assert.Equal(t, 3, f.products.stock(shirt.ID))
	assert.Equal(t, 0, f.products.stock(hat.ID))

	// Buyer's cart emptied, the depleted hat pruned from the other cart too.
	assert.Empty(t, f.carts.items(buyer))
	assert.Empty(t, f.carts.items(other))

	assert.Contains(t, f.cache.deletions(), buyer)
	assert.Contains(t, f.cache.deletions(), other)

	events := f.events.published()
	require.Len(t, events, 1)
	assert.Equal(t, publisher.EventOrderCreated, events[0].eventType)
	assert.Equal(t, order.ID.Hex(), events[0].key)
}

func TestCheckout_OrderSnapshotsPrices(t *testing.T) {
	shirt := &domain.Product{ID: primitive.NewObjectID(), Name: "Shirt", Price: 100, Quantity: 5}
	f := newCheckoutFixture(shirt)

	buyer := primitive.NewObjectID()
	f.carts.seed(buyer, domain.CartItem{ProductID: shirt.ID, Quantity: 2})

	order, err := f.svc.Checkout(context.Background(), buyer, []primitive.ObjectID{shirt.ID})
	require.NoError(t, err)

	require.Len(t, order.Items, 1)
	assert.Equal(t, int64(100), order.Items[0].Price)
	assert.Equal(t, 2, order.Items[0].Quantity)
}

func TestCheckout_PartialSelection(t *testing.T) {
	shirt := &domain.Product{ID: primitive.NewObjectID(), Name: "Shirt", Price: 100, Quantity: 5}
	hat := &domain.Product{ID: primitive.NewObjectID(), Name: "Hat", Price: 50, Quantity: 4}
	f := newCheckoutFixture(shirt, hat)

	buyer := primitive.NewObjectID()
	f.carts.seed(buyer,
		domain.CartItem{ProductID: shirt.ID, Quantity: 1},
		domain.CartItem{ProductID: hat.ID, Quantity: 1},
	)

	order, err := f.svc.Checkout(context.Background(), buyer, []primitive.ObjectID{shirt.ID})
	require.NoError(t, err)

	assert.Equal(t, int64(100), order.Total)

	// The unselected line stays in the cart.
	items := f.carts.items(buyer)
	require.Len(t, items, 1)
	assert.Equal(t, hat.ID, items[0].ProductID)
	assert.Equal(t, 4, f.products.stock(hat.ID))
}

func TestCheckout_EmptySelection(t *testing.T) {
	f := newCheckoutFixture()

	_, err := f.svc.Checkout(context.Background(), primitive.NewObjectID(), nil)

	assert.ErrorIs(t, err, ErrNoSelectedItems)
	assert.Zero(t, f.tx.calls, "no transaction for an empty selection")
}

func TestCheckout_NoCart(t *testing.T) {
	f := newCheckoutFixture()

	_, err := f.svc.Checkout(context.Background(), primitive.NewObjectID(), []primitive.ObjectID{primitive.NewObjectID()})

	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestCheckout_EmptyCart(t *testing.T) {
	f := newCheckoutFixture()
	buyer := primitive.NewObjectID()
	f.carts.seed(buyer)

	_, err := f.svc.Checkout(context.Background(), buyer, []primitive.ObjectID{primitive.NewObjectID()})

	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestCheckout_SelectionNotInCart(t *testing.T) {
	shirt := &domain.Product{ID: primitive.NewObjectID(), Name: "Shirt", Price: 100, Quantity: 5}
	f := newCheckoutFixture(shirt)

	buyer := primitive.NewObjectID()
	f.carts.seed(buyer, domain.CartItem{ProductID: shirt.ID, Quantity: 1})

	_, err := f.svc.Checkout(context.Background(), buyer, []primitive.ObjectID{primitive.NewObjectID()})

	assert.ErrorIs(t, err, ErrNoSelectedItems)
	assert.Zero(t, f.orders.count())
}

func TestCheckout_DeletedProductDropsFromSelection(t *testing.T) {
	f := newCheckoutFixture()

	buyer := primitive.NewObjectID()
	ghost := primitive.NewObjectID() // never existed in the catalog
	f.carts.seed(buyer, domain.CartItem{ProductID: ghost, Quantity: 1})

	_, err := f.svc.Checkout(context.Background(), buyer, []primitive.ObjectID{ghost})

	assert.ErrorIs(t, err, ErrNoSelectedItems)
}

func TestCheckout_InsufficientStock(t *testing.T) {
	shirt := &domain.Product{ID: primitive.NewObjectID(), Name: "Shirt", Price: 100, Quantity: 1}
	f := newCheckoutFixture(shirt)

	buyer := primitive.NewObjectID()
	f.carts.seed(buyer, domain.CartItem{ProductID: shirt.ID, Quantity: 2})

	_, err := f.svc.Checkout(context.Background(), buyer, []primitive.ObjectID{shirt.ID})

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, shirt.ID, stockErr.ProductID)
	assert.Equal(t, "Shirt", stockErr.Name)

	assert.Zero(t, f.orders.count(), "no order on a failed checkout")
	assert.Equal(t, 1, f.products.stock(shirt.ID))
	assert.Empty(t, f.events.published())

	// The failing line stays in the cart for the user to adjust.
	assert.Len(t, f.carts.items(buyer), 1)
}

func TestCheckout_ConcurrentBuyersLastUnit(t *testing.T) {
	hat := &domain.Product{ID: primitive.NewObjectID(), Name: "Hat", Price: 50, Quantity: 1}
	f := newCheckoutFixture(hat)

	const buyers = 4
	ids := make([]primitive.ObjectID, buyers)
	for i := range ids {
		ids[i] = primitive.NewObjectID()
		f.carts.seed(ids[i], domain.CartItem{ProductID: hat.ID, Quantity: 1})
	}

	var wg sync.WaitGroup
	var won atomic.Int32
	for _, buyer := range ids {
		wg.Add(1)
		go func(buyer primitive.ObjectID) {
			defer wg.Done()
			_, err := f.svc.Checkout(context.Background(), buyer, []primitive.ObjectID{hat.ID})
			if err == nil {
				won.Add(1)
				return
			}
			// Losers either race the decrement or find their line already
			// pruned by the winning checkout.
			var stockErr *InsufficientStockError
			if !errors.As(err, &stockErr) && !errors.Is(err, ErrNoSelectedItems) {
				t.Errorf("unexpected error: %v", err)
			}
		}(buyer)
	}
	wg.Wait()

	// One buyer gets the last unit, the rest see insufficient stock.
	assert.Equal(t, int32(1), won.Load())
	assert.Equal(t, 1, f.orders.count())
	assert.Equal(t, 0, f.products.stock(hat.ID))
	assert.Len(t, f.events.published(), 1)
}

func TestCheckout_ExactStockDepletes(t *testing.T) {
	hat := &domain.Product{ID: primitive.NewObjectID(), Name: "Hat", Price: 50, Quantity: 2}
	f := newCheckoutFixture(hat)

	buyer := primitive.NewObjectID()
	bystander := primitive.NewObjectID()
	f.carts.seed(buyer, domain.CartItem{ProductID: hat.ID, Quantity: 2})
	f.carts.seed(bystander, domain.CartItem{ProductID: hat.ID, Quantity: 1})

	_, err := f.svc.Checkout(context.Background(), buyer, []primitive.ObjectID{hat.ID})
	require.NoError(t, err)

	assert.Equal(t, 0, f.products.stock(hat.ID))
	assert.Empty(t, f.carts.items(bystander), "depleted product pruned from every cart")
}

func TestCheckout_NonDepletedStockNotPruned(t *testing.T) {
	shirt := &domain.Product{ID: primitive.NewObjectID(), Name: "Shirt", Price: 100, Quantity: 5}
	f := newCheckoutFixture(shirt)

	buyer := primitive.NewObjectID()
	bystander := primitive.NewObjectID()
	f.carts.seed(buyer, domain.CartItem{ProductID: shirt.ID, Quantity: 1})
	f.carts.seed(bystander, domain.CartItem{ProductID: shirt.ID, Quantity: 1})

	_, err := f.svc.Checkout(context.Background(), buyer, []primitive.ObjectID{shirt.ID})
	require.NoError(t, err)

	assert.Len(t, f.carts.items(bystander), 1, "stock remains, bystander keeps the line")
	assert.NotContains(t, f.cache.deletions(), bystander)
}
