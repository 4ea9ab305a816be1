package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/doanquockiet/be-exe-cho-do-cu/internal/cache"
	"github.com/doanquockiet/be-exe-cho-do-cu/internal/domain"
	"github.com/doanquockiet/be-exe-cho-do-cu/internal/publisher"
	"github.com/doanquockiet/be-exe-cho-do-cu/internal/repository"
)

// CheckoutService converts a cart subset into an order. The stock decrements,
// order insert, cart line removal and cross-cart pruning all run inside one
// transaction, so a failure at any step leaves no trace.
type CheckoutService struct {
	tx       repository.TxRunner
	products repository.ProductRepository
	carts    repository.CartRepository
	orders   repository.OrderRepository
	cache    cache.CartCache
	events   publisher.EventPublisher
}

func NewCheckoutService(
	tx repository.TxRunner,
	products repository.ProductRepository,
	carts repository.CartRepository,
	orders repository.OrderRepository,
	cartCache cache.CartCache,
	events publisher.EventPublisher,
) *CheckoutService {
	return &CheckoutService{
		tx:       tx,
		products: products,
		carts:    carts,
		orders:   orders,
		cache:    cartCache,
		events:   events,
	}
}

// Checkout buys the requested products out of the user's cart.
func (s *CheckoutService) Checkout(ctx context.Context, userID primitive.ObjectID, productIDs []primitive.ObjectID) (*domain.Order, error) {
	if len(productIDs) == 0 {
		return nil, ErrNoSelectedItems
	}

	var (
		order         *domain.Order
		affectedUsers []primitive.ObjectID
	)

	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		cart, err := s.carts.GetByUserID(ctx, userID)
		if errors.Is(err, repository.ErrCartNotFound) {
			return ErrEmptyCart
		}
		if err != nil {
			return err
		}
		if len(cart.Items) == 0 {
			return ErrEmptyCart
		}

		selected, err := s.resolveSelection(ctx, cart, productIDs)
		if err != nil {
			return err
		}

		// Ledger step: conditional decrements, prices read here, not from
		// any cached snapshot.
		var (
			total    int64
			lines    []domain.OrderItem
			bought   []primitive.ObjectID
			depleted []primitive.ObjectID
		)
		for _, item := range selected {
			p, err := s.products.DecrementStock(ctx, item.ProductID, item.Quantity)
			if errors.Is(err, repository.ErrInsufficientStock) {
				name := item.ProductID.Hex()
				if live, lookupErr := s.products.GetByID(ctx, item.ProductID); lookupErr == nil {
					name = live.Name
				}
				return &InsufficientStockError{ProductID: item.ProductID, Name: name}
			}
			if errors.Is(err, repository.ErrProductNotFound) {
				return &ProductNotFoundError{ProductID: item.ProductID}
			}
			if err != nil {
				return err
			}

			total += p.Price * int64(item.Quantity)
			lines = append(lines, domain.OrderItem{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				Price:     p.Price,
			})
			bought = append(bought, item.ProductID)
			if p.Quantity == 0 {
				depleted = append(depleted, item.ProductID)
			}
		}

		order = &domain.Order{UserID: userID, Items: lines, Total: total}
		if err := s.orders.Create(ctx, order); err != nil {
			return err
		}

		if err := s.carts.RemoveItems(ctx, userID, bought); err != nil {
			return err
		}

		// Nobody else gets to keep a depleted product in their cart.
		affectedUsers, err = s.carts.PruneProducts(ctx, depleted)
		return err
	})
	if err != nil {
		return nil, err
	}

	invalidateCartCaches(ctx, s.cache, userID, affectedUsers)

	if err := s.events.Publish(ctx, publisher.EventOrderCreated, order.ID.Hex(), publisher.OrderCreatedEvent{
		OrderID: order.ID.Hex(),
		UserID:  userID.Hex(),
		Total:   order.Total,
		Lines:   len(order.Items),
	}); err != nil {
		slog.Error("failed to publish order created event", "order_id", order.ID.Hex(), "error", err)
	}

	return order, nil
}

// resolveSelection snapshots the cart against the live catalog: lines whose
// product no longer exists are dropped, the rest are filtered to the
// requested ids.
func (s *CheckoutService) resolveSelection(ctx context.Context, cart *domain.Cart, productIDs []primitive.ObjectID) ([]domain.CartItem, error) {
	cartProductIDs := make([]primitive.ObjectID, 0, len(cart.Items))
	for _, item := range cart.Items {
		cartProductIDs = append(cartProductIDs, item.ProductID)
	}
	live, err := s.products.GetByIDs(ctx, cartProductIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve cart products: %w", err)
	}

	requested := make(map[primitive.ObjectID]bool, len(productIDs))
	for _, id := range productIDs {
		requested[id] = true
	}

	var selected []domain.CartItem
	for _, item := range cart.Items {
		if _, ok := live[item.ProductID]; !ok {
			continue
		}
		if requested[item.ProductID] {
			selected = append(selected, item)
		}
	}
	if len(selected) == 0 {
		return nil, ErrNoSelectedItems
	}
	return selected, nil
}
