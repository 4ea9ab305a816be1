package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/singleflight"

	"github.com/doanquockiet/be-exe-cho-do-cu/internal/cache"
	"github.com/doanquockiet/be-exe-cho-do-cu/internal/domain"
	"github.com/doanquockiet/be-exe-cho-do-cu/internal/repository"
)

type CartService struct {
	products repository.ProductRepository
	carts    repository.CartRepository
	cache    cache.CartCache
	sfg      singleflight.Group // Prevents cache stampede
}

func NewCartService(products repository.ProductRepository, carts repository.CartRepository, cartCache cache.CartCache) *CartService {
	return &CartService{
		products: products,
		carts:    carts,
		cache:    cartCache,
	}
}

// GetCart returns the user's cart with dead product references dropped. A
// missing cart reads as an empty one; deleted products disappear from the
// view without the stored document being rewritten.
func (s *CartService) GetCart(ctx context.Context, userID primitive.ObjectID) (*domain.Cart, error) {
	v, err, _ := s.sfg.Do(userID.Hex(), func() (interface{}, error) {
		cart, err := s.cache.Get(ctx, userID)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			slog.Warn("cart cache get failed", "user_id", userID.Hex(), "error", err)
		}

		cart, err = s.carts.GetByUserID(ctx, userID)
		if errors.Is(err, repository.ErrCartNotFound) {
			now := time.Now()
			return &domain.Cart{UserID: userID, CreatedAt: now, UpdatedAt: now}, nil
		}
		if err != nil {
			return nil, err
		}

		cart, err = s.dropDeadReferences(ctx, cart)
		if err != nil {
			return nil, err
		}

		go func() {
			if err := s.cache.Set(context.Background(), userID, cart); err != nil {
				slog.Warn("cart cache set failed", "user_id", userID.Hex(), "error", err)
			}
		}()

		return cart, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Cart), nil
}

// AddItem puts quantity units of a product into the cart, creating the cart
// on first use. The product must exist at add time.
func (s *CartService) AddItem(ctx context.Context, userID, productID primitive.ObjectID, quantity int) error {
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return err
	}

	if err := s.carts.AddItem(ctx, userID, domain.CartItem{ProductID: productID, Quantity: quantity}); err != nil {
		return err
	}

	s.invalidate(userID)
	return nil
}

func (s *CartService) RemoveItem(ctx context.Context, userID, productID primitive.ObjectID) error {
	if err := s.carts.RemoveItem(ctx, userID, productID); err != nil {
		return err
	}

	s.invalidate(userID)
	return nil
}

func (s *CartService) dropDeadReferences(ctx context.Context, cart *domain.Cart) (*domain.Cart, error) {
	ids := make([]primitive.ObjectID, 0, len(cart.Items))
	for _, item := range cart.Items {
		ids = append(ids, item.ProductID)
	}
	live, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	filtered := cart.Items[:0:0]
	for _, item := range cart.Items {
		if _, ok := live[item.ProductID]; ok {
			filtered = append(filtered, item)
		}
	}
	cart.Items = filtered
	return cart, nil
}

func (s *CartService) invalidate(userID primitive.ObjectID) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, userID); err != nil {
		slog.Warn("cart cache invalidate failed", "user_id", userID.Hex(), "error", err)
	}
}
