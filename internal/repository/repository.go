package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/doanquockiet/be-exe-cho-do-cu/internal/domain"
)

var (
	ErrCartNotFound      = errors.New("cart not found")
	ErrProductNotFound   = errors.New("product not found")
	ErrOrderNotFound     = errors.New("order not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrAlreadySettled    = errors.New("payment reference already settled")
	ErrEmailTaken        = errors.New("email already registered")
)

type ProductRepository interface {
	Create(ctx context.Context, p *domain.Product) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Product, error)
	// GetByIDs returns the products that still exist; missing ids are simply
	// absent from the result.
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]domain.Product, error)
	Update(ctx context.Context, p *domain.Product) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	List(ctx context.Context) ([]domain.Product, error)
	// DecrementStock is the conditional update guarding stock: it decrements
	// quantity by qty only where quantity >= qty, in one storage-side
	// operation, and returns the product as read after the decrement. It
	// fails with ErrInsufficientStock or ErrProductNotFound without touching
	// anything.
	DecrementStock(ctx context.Context, id primitive.ObjectID, qty int) (*domain.Product, error)
}

type CartRepository interface {
	GetByUserID(ctx context.Context, userID primitive.ObjectID) (*domain.Cart, error)
	// AddItem creates the cart lazily and merges quantity into an existing
	// line for the same product.
	AddItem(ctx context.Context, userID primitive.ObjectID, item domain.CartItem) error
	RemoveItem(ctx context.Context, userID, productID primitive.ObjectID) error
	// RemoveItems drops the lines matching productIDs from one user's cart.
	RemoveItems(ctx context.Context, userID primitive.ObjectID, productIDs []primitive.ObjectID) error
	// ClearItems empties one user's cart without deleting the cart document.
	ClearItems(ctx context.Context, userID primitive.ObjectID) error
	// PruneProducts removes the given products from every cart in the system
	// and returns the user ids whose carts were touched, so callers can
	// invalidate caches after commit.
	PruneProducts(ctx context.Context, productIDs []primitive.ObjectID) ([]primitive.ObjectID, error)
}

type OrderRepository interface {
	Create(ctx context.Context, o *domain.Order) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Order, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]domain.Order, error)
}

type SettlementRepository interface {
	GetByTxnRef(ctx context.Context, txnRef string) (*domain.SettlementRecord, error)
	// Create fails with ErrAlreadySettled when a record for the same txn ref
	// exists; a unique index backs this even across concurrent transactions.
	Create(ctx context.Context, rec *domain.SettlementRecord) error
}

type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
}

// TxRunner executes fn inside one atomic unit of work. Every repository call
// made with the context passed to fn joins that transaction; if fn returns an
// error nothing it did is visible to anyone.
type TxRunner interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
