package service

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/doanquockiet/be-exe-cho-do-cu/internal/cache"
	"github.com/doanquockiet/be-exe-cho-do-cu/internal/domain"
	"github.com/doanquockiet/be-exe-cho-do-cu/internal/repository"
)

type mockTxRunner struct {
	beginErr error
	calls    int
}

func (m *mockTxRunner) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	if m.beginErr != nil {
		return m.beginErr
	}
	return fn(ctx)
}

type mockProductRepo struct {
	mu       sync.Mutex
	products map[primitive.ObjectID]*domain.Product
}

func newMockProductRepo(products ...*domain.Product) *mockProductRepo {
	m := &mockProductRepo{products: make(map[primitive.ObjectID]*domain.Product)}
	for _, p := range products {
		m.products[p.ID] = p
	}
	return m
}

func (m *mockProductRepo) Create(ctx context.Context, p *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	m.products[p.ID] = p
	return nil
}

func (m *mockProductRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockProductRepo) GetByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[primitive.ObjectID]domain.Product, len(ids))
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out[id] = *p
		}
	}
	return out, nil
}

func (m *mockProductRepo) Update(ctx context.Context, p *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[p.ID]; !ok {
		return repository.ErrProductNotFound
	}
	m.products[p.ID] = p
	return nil
}

func (m *mockProductRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *mockProductRepo) List(ctx context.Context) ([]domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, *p)
	}
	return out, nil
}

func (m *mockProductRepo) DecrementStock(ctx context.Context, id primitive.ObjectID, qty int) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	if p.Quantity < qty {
		return nil, repository.ErrInsufficientStock
	}
	p.Quantity -= qty
	cp := *p
	return &cp, nil
}

func (m *mockProductRepo) stock(id primitive.ObjectID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.products[id]; ok {
		return p.Quantity
	}
	return -1
}

type mockCartRepo struct {
	mu    sync.Mutex
	carts map[primitive.ObjectID]*domain.Cart
}

func newMockCartRepo() *mockCartRepo {
	return &mockCartRepo{carts: make(map[primitive.ObjectID]*domain.Cart)}
}

func (m *mockCartRepo) seed(userID primitive.ObjectID, items ...domain.CartItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[userID] = &domain.Cart{
		ID:     primitive.NewObjectID(),
		UserID: userID,
		Items:  items,
	}
}

func (m *mockCartRepo) GetByUserID(ctx context.Context, userID primitive.ObjectID) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[userID]
	if !ok {
		return nil, repository.ErrCartNotFound
	}
	cp := *c
	cp.Items = append([]domain.CartItem(nil), c.Items...)
	return &cp, nil
}

func (m *mockCartRepo) AddItem(ctx context.Context, userID primitive.ObjectID, item domain.CartItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[userID]
	if !ok {
		c = &domain.Cart{ID: primitive.NewObjectID(), UserID: userID, CreatedAt: time.Now()}
		m.carts[userID] = c
	}
	for i := range c.Items {
		if c.Items[i].ProductID == item.ProductID {
			c.Items[i].Quantity += item.Quantity
			return nil
		}
	}
	c.Items = append(c.Items, item)
	return nil
}

func (m *mockCartRepo) RemoveItem(ctx context.Context, userID, productID primitive.ObjectID) error {
	return m.RemoveItems(ctx, userID, []primitive.ObjectID{productID})
}

func (m *mockCartRepo) RemoveItems(ctx context.Context, userID primitive.ObjectID, productIDs []primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[userID]
	if !ok {
		return repository.ErrCartNotFound
	}
	drop := make(map[primitive.ObjectID]bool, len(productIDs))
	for _, id := range productIDs {
		drop[id] = true
	}
	kept := c.Items[:0]
	for _, item := range c.Items {
		if !drop[item.ProductID] {
			kept = append(kept, item)
		}
	}
	c.Items = kept
	return nil
}

func (m *mockCartRepo) ClearItems(ctx context.Context, userID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[userID]
	if !ok {
		return repository.ErrCartNotFound
	}
	c.Items = nil
	return nil
}

func (m *mockCartRepo) PruneProducts(ctx context.Context, productIDs []primitive.ObjectID) ([]primitive.ObjectID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(productIDs) == 0 {
		return nil, nil
	}
	drop := make(map[primitive.ObjectID]bool, len(productIDs))
	for _, id := range productIDs {
		drop[id] = true
	}
	var affected []primitive.ObjectID
	for userID, c := range m.carts {
		kept := c.Items[:0]
		touched := false
		for _, item := range c.Items {
			if drop[item.ProductID] {
				touched = true
				continue
			}
			kept = append(kept, item)
		}
		c.Items = kept
		if touched {
			affected = append(affected, userID)
		}
	}
	return affected, nil
}

func (m *mockCartRepo) items(userID primitive.ObjectID) []domain.CartItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.carts[userID]
	if !ok {
		return nil
	}
	return append([]domain.CartItem(nil), c.Items...)
}

type mockOrderRepo struct {
	mu     sync.Mutex
	orders []*domain.Order
	err    error
}

func (m *mockOrderRepo) Create(ctx context.Context, o *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if o.ID.IsZero() {
		o.ID = primitive.NewObjectID()
	}
	o.CreatedAt = time.Now()
	cp := *o
	m.orders = append(m.orders, &cp)
	return nil
}

func (m *mockOrderRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.ID == id {
			cp := *o
			return &cp, nil
		}
	}
	return nil, repository.ErrOrderNotFound
}

func (m *mockOrderRepo) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *mockOrderRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

type mockSettlementRepo struct {
	mu      sync.Mutex
	records map[string]*domain.SettlementRecord
}

func newMockSettlementRepo() *mockSettlementRepo {
	return &mockSettlementRepo{records: make(map[string]*domain.SettlementRecord)}
}

func (m *mockSettlementRepo) GetByTxnRef(ctx context.Context, txnRef string) (*domain.SettlementRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[txnRef]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (m *mockSettlementRepo) Create(ctx context.Context, rec *domain.SettlementRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[rec.TxnRef]; ok {
		return repository.ErrAlreadySettled
	}
	rec.ID = primitive.NewObjectID()
	rec.SettledAt = time.Now()
	cp := *rec
	m.records[rec.TxnRef] = &cp
	return nil
}

type mockCartCache struct {
	mu      sync.Mutex
	entries map[primitive.ObjectID]*domain.Cart
	deleted []primitive.ObjectID
}

func newMockCartCache() *mockCartCache {
	return &mockCartCache{entries: make(map[primitive.ObjectID]*domain.Cart)}
}

func (m *mockCartCache) Get(ctx context.Context, userID primitive.ObjectID) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.entries[userID]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return c, nil
}

func (m *mockCartCache) Set(ctx context.Context, userID primitive.ObjectID, cart *domain.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[userID] = cart
	return nil
}

func (m *mockCartCache) Delete(ctx context.Context, userID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, userID)
	m.deleted = append(m.deleted, userID)
	return nil
}

func (m *mockCartCache) deletions() []primitive.ObjectID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]primitive.ObjectID(nil), m.deleted...)
}

type publishedEvent struct {
	eventType string
	key       string
	payload   any
}

type mockPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (m *mockPublisher) Publish(ctx context.Context, eventType, key string, payload any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, publishedEvent{eventType: eventType, key: key, payload: payload})
	return nil
}

func (m *mockPublisher) published() []publishedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]publishedEvent(nil), m.events...)
}
