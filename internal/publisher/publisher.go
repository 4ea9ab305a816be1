// Package publisher emits store events after a checkout or settlement has
// committed. Publishing is best-effort: a failed publish is logged and never
// rolls back the transaction that produced the event.
package publisher

import "context"

const (
	EventOrderCreated   = "order.created"
	EventPaymentSettled = "payment.settled"
)

type OrderCreatedEvent struct {
	OrderID string `json:"order_id"`
	UserID  string `json:"user_id"`
	Total   int64  `json:"total"`
	Lines   int    `json:"lines"`
}

type PaymentSettledEvent struct {
	TxnRef  string `json:"txn_ref"`
	OrderID string `json:"order_id"`
	UserID  string `json:"user_id"`
}

type EventPublisher interface {
	Publish(ctx context.Context, eventType, key string, payload any) error
}

// Noop is used when no broker is configured and in tests.
type Noop struct{}

func (Noop) Publish(context.Context, string, string, any) error { return nil }
