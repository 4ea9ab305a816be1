package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SettlementRecord marks a payment reference as settled. The gateway may
// deliver the same IPN more than once; the record is checked and written
// inside the same transaction as the inventory mutation, so a redelivered
// callback becomes a no-op instead of a second decrement.
type SettlementRecord struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TxnRef    string             `bson:"txn_ref" json:"txn_ref"`
	OrderID   primitive.ObjectID `bson:"order_id" json:"order_id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	SettledAt time.Time          `bson:"settled_at" json:"settled_at"`
}
