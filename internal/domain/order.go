package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Order is an immutable record of one successful checkout. Items snapshot the
// product references, quantities and unit prices that were read at checkout
// time; later catalog price changes never affect an existing order.
type Order struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	Items     []OrderItem        `bson:"items" json:"items"`
	Total     int64              `bson:"total" json:"total"` // VND
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

type OrderItem struct {
	ProductID primitive.ObjectID `bson:"product_id" json:"product_id"`
	Quantity  int                `bson:"quantity" json:"quantity"`
	Price     int64              `bson:"price" json:"price"` // unit price at checkout time
}
