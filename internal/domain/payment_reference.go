package domain

import (
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PaymentReference is the correlation token threaded through the payment
// gateway: it rides out in the transaction-reference field of the redirect
// URL and comes back unchanged in the IPN callback. It is the only link
// between an outbound payment request and its asynchronous result.
//
// The wire form is "<orderID>-<userID>" with both ids as ObjectID hex, so
// the separator can never appear inside a component.
type PaymentReference struct {
	OrderID primitive.ObjectID
	UserID  primitive.ObjectID
}

const paymentRefSeparator = "-"

var ErrInvalidPaymentReference = errors.New("invalid payment reference")

func NewPaymentReference(orderID, userID primitive.ObjectID) PaymentReference {
	return PaymentReference{OrderID: orderID, UserID: userID}
}

func (r PaymentReference) String() string {
	return r.OrderID.Hex() + paymentRefSeparator + r.UserID.Hex()
}

// ParsePaymentReference recovers the (order, user) pair from the wire form.
// Anything that does not split into exactly two valid ObjectIDs is rejected.
func ParsePaymentReference(s string) (PaymentReference, error) {
	parts := strings.Split(s, paymentRefSeparator)
	if len(parts) != 2 {
		return PaymentReference{}, fmt.Errorf("%w: %q", ErrInvalidPaymentReference, s)
	}
	orderID, err := primitive.ObjectIDFromHex(parts[0])
	if err != nil {
		return PaymentReference{}, fmt.Errorf("%w: bad order id %q", ErrInvalidPaymentReference, parts[0])
	}
	userID, err := primitive.ObjectIDFromHex(parts[1])
	if err != nil {
		return PaymentReference{}, fmt.Errorf("%w: bad user id %q", ErrInvalidPaymentReference, parts[1])
	}
	return PaymentReference{OrderID: orderID, UserID: userID}, nil
}
