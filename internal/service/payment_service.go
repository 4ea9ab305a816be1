package service

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/doanquockiet/be-exe-cho-do-cu/internal/domain"
	"github.com/doanquockiet/be-exe-cho-do-cu/internal/repository"
	"github.com/doanquockiet/be-exe-cho-do-cu/internal/vnpay"
)

// PaymentService starts the gateway flow: it prices the user's cart, mints
// the order id that settlement will later persist under, and builds the
// signed redirect URL. It also verifies the signature on the browser return
// redirect. The actual inventory/order mutation happens only when the IPN
// arrives (SettlementService).
type PaymentService struct {
	cfg      vnpay.Config
	products repository.ProductRepository
	carts    repository.CartRepository
	now      func() time.Time
	newID    func() primitive.ObjectID
}

func NewPaymentService(cfg vnpay.Config, products repository.ProductRepository, carts repository.CartRepository) *PaymentService {
	return &PaymentService{
		cfg:      cfg,
		products: products,
		carts:    carts,
		now:      time.Now,
		newID:    primitive.NewObjectID,
	}
}

type CreatePaymentInput struct {
	OrderInfo string
	BankCode  string
	Locale    string
	IPAddr    string
}

type PaymentRedirect struct {
	URL     string `json:"payment_url"`
	OrderID string `json:"order_id"`
	Amount  int64  `json:"amount"`
}

// CreatePaymentURL prices the whole cart at current catalog values and signs
// a redirect carrying "orderID-userID" as the transaction reference. The
// order id is minted here; the order itself is persisted by settlement once
// the gateway confirms payment.
func (s *PaymentService) CreatePaymentURL(ctx context.Context, userID primitive.ObjectID, in CreatePaymentInput) (*PaymentRedirect, error) {
	cart, err := s.carts.GetByUserID(ctx, userID)
	if errors.Is(err, repository.ErrCartNotFound) {
		return nil, ErrEmptyCart
	}
	if err != nil {
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, ErrEmptyCart
	}

	ids := make([]primitive.ObjectID, 0, len(cart.Items))
	for _, item := range cart.Items {
		ids = append(ids, item.ProductID)
	}
	live, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	var total int64
	priced := 0
	for _, item := range cart.Items {
		p, ok := live[item.ProductID]
		if !ok {
			continue // deleted products fall out of the cart view
		}
		total += p.Price * int64(item.Quantity)
		priced++
	}
	if priced == 0 {
		return nil, ErrEmptyCart
	}

	orderID := s.newID()
	ref := domain.NewPaymentReference(orderID, userID)

	url, err := vnpay.BuildPaymentURL(s.cfg, vnpay.PaymentRequest{
		TxnRef:     ref.String(),
		Amount:     total,
		OrderInfo:  in.OrderInfo,
		Locale:     in.Locale,
		BankCode:   in.BankCode,
		IPAddr:     in.IPAddr,
		CreateDate: s.now(),
	})
	if err != nil {
		return nil, err
	}

	return &PaymentRedirect{URL: url, OrderID: orderID.Hex(), Amount: total}, nil
}

// VerifyReturn checks the browser redirect from the gateway. It changes no
// state; the IPN is the authoritative settlement path.
func (s *PaymentService) VerifyReturn(params map[string]string) (responseCode string, ok bool) {
	if !vnpay.VerifyCallback(s.cfg, params) {
		return "", false
	}
	return params[vnpay.FieldResponseCode], true
}
