package service

import (
	"context"
	"errors"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/doanquockiet/be-exe-cho-do-cu/internal/cache"
	"github.com/doanquockiet/be-exe-cho-do-cu/internal/domain"
	"github.com/doanquockiet/be-exe-cho-do-cu/internal/publisher"
	"github.com/doanquockiet/be-exe-cho-do-cu/internal/repository"
	"github.com/doanquockiet/be-exe-cho-do-cu/internal/vnpay"
)

// Response codes returned to the gateway. Anything but "00" and "01" tells it
// to redeliver the notification later.
const (
	RspSuccess        = "00"
	RspPaymentFailed  = "01"
	RspChecksumFailed = "97"
	RspInternalError  = "99"
)

type SettlementResult struct {
	RspCode string `json:"RspCode"`
	Message string `json:"Message"`
}

// SettlementService processes the gateway's asynchronous payment notification
// (IPN). A notification walks through signature verification, response-code
// interpretation and finally settlement: decrement stock for the user's whole
// cart, persist the order under the id recovered from the payment reference,
// clear the cart, prune depleted products everywhere, and record the
// reference as settled. Delivery is at-least-once, so an already-settled
// reference short-circuits to success without touching inventory again.
type SettlementService struct {
	cfg         vnpay.Config
	tx          repository.TxRunner
	products    repository.ProductRepository
	carts       repository.CartRepository
	orders      repository.OrderRepository
	settlements repository.SettlementRepository
	cache       cache.CartCache
	events      publisher.EventPublisher
}

func NewSettlementService(
	cfg vnpay.Config,
	tx repository.TxRunner,
	products repository.ProductRepository,
	carts repository.CartRepository,
	orders repository.OrderRepository,
	settlements repository.SettlementRepository,
	cartCache cache.CartCache,
	events publisher.EventPublisher,
) *SettlementService {
	return &SettlementService{
		cfg:         cfg,
		tx:          tx,
		products:    products,
		carts:       carts,
		orders:      orders,
		settlements: settlements,
		cache:       cartCache,
		events:      events,
	}
}

// HandleIPN never returns a Go error: every outcome maps to a response code
// the gateway understands.
func (s *SettlementService) HandleIPN(ctx context.Context, params map[string]string) SettlementResult {
	if !vnpay.VerifyCallback(s.cfg, params) {
		slog.Warn("ipn signature verification failed", "txn_ref", params[vnpay.FieldTxnRef])
		return SettlementResult{RspCode: RspChecksumFailed, Message: "Checksum failed"}
	}

	if params[vnpay.FieldResponseCode] != vnpay.ResponseCodeSuccess {
		slog.Info("ipn reports failed payment",
			"txn_ref", params[vnpay.FieldTxnRef],
			"response_code", params[vnpay.FieldResponseCode])
		return SettlementResult{RspCode: RspPaymentFailed, Message: "Failed"}
	}

	ref, err := domain.ParsePaymentReference(params[vnpay.FieldTxnRef])
	if err != nil {
		slog.Error("ipn carries unparseable txn ref", "txn_ref", params[vnpay.FieldTxnRef], "error", err)
		return SettlementResult{RspCode: RspInternalError, Message: "Invalid transaction reference"}
	}

	var (
		alreadySettled bool
		affectedUsers  []primitive.ObjectID
	)
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.settlements.GetByTxnRef(ctx, ref.String())
		if err != nil {
			return err
		}
		if existing != nil {
			alreadySettled = true
			return nil
		}

		cart, err := s.carts.GetByUserID(ctx, ref.UserID)
		if errors.Is(err, repository.ErrCartNotFound) {
			return ErrEmptyCart
		}
		if err != nil {
			return err
		}
		if len(cart.Items) == 0 {
			return ErrEmptyCart
		}

		// Settlement covers the whole cart, not a selected subset.
		var (
			total    int64
			lines    []domain.OrderItem
			depleted []primitive.ObjectID
		)
		for _, item := range cart.Items {
			p, err := s.products.DecrementStock(ctx, item.ProductID, item.Quantity)
			if err != nil {
				return err
			}
			total += p.Price * int64(item.Quantity)
			lines = append(lines, domain.OrderItem{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				Price:     p.Price,
			})
			if p.Quantity == 0 {
				depleted = append(depleted, item.ProductID)
			}
		}

		// The order id was minted when the payment URL was built; persisting
		// under it here keeps one order per confirmed payment.
		order := &domain.Order{ID: ref.OrderID, UserID: ref.UserID, Items: lines, Total: total}
		if err := s.orders.Create(ctx, order); err != nil {
			return err
		}

		if err := s.carts.ClearItems(ctx, ref.UserID); err != nil {
			return err
		}

		affectedUsers, err = s.carts.PruneProducts(ctx, depleted)
		if err != nil {
			return err
		}

		// Written in the same transaction as the decrements: either both
		// become visible or neither does.
		return s.settlements.Create(ctx, &domain.SettlementRecord{
			TxnRef:  ref.String(),
			OrderID: ref.OrderID,
			UserID:  ref.UserID,
		})
	})
	if err != nil {
		slog.Error("settlement failed", "txn_ref", ref.String(), "error", err)
		return SettlementResult{RspCode: RspInternalError, Message: "Settlement failed"}
	}

	if alreadySettled {
		return SettlementResult{RspCode: RspSuccess, Message: "Order already confirmed"}
	}

	invalidateCartCaches(ctx, s.cache, ref.UserID, affectedUsers)

	if err := s.events.Publish(ctx, publisher.EventPaymentSettled, ref.String(), publisher.PaymentSettledEvent{
		TxnRef:  ref.String(),
		OrderID: ref.OrderID.Hex(),
		UserID:  ref.UserID.Hex(),
	}); err != nil {
		slog.Error("failed to publish payment settled event", "txn_ref", ref.String(), "error", err)
	}

	slog.Info("payment settled", "txn_ref", ref.String(), "order_id", ref.OrderID.Hex())
	return SettlementResult{RspCode: RspSuccess, Message: "Success"}
}
