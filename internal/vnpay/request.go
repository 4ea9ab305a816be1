package vnpay

import (
	"errors"
	"strconv"
	"time"
)

// Protocol constants fixed by the gateway.
const (
	Version   = "2.1.0"
	Command   = "pay"
	CurrCode  = "VND"
	OrderType = "billpayment"

	createDateLayout = "20060102150405" // YYYYMMDDHHmmss
)

// PaymentRequest is the typed parameter set for an outbound payment redirect.
// Field names mirror the gateway's vnp_* parameters; the canonicalization in
// Canonicalize enforces the encode/sort rules instead of relying on callers
// to pre-order anything.
type PaymentRequest struct {
	TxnRef     string    // payment reference, carried back in the IPN
	Amount     int64     // VND, whole units; scaled by 100 on the wire
	OrderInfo  string    // human-readable order description
	Locale     string    // defaults to "vn"
	BankCode   string    // optional; omitted when empty
	IPAddr     string    // client address initiating the payment
	CreateDate time.Time // request timestamp
}

var (
	ErrMissingTxnRef    = errors.New("vnpay: txn ref is required")
	ErrMissingOrderInfo = errors.New("vnpay: order info is required")
	ErrInvalidAmount    = errors.New("vnpay: amount must be positive")
)

// BuildPaymentURL canonicalizes and signs the request, then appends the
// signature as the final query parameter. The signature itself is hex and
// never passes through the value-encoding step.
func BuildPaymentURL(cfg Config, req PaymentRequest) (string, error) {
	if req.TxnRef == "" {
		return "", ErrMissingTxnRef
	}
	if req.OrderInfo == "" {
		return "", ErrMissingOrderInfo
	}
	if req.Amount <= 0 {
		return "", ErrInvalidAmount
	}

	locale := req.Locale
	if locale == "" {
		locale = "vn"
	}

	params := map[string]string{
		"vnp_Version":    Version,
		"vnp_Command":    Command,
		"vnp_TmnCode":    cfg.TmnCode,
		"vnp_Amount":     strconv.FormatInt(req.Amount*100, 10),
		"vnp_CurrCode":   CurrCode,
		"vnp_TxnRef":     req.TxnRef,
		"vnp_OrderInfo":  req.OrderInfo,
		"vnp_OrderType":  OrderType,
		"vnp_Locale":     locale,
		"vnp_ReturnUrl":  cfg.ReturnURL,
		"vnp_IpAddr":     req.IPAddr,
		"vnp_CreateDate": req.CreateDate.Format(createDateLayout),
	}
	if req.BankCode != "" {
		params["vnp_BankCode"] = req.BankCode
	}

	query := Canonicalize(params)
	hash := Sign(cfg.HashSecret, params)
	return cfg.GatewayURL + "?" + query + "&" + FieldSecureHash + "=" + hash, nil
}
