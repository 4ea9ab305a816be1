// Package vnpay implements the signed request/callback protocol of the VNPay
// payment gateway: canonical parameter signing, redirect URL construction and
// inbound callback verification.
package vnpay

// Config carries the merchant credentials and gateway endpoints. It is built
// once at startup and injected; nothing in this package reads the process
// environment.
type Config struct {
	TmnCode    string // merchant terminal code
	HashSecret string // shared HMAC secret
	GatewayURL string // e.g. https://sandbox.vnpayment.vn/paymentv2/vpcpay.html
	ReturnURL  string // browser redirect target after payment
}
