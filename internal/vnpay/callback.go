package vnpay

import "net/url"

// Callback parameter names used by the settlement flow.
const (
	FieldTxnRef       = "vnp_TxnRef"
	FieldResponseCode = "vnp_ResponseCode"
	FieldAmount       = "vnp_Amount"
)

// ResponseCodeSuccess is the gateway's "payment approved" code.
const ResponseCodeSuccess = "00"

// ParseCallback flattens the query parameters of an inbound IPN or return
// redirect. The gateway sends every field at most once; repeated fields keep
// the first value.
func ParseCallback(query url.Values) map[string]string {
	params := make(map[string]string, len(query))
	for k, v := range query {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}
	return params
}

// VerifyCallback checks the received signature against the remaining fields.
// It returns false when the signature field is missing entirely.
func VerifyCallback(cfg Config, params map[string]string) bool {
	received, ok := params[FieldSecureHash]
	if !ok || received == "" {
		return false
	}
	return Verify(cfg.HashSecret, params, received)
}
