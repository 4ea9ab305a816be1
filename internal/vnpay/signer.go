package vnpay

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"
)

// Fields that are never part of the signed payload.
const (
	FieldSecureHash     = "vnp_SecureHash"
	FieldSecureHashType = "vnp_SecureHashType"
)

// Canonicalize produces the exact byte string that gets signed: the hash
// fields are dropped, every key is percent-encoded, keys are sorted by their
// encoded byte value, and each value is percent-encoded with spaces rendered
// as '+'. Pairs are joined as k=v&k=v in sort order. Both the outbound URL
// builder and the inbound verifier go through this one function, so the two
// directions cannot drift apart.
func Canonicalize(params map[string]string) string {
	type pair struct{ encodedKey, key string }
	pairs := make([]pair, 0, len(params))
	for k := range params {
		if k == FieldSecureHash || k == FieldSecureHashType {
			continue
		}
		pairs = append(pairs, pair{url.QueryEscape(k), k})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].encodedKey < pairs[j].encodedKey })

	var b strings.Builder
	for i, p := range pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(p.encodedKey)
		b.WriteByte('=')
		// QueryEscape already uses the space-as-plus convention.
		b.WriteString(url.QueryEscape(params[p.key]))
	}
	return b.String()
}

// Sign computes the lowercase hex HMAC-SHA-512 of the canonical form.
func Sign(secret string, params map[string]string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write([]byte(Canonicalize(params)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify recomputes the signature over params (hash fields excluded) and
// compares it with the received one in constant time.
func Verify(secret string, params map[string]string, receivedHash string) bool {
	expected := Sign(secret, params)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(receivedHash)))
}
