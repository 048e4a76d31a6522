package payos

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// signCreateRequest computes the request signature for payment link creation.
// The gateway requires HMAC-SHA256 over exactly these five fields, in
// alphabetical order, joined as a query string.
func signCreateRequest(checksumKey string, orderCode int64, amount int64, description, cancelURL, returnURL string) string {
	payload := fmt.Sprintf("amount=%d&cancelUrl=%s&description=%s&orderCode=%d&returnUrl=%s",
		amount, cancelURL, description, orderCode, returnURL)
	return hmacHex(checksumKey, payload)
}

// signWebhookData computes the webhook signature over the decoded data
// object: every key sorted alphabetically, rendered as key=value pairs
// joined with "&". Null values render as the empty string. Numeric values
// must keep the gateway's own formatting, so the caller decodes the data
// object with json.Number rather than float64.
func signWebhookData(checksumKey string, data map[string]any) string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+stringifyValue(data[k]))
	}
	return hmacHex(checksumKey, strings.Join(pairs, "&"))
}

func stringifyValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}

func hmacHex(key, payload string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// signaturesEqual compares two hex signatures in constant time.
func signaturesEqual(a, b string) bool {
	return hmac.Equal([]byte(a), []byte(b))
}
