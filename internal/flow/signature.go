// internal/flow/signature.go
package flow

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// SignatureParam is the parameter that carries the digest itself. It is never
// part of the signed input.
const SignatureParam = "s"

// canonicalize builds the signing string: keys sorted ascending, each key
// immediately followed by its trimmed value, no delimiter. Keys with empty
// values are left out. This layout is a wire contract with the gateway; any
// change breaks verification on their side.
func canonicalize(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if k == SignatureParam || strings.TrimSpace(v) == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteString(strings.TrimSpace(params[k]))
	}
	return sb.String()
}

// Sign computes the HMAC-SHA256 hex digest of the canonicalized params.
func Sign(params map[string]string, secretKey string) string {
	mac := hmac.New(sha256.New, []byte(secretKey))
	mac.Write([]byte(canonicalize(params)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks a digest produced by Sign. Comparison is constant time.
func Verify(params map[string]string, signature, secretKey string) bool {
	expected := Sign(params, secretKey)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// SignBody computes the HMAC-SHA256 hex digest over a raw payload. The plugin
// channel signs request bodies whole rather than as parameter sets.
func SignBody(body []byte, secretKey string) string {
	mac := hmac.New(sha256.New, []byte(secretKey))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyBody checks a digest produced by SignBody in constant time.
func VerifyBody(body []byte, signature, secretKey string) bool {
	expected := SignBody(body, secretKey)
	return hmac.Equal([]byte(expected), []byte(signature))
}
