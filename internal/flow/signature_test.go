// internal/flow/signature_test.go
package flow

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func hmacHex(input, key string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(input))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestSignSortsKeys(t *testing.T) {
	key := "secret"

	a := Sign(map[string]string{"b": "2", "a": "1"}, key)
	b := Sign(map[string]string{"a": "1", "b": "2"}, key)

	assert.Equal(t, a, b)
	assert.Equal(t, hmacHex("a1b2", key), a)
}

func TestSignExcludesSignatureParam(t *testing.T) {
	key := "secret"

	withSig := Sign(map[string]string{"a": "1", "s": "deadbeef"}, key)
	withoutSig := Sign(map[string]string{"a": "1"}, key)

	assert.Equal(t, withoutSig, withSig)
}

func TestSignOmitsEmptyValues(t *testing.T) {
	key := "secret"

	got := Sign(map[string]string{"a": "1", "b": "", "c": "   "}, key)

	assert.Equal(t, hmacHex("a1", key), got)
}

func TestSignTrimsValues(t *testing.T) {
	key := "secret"

	got := Sign(map[string]string{"amount": " 15000 "}, key)

	assert.Equal(t, hmacHex("amount15000", key), got)
}

func TestVerify(t *testing.T) {
	key := "secret"
	params := map[string]string{"token": "tok123", "apiKey": "ak"}
	sig := Sign(params, key)

	assert.True(t, Verify(params, sig, key))
	assert.False(t, Verify(params, sig, "other-key"))
	assert.False(t, Verify(params, "bad-signature", key))
}

func TestVerifyBody(t *testing.T) {
	key := "server-secret"
	body := []byte(`{"minecraft_order_id":"abc","success":true}`)
	sig := SignBody(body, key)

	assert.True(t, VerifyBody(body, sig, key))
	assert.False(t, VerifyBody(append(body, ' '), sig, key))
	assert.False(t, VerifyBody(body, sig, "wrong"))
}
