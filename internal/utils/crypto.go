// internal/utils/crypto.go
package utils

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
	"strings"
)

const licenseKeyCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateLicenseKey returns 32 random alphanumerics grouped 8-4-4-4-4-8 with
// dashes. The grouping is presentation; the entropy comes from crypto/rand.
func GenerateLicenseKey() (string, error) {
	raw := make([]byte, 32)
	for i := range raw {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(licenseKeyCharset))))
		if err != nil {
			return "", err
		}
		raw[i] = licenseKeyCharset[n.Int64()]
	}

	groups := []string{
		string(raw[0:8]),
		string(raw[8:12]),
		string(raw[12:16]),
		string(raw[16:20]),
		string(raw[20:24]),
		string(raw[24:32]),
	}
	return strings.Join(groups, "-"), nil
}

// GenerateDownloadToken returns a 256-bit token as 64 lowercase hex characters.
func GenerateDownloadToken() (string, error) {
	return randomHex(32)
}

// GenerateServerAPIKey returns a grouped uppercase hex identifier, e.g.
// 3F2A9C1B-8D4E6F70-....
func GenerateServerAPIKey() (string, error) {
	raw, err := randomHex(16)
	if err != nil {
		return "", err
	}
	raw = strings.ToUpper(raw)

	groups := make([]string, 0, 4)
	for i := 0; i < len(raw); i += 8 {
		groups = append(groups, raw[i:i+8])
	}
	return strings.Join(groups, "-"), nil
}

// GenerateServerAPISecret returns the 64-hex HMAC signing key for a server.
func GenerateServerAPISecret() (string, error) {
	return randomHex(32)
}

// RandomDigits returns n random decimal digits.
func RandomDigits(n int) (string, error) {
	digits := make([]byte, n)
	for i := range digits {
		d, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		digits[i] = byte('0' + d.Int64())
	}
	return string(digits), nil
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
