// internal/utils/crypto_test.go
package utils

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateLicenseKeyFormat(t *testing.T) {
	key, err := GenerateLicenseKey()
	assert.NoError(t, err)

	groups := strings.Split(key, "-")
	assert.Len(t, groups, 6)
	assert.Equal(t, 32, len(strings.ReplaceAll(key, "-", "")))
	assert.Regexp(t, regexp.MustCompile(`^[A-Z0-9-]+$`), key)
}

func TestGenerateLicenseKeyUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		key, err := GenerateLicenseKey()
		assert.NoError(t, err)
		assert.False(t, seen[key], "duplicate license key generated")
		seen[key] = true
	}
}

func TestGenerateDownloadToken(t *testing.T) {
	token, err := GenerateDownloadToken()
	assert.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{64}$`), token)
	assert.True(t, IsValidDownloadToken(token))
}

func TestGenerateServerCredentials(t *testing.T) {
	key, err := GenerateServerAPIKey()
	assert.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[0-9A-F]{8}(-[0-9A-F]{8}){3}$`), key)

	secret, err := GenerateServerAPISecret()
	assert.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{64}$`), secret)
}

func TestRandomDigits(t *testing.T) {
	digits, err := RandomDigits(4)
	assert.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^[0-9]{4}$`), digits)
}

func TestSlugifyFileName(t *testing.T) {
	assert.Equal(t, "super-rank-vip", SlugifyFileName("Super Rank VIP"))
	assert.Equal(t, "mi-plugin-2", SlugifyFileName("Mi Plugin (2)"))
	assert.Equal(t, "plain", SlugifyFileName("plain"))
}
