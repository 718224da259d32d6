// internal/utils/validator_test.go
package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidMinecraftUsername(t *testing.T) {
	valid := []string{"Notch", "xX_Steve_Xx", "abc", "a_b_c_1_2_3_4_56"}
	for _, name := range valid {
		assert.True(t, IsValidMinecraftUsername(name), "%q should be valid", name)
	}

	invalid := []string{
		"",
		"ab",                // too short
		"seventeen_chars_x", // too long
		"has space",
		"semi;colon", // command separator
		"dash-name",
		"quote\"name",
		"Steve; op Steve", // injection attempt
	}
	for _, name := range invalid {
		assert.False(t, IsValidMinecraftUsername(name), "%q should be invalid", name)
	}
}

func TestIsValidDownloadToken(t *testing.T) {
	valid := "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
	assert.True(t, IsValidDownloadToken(valid))

	invalid := []string{
		"",
		"short",
		valid[:63],  // one short
		valid + "0", // one long
		"0123456789ABCDEF0123456789ABCDEF0123456789ABCDEF0123456789ABCDEF", // uppercase
		"0123456789abcdeg0123456789abcdef0123456789abcdef0123456789abcdef", // non-hex
	}
	for _, token := range invalid {
		assert.False(t, IsValidDownloadToken(token), "%q should be invalid", token)
	}
}
