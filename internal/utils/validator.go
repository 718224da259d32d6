// internal/utils/validator.go
package utils

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

var mcUsernameRegexp = regexp.MustCompile(`^[a-zA-Z0-9_]{3,16}$`)

func init() {
	validate = validator.New()
	validate.RegisterValidation("strong_password", validateStrongPassword)
	validate.RegisterValidation("mc_username", validateMinecraftUsername)
	validate.RegisterValidation("download_token", validateDownloadToken)
}

func ValidateStruct(s interface{}) error {
	return validate.Struct(s)
}

func validateStrongPassword(fl validator.FieldLevel) bool {
	password := fl.Field().String()

	if len(password) < 8 {
		return false
	}

	var hasUpper, hasLower, hasNumber bool

	for _, char := range password {
		switch {
		case unicode.IsUpper(char):
			hasUpper = true
		case unicode.IsLower(char):
			hasLower = true
		case unicode.IsNumber(char):
			hasNumber = true
		}
	}

	return hasUpper && hasLower && hasNumber
}

// Mojang's own rules: 3-16 chars, letters, digits and underscores. This is
// also the guard that keeps player names from smuggling characters into
// dispatched server commands, since the renderer does no escaping.
func validateMinecraftUsername(fl validator.FieldLevel) bool {
	return IsValidMinecraftUsername(fl.Field().String())
}

func IsValidMinecraftUsername(username string) bool {
	return mcUsernameRegexp.MatchString(username)
}

// Download tokens are exactly 64 lowercase hex characters.
func validateDownloadToken(fl validator.FieldLevel) bool {
	return IsValidDownloadToken(fl.Field().String())
}

func IsValidDownloadToken(token string) bool {
	if len(token) != 64 {
		return false
	}
	for _, ch := range token {
		if !(ch >= '0' && ch <= '9' || ch >= 'a' && ch <= 'f') {
			return false
		}
	}
	return true
}

type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

func GetValidationErrors(err error) []ValidationError {
	var validationErrors []ValidationError

	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		for _, e := range validationErrs {
			validationErrors = append(validationErrors, ValidationError{
				Field:   strings.ToLower(e.Field()),
				Tag:     e.Tag(),
				Message: getValidationMessage(e),
			})
		}
	}

	return validationErrors
}

func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return e.Field() + " is required"
	case "email":
		return "Invalid email format"
	case "min":
		return e.Field() + " must be at least " + e.Param() + " characters"
	case "max":
		return e.Field() + " must be at most " + e.Param() + " characters"
	case "strong_password":
		return "Password must contain at least 8 characters with uppercase, lowercase and number"
	case "mc_username":
		return "Minecraft username must be 3-16 characters (letters, numbers and underscores)"
	case "download_token":
		return "Download token must be 64 lowercase hex characters"
	default:
		return e.Field() + " is invalid"
	}
}
