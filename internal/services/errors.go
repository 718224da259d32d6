// internal/services/errors.go
package services

import "errors"

// Sentinel errors the handlers map onto HTTP statuses. Keeping them here lets
// services stay transport-agnostic while handlers use errors.Is.
var (
	ErrMissingToken    = errors.New("payment token missing from notification")
	ErrOrderNotFound   = errors.New("order not found")
	ErrNotFound        = errors.New("resource not found")
	ErrForbidden       = errors.New("access denied")
	ErrDownloadUsed    = errors.New("download already used")
	ErrDownloadExpired = errors.New("download expired")
	ErrLicenseInactive = errors.New("license is not active")
	ErrServerInactive  = errors.New("server is not active")
	ErrAuthentication  = errors.New("authentication failed")
)
