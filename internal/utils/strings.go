// internal/utils/strings.go
package utils

import "strings"

// SlugifyFileName lowercases a name and keeps only [a-z0-9-] so it is safe in
// a Content-Disposition filename.
func SlugifyFileName(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}
