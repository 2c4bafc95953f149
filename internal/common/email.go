package common

import "strings"

// NormalizeEmail canonicalises an email for case-insensitive comparison and
// storage. Lookups across the portal only ever see the normalized form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
