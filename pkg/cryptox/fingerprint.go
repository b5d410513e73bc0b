package cryptox

import (
	"crypto/sha256"
	"encoding/base64"
)

// Fingerprint returns the base64url SHA-256 of s. It is used to index
// values that must be compared for equality without being stored.
func Fingerprint(s string) string {
	sum := sha256.Sum256([]byte(s))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
