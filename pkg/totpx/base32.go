package totpx

import (
	"encoding/base32"
	"errors"
	"strings"
)

var (
	ErrEmptySecret     = errors.New("totpx: secret is empty after normalization")
	ErrMalformedSecret = errors.New("totpx: secret is not valid base32")
)

// Normalize uppercases raw and drops every character outside the RFC 4648
// base32 alphabet. Padding, whitespace and dashes are all removed. It is
// total and idempotent.
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range strings.ToUpper(raw) {
		if (r >= 'A' && r <= 'Z') || (r >= '2' && r <= '7') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Pad right-pads s with '=' up to the next multiple of 8.
func Pad(s string) string {
	if rem := len(s) % 8; rem != 0 {
		return s + strings.Repeat("=", 8-rem)
	}
	return s
}

// Canonical normalizes raw and checks that the result decodes as base32.
// Some lengths (1, 3 or 6 trailing characters) can never be produced by an
// encoder and are rejected here so they never reach storage.
func Canonical(raw string) (string, error) {
	norm := Normalize(raw)
	if norm == "" {
		return "", ErrEmptySecret
	}
	if _, err := base32.StdEncoding.DecodeString(Pad(norm)); err != nil {
		return "", ErrMalformedSecret
	}
	return norm, nil
}
