package cryptox

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// ErrTOTPKeyUnavailable is returned when neither a dedicated key nor a
// fallback secret is configured.
var ErrTOTPKeyUnavailable = errors.New("cryptox: no TOTP encryption key configured")

// DeriveTOTPKey resolves the 32-byte key used to seal TOTP secrets.
//
// A dedicated key is accepted as 64 hex characters (longer input is truncated
// to the first 64) or as standard base64 of exactly 32 bytes. Without one, the
// key is the SHA-256 of fallback and fromFallback is true so the caller can
// warn about it. Rotating fallback then makes every stored envelope unreadable.
func DeriveTOTPKey(dedicated, fallback string) (key []byte, fromFallback bool, err error) {
	dedicated = strings.TrimSpace(dedicated)
	if dedicated != "" {
		key, err := parseDedicatedKey(dedicated)
		if err != nil {
			return nil, false, err
		}
		return key, false, nil
	}

	if fallback == "" {
		return nil, false, ErrTOTPKeyUnavailable
	}

	sum := sha256.Sum256([]byte(fallback))
	return sum[:], true, nil
}

func parseDedicatedKey(s string) ([]byte, error) {
	if len(s) >= 2*envelopeKeySize {
		if key, err := hex.DecodeString(s[:2*envelopeKeySize]); err == nil {
			return key, nil
		}
	}

	if key, err := base64.StdEncoding.DecodeString(s); err == nil && len(key) == envelopeKeySize {
		return key, nil
	}

	return nil, fmt.Errorf("cryptox: TOTP key must be 64 hex chars or base64 of 32 bytes: %w", ErrInvalidKeySize)
}
