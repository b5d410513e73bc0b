package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

// EnvelopePrefix marks a value as an encrypted envelope. Anything without it
// is treated as plaintext.
const EnvelopePrefix = "enc:v1:"

const (
	envelopeKeySize   = 32
	envelopeNonceSize = 12
	envelopeTagSize   = 16
)

var (
	ErrInvalidKeySize    = errors.New("cryptox: envelope key must be 32 bytes")
	ErrMalformedEnvelope = errors.New("cryptox: malformed envelope")
	ErrEnvelopeAuth      = errors.New("cryptox: envelope authentication failed")
)

// SecretCodec seals short secrets into a self-describing text envelope using
// AES-256-GCM:
//
//	enc:v1:<b64 nonce>:<b64 ciphertext>:<b64 tag>
//
// Every field is standard base64 with padding. A fresh 96-bit nonce is drawn
// for each call to Encrypt.
type SecretCodec struct {
	aead cipher.AEAD
}

// NewSecretCodec builds a codec around a 32-byte key.
func NewSecretCodec(key []byte) (*SecretCodec, error) {
	if len(key) != envelopeKeySize {
		return nil, ErrInvalidKeySize
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &SecretCodec{aead: aead}, nil
}

// IsEnvelope reports whether s carries the envelope prefix.
func IsEnvelope(s string) bool {
	return strings.HasPrefix(s, EnvelopePrefix)
}

// Encrypt seals plaintext into an envelope string.
func (c *SecretCodec) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, envelopeNonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	// Seal returns ciphertext||tag; the envelope keeps them as separate fields.
	sealed := c.aead.Seal(nil, nonce, []byte(plaintext), nil)
	ct, tag := sealed[:len(sealed)-envelopeTagSize], sealed[len(sealed)-envelopeTagSize:]

	enc := base64.StdEncoding
	return EnvelopePrefix +
		enc.EncodeToString(nonce) + ":" +
		enc.EncodeToString(ct) + ":" +
		enc.EncodeToString(tag), nil
}

// Decrypt opens an envelope. Input without the envelope prefix is returned
// unchanged. A malformed envelope yields ErrMalformedEnvelope and a failed
// tag check yields ErrEnvelopeAuth; callers must treat both as "no secret".
func (c *SecretCodec) Decrypt(stored string) (string, error) {
	if !IsEnvelope(stored) {
		return stored, nil
	}

	parts := strings.Split(strings.TrimPrefix(stored, EnvelopePrefix), ":")
	if len(parts) != 3 {
		return "", ErrMalformedEnvelope
	}

	enc := base64.StdEncoding
	nonce, err := enc.DecodeString(parts[0])
	if err != nil || len(nonce) != envelopeNonceSize {
		return "", ErrMalformedEnvelope
	}
	ct, err := enc.DecodeString(parts[1])
	if err != nil {
		return "", ErrMalformedEnvelope
	}
	tag, err := enc.DecodeString(parts[2])
	if err != nil || len(tag) != envelopeTagSize {
		return "", ErrMalformedEnvelope
	}

	plaintext, err := c.aead.Open(nil, nonce, append(ct, tag...), nil)
	if err != nil {
		return "", ErrEnvelopeAuth
	}

	return string(plaintext), nil
}
