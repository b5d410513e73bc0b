package totpx

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/aussiebroadwan/dide/pkg/cryptox"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// Defaults match what authenticator apps assume when enrolling from a bare
// base32 secret.
const (
	DefaultPeriod = 30
	DefaultSkew   = 2
	DefaultDigits = otp.DigitsSix
)

// ErrUnreadableSecret means the stored secret could not be turned into a
// usable seed: the envelope failed to open or nothing base32 remained.
var ErrUnreadableSecret = errors.New("totpx: stored secret is unreadable")

// Verifier checks submitted codes against a stored secret that may be either
// plaintext base32 or a sealed envelope.
type Verifier struct {
	Codec  *cryptox.SecretCodec
	Period uint
	Skew   uint
	Digits otp.Digits

	// Now defaults to time.Now; tests pin it.
	Now func() time.Time
}

// NewVerifier returns a Verifier with the default window of ±2 steps.
func NewVerifier(codec *cryptox.SecretCodec) *Verifier {
	return &Verifier{
		Codec:  codec,
		Period: DefaultPeriod,
		Skew:   DefaultSkew,
		Digits: DefaultDigits,
		Now:    time.Now,
	}
}

// Verify reports whether code is valid for stored at the current time. A
// secret that cannot be opened, an empty secret and a wrong code all yield
// false.
func (v *Verifier) Verify(code, stored string) bool {
	ok, _ := v.Check(code, stored)
	return ok
}

// Check is Verify with the reason a stored secret could not be used. The
// error wraps ErrUnreadableSecret and, for envelopes, the cryptox cause. A
// wrong or malformed code is not an error.
func (v *Verifier) Check(code, stored string) (bool, error) {
	secret, err := v.Codec.Decrypt(stored)
	if err != nil {
		return false, fmt.Errorf("%w: %w", ErrUnreadableSecret, err)
	}

	secret = Normalize(secret)
	if secret == "" {
		return false, ErrUnreadableSecret
	}

	code = stripSpaces(code)
	if code == "" {
		return false, nil
	}

	now := time.Now
	if v.Now != nil {
		now = v.Now
	}

	ok, err := totp.ValidateCustom(code, Pad(secret), now().UTC(), totp.ValidateOpts{
		Period:    v.Period,
		Skew:      v.Skew,
		Digits:    v.Digits,
		Algorithm: otp.AlgorithmSHA1,
	})
	if errors.Is(err, otp.ErrValidateSecretInvalidBase32) {
		return false, ErrUnreadableSecret
	}
	return err == nil && ok, nil
}

func stripSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
