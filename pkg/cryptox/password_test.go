package cryptox_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aussiebroadwan/dide/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "cryptox")
	if err != nil {
		panic(err)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "nested", "pepper"))

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

func TestHashAndVerify(t *testing.T) {
	for _, pw := range []string{"password123", "", "pässwörd 🔐", strings.Repeat("x", 1000)} {
		h, err := cryptox.HashPassword(pw)
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(h, "$argon2id$v=19$m=19456,t=2,p=1$"), h)

		require.NoError(t, cryptox.VerifyPassword(pw, h))
		require.ErrorIs(t, cryptox.VerifyPassword(pw+"x", h), cryptox.ErrPasswordMismatch)
	}
}

func TestHashUsesFreshSalt(t *testing.T) {
	a, err := cryptox.HashPassword("same")
	require.NoError(t, err)
	b, err := cryptox.HashPassword("same")
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestVerifyHonoursStoredParameters(t *testing.T) {
	h, err := cryptox.HashPassword("pw")
	require.NoError(t, err)

	// Altering the cost changes the derived key, so the check fails rather
	// than silently using the current defaults.
	tampered := strings.Replace(h, "t=2", "t=3", 1)
	require.ErrorIs(t, cryptox.VerifyPassword("pw", tampered), cryptox.ErrPasswordMismatch)
}

func TestVerifyMalformedHash(t *testing.T) {
	for _, h := range []string{
		"",
		"plaintext",
		"$bcrypt$v=19$m=1,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=18$m=1,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$garbage$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=1,t=1,p=1$!!!$aGFzaA",
		"$argon2id$v=19$m=1,t=1,p=1$c2FsdA$",
	} {
		err := cryptox.VerifyPassword("pw", h)
		require.ErrorIs(t, err, cryptox.ErrMalformedHash, h)
	}
}

func TestPepperPersistsAcrossReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pepper")
	cryptox.SetPepperPath(path)
	t.Cleanup(func() { cryptox.SetPepperPath(filepath.Join(dir, "restored")) })

	h, err := cryptox.HashPassword("pw")
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	// Re-pointing at the same file reloads the same pepper.
	cryptox.SetPepperPath(path)
	require.NoError(t, cryptox.VerifyPassword("pw", h))

	// A different pepper invalidates the hash.
	cryptox.SetPepperPath(filepath.Join(dir, "other"))
	require.ErrorIs(t, cryptox.VerifyPassword("pw", h), cryptox.ErrPasswordMismatch)
}

func TestFingerprint(t *testing.T) {
	a := cryptox.Fingerprint("JBSWY3DPEHPK3PXP")
	require.Len(t, a, 43)
	require.Equal(t, a, cryptox.Fingerprint("JBSWY3DPEHPK3PXP"))
	require.NotEqual(t, a, cryptox.Fingerprint("JBSWY3DPEHPK3PXQ"))
}
