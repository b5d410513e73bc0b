package cryptox

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

const pepperBytes = 32

var (
	pepperMu   sync.Mutex
	pepperPath = "pepper"
	pepperVal  string
)

// SetPepperPath points password hashing at a pepper file. The file is
// created with a random pepper on first use. Changing the path drops the
// cached value.
func SetPepperPath(path string) {
	pepperMu.Lock()
	defer pepperMu.Unlock()
	pepperPath = filepath.Clean(path)
	pepperVal = ""
}

// pepper returns the cached pepper, loading or creating the file once.
func pepper() (string, error) {
	pepperMu.Lock()
	defer pepperMu.Unlock()

	if pepperVal != "" {
		return pepperVal, nil
	}

	raw, err := os.ReadFile(pepperPath)
	switch {
	case err == nil:
		if len(raw) == 0 {
			return "", fmt.Errorf("cryptox: pepper file %s is empty", pepperPath)
		}
		pepperVal = string(raw)
		return pepperVal, nil
	case !errors.Is(err, fs.ErrNotExist):
		return "", fmt.Errorf("cryptox: read pepper: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(pepperPath), 0o750); err != nil {
		return "", fmt.Errorf("cryptox: create pepper dir: %w", err)
	}

	buf := make([]byte, pepperBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	p := base64.RawURLEncoding.EncodeToString(buf)

	// O_EXCL so two processes racing on first boot agree on one pepper.
	f, err := os.OpenFile(pepperPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if errors.Is(err, fs.ErrExist) {
		raw, err := os.ReadFile(pepperPath)
		if err != nil {
			return "", fmt.Errorf("cryptox: read pepper: %w", err)
		}
		pepperVal = string(raw)
		return pepperVal, nil
	}
	if err != nil {
		return "", fmt.Errorf("cryptox: create pepper: %w", err)
	}
	if _, err := f.WriteString(p); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("cryptox: write pepper: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("cryptox: write pepper: %w", err)
	}

	pepperVal = p
	return pepperVal, nil
}
