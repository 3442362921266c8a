package utils

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
)

// RandomString reads n bytes from r (crypto/rand when nil) and returns them base64url encoded.
func RandomString(r io.Reader, n int) (string, error) {
	if r == nil {
		r = rand.Reader
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
