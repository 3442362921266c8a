// Package seal encrypts vault values with XChaCha20-Poly1305 under a key that
// lives in a memguard Enclave between uses.
package seal

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/awnumar/memguard"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const (
	// KeySize is the length of both the master key and the derived sealing key.
	KeySize = chacha20poly1305.KeySize

	version byte = 1
)

var ErrInvalidCiphertext = errors.New("invalid ciphertext")

// Sealer performs authenticated encryption with associated data.
type Sealer struct {
	key *memguard.Enclave
}

// New derives a sealing key from master with HKDF-SHA256 using info as the
// context string. master is not retained; the derived key is moved into an
// Enclave and the plaintext copy wiped.
func New(master []byte, info string) (*Sealer, error) {
	if len(master) != KeySize {
		return nil, fmt.Errorf("invalid master key size: got %d, want %d", len(master), KeySize)
	}
	derived := make([]byte, KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, master, nil, []byte(info)), derived); err != nil {
		return nil, fmt.Errorf("deriving sealing key: %w", err)
	}
	return &Sealer{key: memguard.NewEnclave(derived)}, nil
}

// Seal encrypts plainText, binding it to aad. Output is version || nonce || ciphertext.
func (s *Sealer) Seal(plainText, aad []byte) ([]byte, error) {
	buf, err := s.key.Open()
	if err != nil {
		return nil, fmt.Errorf("opening key enclave: %w", err)
	}
	defer buf.Destroy()

	aead, err := chacha20poly1305.NewX(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}

	out := make([]byte, 1+aead.NonceSize(), 1+aead.NonceSize()+len(plainText)+aead.Overhead())
	out[0] = version
	if _, err := io.ReadFull(rand.Reader, out[1:]); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}
	return aead.Seal(out, out[1:], plainText, aad), nil
}

// Open decrypts a value produced by Seal with the same aad.
func (s *Sealer) Open(cipherText, aad []byte) ([]byte, error) {
	buf, err := s.key.Open()
	if err != nil {
		return nil, fmt.Errorf("opening key enclave: %w", err)
	}
	defer buf.Destroy()

	aead, err := chacha20poly1305.NewX(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}

	if len(cipherText) < 1+aead.NonceSize()+aead.Overhead() {
		return nil, fmt.Errorf("%w: too short", ErrInvalidCiphertext)
	}
	if cipherText[0] != version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidCiphertext, cipherText[0])
	}
	nonce := cipherText[1 : 1+aead.NonceSize()]
	plainText, err := aead.Open(nil, nonce, cipherText[1+aead.NonceSize():], aad)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCiphertext, err)
	}
	return plainText, nil
}

// LoadOrCreateKey reads the master key at path, creating a random one (mode
// 0600, parent 0700) when the file does not exist.
func LoadOrCreateKey(path string) ([]byte, error) {
	key, err := os.ReadFile(path)
	if err == nil {
		if len(key) != KeySize {
			return nil, fmt.Errorf("key file %s: invalid size %d", path, len(key))
		}
		return key, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading key file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating key directory: %w", err)
	}
	key = make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generating master key: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("creating key file: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(key); err != nil {
		return nil, fmt.Errorf("writing key file: %w", err)
	}
	return key, nil
}
