// Package passcode implements biometric.Gate with a device passcode verified
// by argon2id. It is the software stand-in for platform local authentication.
package passcode

import (
	"bufio"
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/jrsteele09/moneyguard/biometric"
	apperrors "github.com/jrsteele09/moneyguard/internal/errors"
	"golang.org/x/crypto/argon2"
)

const (
	scheme  = "argon2id"
	saltLen = 16
	keyLen  = 32
)

// Params configures argon2id.
type Params struct {
	Time        uint32
	MemoryKiB   uint32
	Parallelism uint8
}

// DefaultParams is the interactive-login profile.
func DefaultParams() Params {
	return Params{Time: 1, MemoryKiB: 64 * 1024, Parallelism: 4}
}

// Hash derives an encoded verifier for passcode:
// argon2id$<time>$<memory>$<parallelism>$<salt>$<key>.
func Hash(passcode string, params Params) (string, error) {
	if passcode == "" {
		return "", fmt.Errorf("passcode must not be empty")
	}
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}
	key := argon2.IDKey([]byte(passcode), salt, params.Time, params.MemoryKiB, params.Parallelism, keyLen)
	return strings.Join([]string{
		scheme,
		strconv.FormatUint(uint64(params.Time), 10),
		strconv.FormatUint(uint64(params.MemoryKiB), 10),
		strconv.FormatUint(uint64(params.Parallelism), 10),
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	}, "$"), nil
}

type verifier struct {
	params Params
	salt   []byte
	key    []byte
}

func parseHash(encoded string) (*verifier, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != scheme {
		return nil, fmt.Errorf("invalid passcode hash format")
	}
	t, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid time parameter: %w", err)
	}
	m, err := strconv.ParseUint(parts[2], 10, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid memory parameter: %w", err)
	}
	p, err := strconv.ParseUint(parts[3], 10, 8)
	if err != nil {
		return nil, fmt.Errorf("invalid parallelism parameter: %w", err)
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return nil, fmt.Errorf("invalid salt: %w", err)
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return nil, fmt.Errorf("invalid key: %w", err)
	}
	return &verifier{
		params: Params{Time: uint32(t), MemoryKiB: uint32(m), Parallelism: uint8(p)},
		salt:   salt,
		key:    key,
	}, nil
}

func (v *verifier) matches(passcode string) bool {
	key := argon2.IDKey([]byte(passcode), v.salt, v.params.Time, v.params.MemoryKiB, v.params.Parallelism, uint32(len(v.key)))
	return subtle.ConstantTimeCompare(key, v.key) == 1
}

// Gate prompts on out and reads the passcode as one line from in.
type Gate struct {
	mu       sync.Mutex
	verifier *verifier
	in       *bufio.Reader
	out      io.Writer
}

var _ biometric.Gate = (*Gate)(nil)

// New creates a gate. An empty hash means no passcode is enrolled.
func New(hash string, in io.Reader, out io.Writer) (*Gate, error) {
	g := &Gate{in: bufio.NewReader(in), out: out}
	if hash == "" {
		return g, nil
	}
	v, err := parseHash(hash)
	if err != nil {
		return nil, fmt.Errorf("[passcode New] %w", err)
	}
	g.verifier = v
	return g, nil
}

func (g *Gate) Capabilities(ctx context.Context) (biometric.Capabilities, error) {
	return biometric.Capabilities{
		HasHardware: true,
		IsEnrolled:  g.verifier != nil,
		Kinds:       []biometric.AuthKind{biometric.Passcode},
	}, nil
}

// Challenge reads one line. An empty line, EOF or a cancelled context count as
// the user cancelling. The read itself is not interruptible, so ctx is checked
// on both sides of it.
func (g *Gate) Challenge(ctx context.Context, prompt string) (bool, error) {
	if g.verifier == nil {
		return false, fmt.Errorf("[passcode Challenge] no passcode enrolled: %w", apperrors.ErrHardwareUnavailable)
	}
	if ctx.Err() != nil {
		return false, nil
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.out != nil {
		fmt.Fprintf(g.out, "%s: ", prompt)
	}
	line, err := g.in.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("[passcode Challenge] reading input: %w", apperrors.ErrHardwareUnavailable)
	}
	if ctx.Err() != nil {
		return false, nil
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return false, nil
	}
	if !g.verifier.matches(line) {
		return false, apperrors.ErrBiometricFailed
	}
	return true, nil
}
