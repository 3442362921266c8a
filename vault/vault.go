// Package vault defines the encrypted key/value contract for on-device secrets.
//
// Every persisted entry has a fixed, typed key. Implementations reject keys
// outside that set so two components can never collide on a name and a typo
// fails loudly instead of silently creating a new entry.
package vault

import (
	"context"
	"encoding/json"
	"fmt"

	apperrors "github.com/jrsteele09/moneyguard/internal/errors"
)

// Key names a single vault entry.
type Key string

const (
	KeyAccessToken      Key = "akahu_access_token"
	KeyAuthState        Key = "akahu_auth_state"
	KeySession          Key = "user_session"
	KeyBiometricEnabled Key = "biometric_enabled"
	KeyUserPreferences  Key = "user_preferences"
)

// Keys lists every entry the vault accepts.
func Keys() []Key {
	return []Key{KeyAccessToken, KeyAuthState, KeySession, KeyBiometricEnabled, KeyUserPreferences}
}

// Valid reports whether k is one of the known entries.
func (k Key) Valid() bool {
	for _, known := range Keys() {
		if k == known {
			return true
		}
	}
	return false
}

func (k Key) String() string {
	return string(k)
}

// Vault stores secrets encrypted at rest. All operations are idempotent and
// Delete of a missing key succeeds. Failures match errors.ErrStorage.
type Vault interface {
	Set(ctx context.Context, key Key, value string) error
	// Get returns ok=false when the key has no value.
	Get(ctx context.Context, key Key) (value string, ok bool, err error)
	Delete(ctx context.Context, key Key) error
}

// CheckKey returns a StorageError for keys outside the known set.
func CheckKey(op string, key Key) error {
	if !key.Valid() {
		return apperrors.NewStorageError(op, string(key), apperrors.ErrUnknownKey)
	}
	return nil
}

// SetJSON encodes v and stores it under key.
func SetJSON[T any](ctx context.Context, v Vault, key Key, value T) error {
	data, err := json.Marshal(value)
	if err != nil {
		return apperrors.NewStorageError("encode", string(key), err)
	}
	return v.Set(ctx, key, string(data))
}

// GetJSON loads and decodes the record under key. A nil result with a nil
// error means the key is absent. Decoding failures are returned unwrapped so
// callers can tell a corrupt record apart from an I/O failure.
func GetJSON[T any](ctx context.Context, v Vault, key Key) (*T, error) {
	raw, ok, err := v.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	var out T
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return &out, nil
}
