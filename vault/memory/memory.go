// Package memory provides a thread-safe in-memory vault.Vault.
// Suitable for tests and ephemeral runs; nothing is written to disk.
package memory

import (
	"context"
	"sync"

	apperrors "github.com/jrsteele09/moneyguard/internal/errors"
	"github.com/jrsteele09/moneyguard/vault"
)

var _ vault.Vault = (*Vault)(nil)

// Vault is a map-backed vault.Vault.
type Vault struct {
	mu      sync.RWMutex
	entries map[vault.Key]string
	fail    map[string]error // op -> injected error
}

// New creates an empty in-memory vault.
func New() *Vault {
	return &Vault{
		entries: make(map[vault.Key]string),
		fail:    make(map[string]error),
	}
}

// FailOn makes every subsequent op ("set", "get" or "delete") fail with err.
// Passing a nil err clears the failure.
func (v *Vault) FailOn(op string, err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if err == nil {
		delete(v.fail, op)
		return
	}
	v.fail[op] = err
}

func (v *Vault) Set(ctx context.Context, key vault.Key, value string) error {
	if err := vault.CheckKey("set", key); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.failure("set", key); err != nil {
		return err
	}
	v.entries[key] = value
	return nil
}

func (v *Vault) Get(ctx context.Context, key vault.Key) (string, bool, error) {
	if err := vault.CheckKey("get", key); err != nil {
		return "", false, err
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	if err := v.failure("get", key); err != nil {
		return "", false, err
	}
	value, ok := v.entries[key]
	return value, ok, nil
}

func (v *Vault) Delete(ctx context.Context, key vault.Key) error {
	if err := vault.CheckKey("delete", key); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.failure("delete", key); err != nil {
		return err
	}
	delete(v.entries, key)
	return nil
}

// Len returns the number of stored entries.
func (v *Vault) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.entries)
}

func (v *Vault) failure(op string, key vault.Key) error {
	if err, ok := v.fail[op]; ok {
		return apperrors.NewStorageError(op, string(key), err)
	}
	return nil
}
