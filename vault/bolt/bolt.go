// Package bolt provides a BBolt-backed vault.Vault whose values are sealed
// before they touch the file.
package bolt

import (
	"context"
	"fmt"

	apperrors "github.com/jrsteele09/moneyguard/internal/errors"
	"github.com/jrsteele09/moneyguard/internal/seal"
	"github.com/jrsteele09/moneyguard/vault"
	"go.etcd.io/bbolt"
)

var bucketName = []byte("secrets")

// Vault implements vault.Vault on top of a BBolt database.
type Vault struct {
	db     *bbolt.DB
	sealer *seal.Sealer
}

var _ vault.Vault = (*Vault)(nil)

// New returns a Vault using an already opened database.
func New(db *bbolt.DB, sealer *seal.Sealer) (*Vault, error) {
	err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("creating bucket: %w", err)
	}
	return &Vault{db: db, sealer: sealer}, nil
}

// Open opens (or creates) the database file at path with mode 0600.
func Open(path string, sealer *seal.Sealer, options *bbolt.Options) (*Vault, error) {
	db, err := bbolt.Open(path, 0o600, options)
	if err != nil {
		return nil, fmt.Errorf("opening bbolt db: %w", err)
	}
	v, err := New(db, sealer)
	if err != nil {
		db.Close()
		return nil, err
	}
	return v, nil
}

// Close closes the underlying database.
func (v *Vault) Close() error {
	return v.db.Close()
}

func (v *Vault) Set(ctx context.Context, key vault.Key, value string) error {
	if err := vault.CheckKey("set", key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return apperrors.NewStorageError("set", key.String(), err)
	}
	sealed, err := v.sealer.Seal([]byte(value), []byte(key))
	if err != nil {
		return apperrors.NewStorageError("set", key.String(), err)
	}
	err = v.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte(key), sealed)
	})
	return apperrors.NewStorageError("set", key.String(), err)
}

func (v *Vault) Get(ctx context.Context, key vault.Key) (string, bool, error) {
	if err := vault.CheckKey("get", key); err != nil {
		return "", false, err
	}
	if err := ctx.Err(); err != nil {
		return "", false, apperrors.NewStorageError("get", key.String(), err)
	}
	var sealed []byte
	err := v.db.View(func(tx *bbolt.Tx) error {
		// bbolt values are only valid inside the transaction.
		if data := tx.Bucket(bucketName).Get([]byte(key)); data != nil {
			sealed = append([]byte(nil), data...)
		}
		return nil
	})
	if err != nil {
		return "", false, apperrors.NewStorageError("get", key.String(), err)
	}
	if sealed == nil {
		return "", false, nil
	}
	plain, err := v.sealer.Open(sealed, []byte(key))
	if err != nil {
		return "", false, apperrors.NewStorageError("get", key.String(), err)
	}
	return string(plain), true, nil
}

func (v *Vault) Delete(ctx context.Context, key vault.Key) error {
	if err := vault.CheckKey("delete", key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return apperrors.NewStorageError("delete", key.String(), err)
	}
	err := v.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).Delete([]byte(key))
	})
	return apperrors.NewStorageError("delete", key.String(), err)
}
