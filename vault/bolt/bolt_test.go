package bolt

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	apperrors "github.com/jrsteele09/moneyguard/internal/errors"
	"github.com/jrsteele09/moneyguard/internal/seal"
	"github.com/jrsteele09/moneyguard/vault"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"
)

func newSealer(t *testing.T) *seal.Sealer {
	t.Helper()
	s, err := seal.New(bytes.Repeat([]byte{3}, seal.KeySize), "moneyguard:vault:test")
	require.NoError(t, err)
	return s
}

func newTestVault(t *testing.T) (*Vault, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vault.db")
	v, err := Open(path, newSealer(t), nil)
	require.NoError(t, err)
	t.Cleanup(func() { v.Close() })
	return v, path
}

func TestVault_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	v, _ := newTestVault(t)

	_, ok, err := v.Get(ctx, vault.KeyAccessToken)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, v.Set(ctx, vault.KeyAccessToken, "user_token_abc"))
	got, ok, err := v.Get(ctx, vault.KeyAccessToken)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "user_token_abc", got)

	require.NoError(t, v.Delete(ctx, vault.KeyAccessToken))
	require.NoError(t, v.Delete(ctx, vault.KeyAccessToken))
	_, ok, err = v.Get(ctx, vault.KeyAccessToken)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestVault_EncryptedAtRest(t *testing.T) {
	ctx := context.Background()
	v, path := newTestVault(t)

	require.NoError(t, v.Set(ctx, vault.KeyAccessToken, "plaintext-bearer-token"))
	require.NoError(t, v.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.False(t, bytes.Contains(raw, []byte("plaintext-bearer-token")))
}

func TestVault_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "vault.db")
	sealer := newSealer(t)

	v, err := Open(path, sealer, nil)
	require.NoError(t, err)
	require.NoError(t, v.Set(ctx, vault.KeyBiometricEnabled, "true"))
	require.NoError(t, v.Close())

	v, err = Open(path, sealer, nil)
	require.NoError(t, err)
	defer v.Close()
	got, ok, err := v.Get(ctx, vault.KeyBiometricEnabled)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "true", got)
}

func TestVault_SwappedCiphertextFails(t *testing.T) {
	ctx := context.Background()
	v, _ := newTestVault(t)

	require.NoError(t, v.Set(ctx, vault.KeyAccessToken, "token"))
	err := v.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketName)
		return b.Put([]byte(vault.KeySession), append([]byte(nil), b.Get([]byte(vault.KeyAccessToken))...))
	})
	require.NoError(t, err)

	_, _, err = v.Get(ctx, vault.KeySession)
	require.ErrorIs(t, err, apperrors.ErrStorage)
	require.ErrorIs(t, err, seal.ErrInvalidCiphertext)
}

func TestVault_UnknownKeyAndCancelledContext(t *testing.T) {
	v, _ := newTestVault(t)

	err := v.Set(context.Background(), vault.Key("token"), "x")
	require.ErrorIs(t, err, apperrors.ErrUnknownKey)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = v.Set(ctx, vault.KeySession, "x")
	require.ErrorIs(t, err, apperrors.ErrStorage)
	require.ErrorIs(t, err, context.Canceled)
}
