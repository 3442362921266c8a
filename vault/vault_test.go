package vault_test

import (
	"context"
	"testing"

	apperrors "github.com/jrsteele09/moneyguard/internal/errors"
	"github.com/jrsteele09/moneyguard/vault"
	"github.com/jrsteele09/moneyguard/vault/memory"
	"github.com/stretchr/testify/require"
)

type record struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestKeys_AreDistinct(t *testing.T) {
	seen := map[vault.Key]bool{}
	for _, k := range vault.Keys() {
		require.False(t, seen[k], "duplicate key %s", k)
		require.True(t, k.Valid())
		seen[k] = true
	}
	require.False(t, vault.Key("akahu_acess_token").Valid())
}

func TestJSONHelpers(t *testing.T) {
	ctx := context.Background()
	v := memory.New()

	got, err := vault.GetJSON[record](ctx, v, vault.KeySession)
	require.NoError(t, err)
	require.Nil(t, got)

	require.NoError(t, vault.SetJSON(ctx, v, vault.KeySession, record{Name: "a", Count: 2}))
	got, err = vault.GetJSON[record](ctx, v, vault.KeySession)
	require.NoError(t, err)
	require.Equal(t, &record{Name: "a", Count: 2}, got)

	require.NoError(t, v.Set(ctx, vault.KeySession, "{not json"))
	_, err = vault.GetJSON[record](ctx, v, vault.KeySession)
	require.Error(t, err)
	require.NotErrorIs(t, err, apperrors.ErrStorage)
}

func TestCheckKey(t *testing.T) {
	require.NoError(t, vault.CheckKey("get", vault.KeyAuthState))
	err := vault.CheckKey("get", vault.Key("typo"))
	require.ErrorIs(t, err, apperrors.ErrStorage)
	require.ErrorIs(t, err, apperrors.ErrUnknownKey)
}
