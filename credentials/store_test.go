package credentials_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/jrsteele09/moneyguard/credentials"
	apperrors "github.com/jrsteele09/moneyguard/internal/errors"
	"github.com/jrsteele09/moneyguard/vault"
	"github.com/jrsteele09/moneyguard/vault/memory"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) (*credentials.Store, *memory.Vault) {
	t.Helper()
	v := memory.New()
	s, err := credentials.NewStore(v)
	require.NoError(t, err)
	return s, v
}

func TestNewStore_RequiresVault(t *testing.T) {
	_, err := credentials.NewStore(nil)
	require.Error(t, err)
}

func TestStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s, v := setupStore(t)

	_, ok, err := s.Get(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Set(ctx, "user_token_1"))
	token, ok, err := s.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "user_token_1", token)

	raw, _, err := v.Get(ctx, vault.KeyAccessToken)
	require.NoError(t, err)
	require.Equal(t, "user_token_1", raw)

	require.NoError(t, s.Clear(ctx))
	connected, err := s.Connected(ctx)
	require.NoError(t, err)
	require.False(t, connected)
}

func TestStore_ClearIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s, v := setupStore(t)

	require.NoError(t, s.Clear(ctx))
	require.NoError(t, s.Clear(ctx))
	require.Equal(t, 0, v.Len())
}

func TestStore_RejectsEmptyToken(t *testing.T) {
	s, _ := setupStore(t)
	require.Error(t, s.Set(context.Background(), ""))
}

func TestStore_Token(t *testing.T) {
	ctx := context.Background()
	s, _ := setupStore(t)

	_, err := s.Token(ctx)
	require.ErrorIs(t, err, apperrors.ErrUnauthenticated)

	require.NoError(t, s.Set(ctx, "abc"))
	tok, err := s.Token(ctx)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, "https://api.example.test/me", nil)
	require.NoError(t, err)
	tok.SetAuthHeader(req)
	require.Equal(t, "Bearer abc", req.Header.Get("Authorization"))
}

func TestStore_TokenSourceSeesClear(t *testing.T) {
	ctx := context.Background()
	s, _ := setupStore(t)
	src := s.TokenSource(ctx)

	require.NoError(t, s.Set(ctx, "first"))
	tok, err := src.Token()
	require.NoError(t, err)
	require.Equal(t, "first", tok.AccessToken)

	require.NoError(t, s.Clear(ctx))
	_, err = src.Token()
	require.ErrorIs(t, err, apperrors.ErrUnauthenticated)
}

func TestStore_StorageErrorsSurface(t *testing.T) {
	ctx := context.Background()
	s, v := setupStore(t)
	v.FailOn("get", errors.New("keystore locked"))

	_, _, err := s.Get(ctx)
	require.ErrorIs(t, err, apperrors.ErrStorage)

	_, err = s.Token(ctx)
	require.ErrorIs(t, err, apperrors.ErrStorage)
	require.NotErrorIs(t, err, apperrors.ErrUnauthenticated)
}
