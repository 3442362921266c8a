// Package credentials owns the single bearer token for the data API.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"sync"

	apperrors "github.com/jrsteele09/moneyguard/internal/errors"
	"github.com/jrsteele09/moneyguard/vault"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

// Store persists the access token in the vault. No copy is held in memory;
// every read goes to the vault so a Clear is seen at once.
type Store struct {
	vault  vault.Vault
	lock   sync.Locker
	logger zerolog.Logger
}

// StoreOption defines a function type to modify the Store instance.
type StoreOption func(*Store)

// WithLocker sets the lock serializing vault mutations.
func WithLocker(l sync.Locker) StoreOption {
	return func(s *Store) {
		s.lock = l
	}
}

// WithLogger sets the logger
func WithLogger(logger zerolog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore creates a credential store over v.
func NewStore(v vault.Vault, options ...StoreOption) (*Store, error) {
	if v == nil {
		return nil, errors.New("[NewStore] vault is required")
	}
	s := &Store{
		vault:  v,
		lock:   &sync.Mutex{},
		logger: zerolog.Nop(),
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Set stores token, replacing any previous one.
func (s *Store) Set(ctx context.Context, token string) error {
	if token == "" {
		return errors.New("[Store.Set] token must not be empty")
	}
	s.lock.Lock()
	defer s.lock.Unlock()

	if err := s.vault.Set(ctx, vault.KeyAccessToken, token); err != nil {
		return fmt.Errorf("[Store.Set] %w", err)
	}
	s.logger.Info().Int("token_length", len(token)).Msg("Access token stored")
	return nil
}

// Get returns the token and whether one is present.
func (s *Store) Get(ctx context.Context) (string, bool, error) {
	token, ok, err := s.vault.Get(ctx, vault.KeyAccessToken)
	if err != nil {
		return "", false, fmt.Errorf("[Store.Get] %w", err)
	}
	return token, ok && token != "", nil
}

// Clear removes the token. Clearing an empty store succeeds.
func (s *Store) Clear(ctx context.Context) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if err := s.vault.Delete(ctx, vault.KeyAccessToken); err != nil {
		return fmt.Errorf("[Store.Clear] %w", err)
	}
	s.logger.Info().Msg("Access token cleared")
	return nil
}

// Connected reports whether a token is present.
func (s *Store) Connected(ctx context.Context) (bool, error) {
	_, ok, err := s.Get(ctx)
	return ok, err
}

// Token reads the vault immediately and wraps the result for use as a bearer
// credential. A missing token is ErrUnauthenticated.
func (s *Store) Token(ctx context.Context) (*oauth2.Token, error) {
	token, ok, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.ErrUnauthenticated
	}
	return &oauth2.Token{AccessToken: token, TokenType: "Bearer"}, nil
}

// TokenSource adapts the store to oauth2.TokenSource. Each Token call reads
// the vault, so it must not be wrapped in oauth2.ReuseTokenSource.
func (s *Store) TokenSource(ctx context.Context) oauth2.TokenSource {
	return tokenSource{ctx: ctx, store: s}
}

type tokenSource struct {
	ctx   context.Context
	store *Store
}

func (ts tokenSource) Token() (*oauth2.Token, error) {
	return ts.store.Token(ts.ctx)
}
