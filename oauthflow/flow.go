// Package oauthflow runs the authorization-code flow against the data
// provider: mint a state nonce, build the consent URL, then validate the
// callback and exchange the code for an access token.
package oauthflow

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/moneyguard/internal/errors"
	"github.com/jrsteele09/moneyguard/internal/utils"
	"github.com/jrsteele09/moneyguard/vault"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

const (
	// DefaultStateTTL bounds how long a pending state nonce is accepted.
	DefaultStateTTL = 10 * time.Minute

	// DefaultExchangeTimeout bounds the token endpoint round trip.
	DefaultExchangeTimeout = 10 * time.Second

	stateBytes       = 32
	maxResponseBytes = 1 << 20
)

// TokenStore receives the exchanged access token.
type TokenStore interface {
	Set(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// Settings describe the client registration with the provider.
type Settings struct {
	ClientID    string
	AuthURL     string
	TokenURL    string
	RedirectURI string
	Scopes      []string
}

// Flow is the OAuth authorization-code client.
type Flow struct {
	oauth           *oauth2.Config
	vault           vault.Vault
	tokens          TokenStore
	httpClient      *http.Client
	stateTTL        time.Duration
	exchangeTimeout time.Duration
	nowTime         func() time.Time // injectable for testing
	random          io.Reader
	lock            sync.Locker
	logger          zerolog.Logger
}

// FlowOption defines a function type to modify the Flow instance.
type FlowOption func(*Flow)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) FlowOption {
	return func(f *Flow) {
		f.nowTime = nowFunc
	}
}

// WithHTTPClient sets the client used for the token exchange.
func WithHTTPClient(client *http.Client) FlowOption {
	return func(f *Flow) {
		f.httpClient = client
	}
}

// WithStateTTL overrides DefaultStateTTL. Non-positive values are ignored.
func WithStateTTL(ttl time.Duration) FlowOption {
	return func(f *Flow) {
		if ttl > 0 {
			f.stateTTL = ttl
		}
	}
}

// WithExchangeTimeout overrides DefaultExchangeTimeout. Non-positive values are ignored.
func WithExchangeTimeout(timeout time.Duration) FlowOption {
	return func(f *Flow) {
		if timeout > 0 {
			f.exchangeTimeout = timeout
		}
	}
}

// WithRandom sets the entropy source for state nonces (primarily for testing)
func WithRandom(r io.Reader) FlowOption {
	return func(f *Flow) {
		f.random = r
	}
}

// WithLocker sets the lock serializing vault mutations.
func WithLocker(l sync.Locker) FlowOption {
	return func(f *Flow) {
		f.lock = l
	}
}

// WithLogger sets the logger
func WithLogger(logger zerolog.Logger) FlowOption {
	return func(f *Flow) {
		f.logger = logger
	}
}

// NewFlow creates a flow for the given client registration. An empty client
// id is accepted so Pending and Disconnect still work; Initiate and Complete
// then fail with ErrOAuthNotConfigured.
func NewFlow(settings Settings, v vault.Vault, tokens TokenStore, options ...FlowOption) (*Flow, error) {
	if v == nil {
		return nil, errors.New("[NewFlow] vault is required")
	}
	if tokens == nil {
		return nil, errors.New("[NewFlow] token store is required")
	}
	if settings.AuthURL == "" || settings.TokenURL == "" || settings.RedirectURI == "" {
		return nil, errors.New("[NewFlow] auth url, token url and redirect uri are required")
	}
	scopes := settings.Scopes
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}

	f := &Flow{
		oauth: &oauth2.Config{
			ClientID:    settings.ClientID,
			RedirectURL: settings.RedirectURI,
			Scopes:      scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  settings.AuthURL,
				TokenURL: settings.TokenURL,
			},
		},
		vault:           v,
		tokens:          tokens,
		stateTTL:        DefaultStateTTL,
		exchangeTimeout: DefaultExchangeTimeout,
		nowTime:         time.Now,
		lock:            &sync.Mutex{},
		logger:          zerolog.Nop(),
	}
	for _, opt := range options {
		opt(f)
	}
	if f.httpClient == nil {
		f.httpClient = &http.Client{Timeout: f.exchangeTimeout}
	}
	return f, nil
}

// RedirectURI returns the registered callback address.
func (f *Flow) RedirectURI() string {
	return f.oauth.RedirectURL
}

// CallbackURL rebuilds the full callback URL on the registered redirect URI.
func (f *Flow) CallbackURL(params CallbackParams) string {
	return CallbackURL(f.oauth.RedirectURL, params)
}

// Initiate mints a fresh state nonce, replacing any pending one, and returns
// the consent URL to open in an external browser.
func (f *Flow) Initiate(ctx context.Context) (*AuthorizationRequest, error) {
	if f.oauth.ClientID == "" {
		return nil, fmt.Errorf("[Flow.Initiate] %w", apperrors.ErrOAuthNotConfigured)
	}
	state, err := utils.RandomString(f.random, stateBytes)
	if err != nil {
		return nil, fmt.Errorf("[Flow.Initiate] generate state: %w", err)
	}
	now := f.nowTime()

	f.lock.Lock()
	err = vault.SetJSON(ctx, f.vault, vault.KeyAuthState, pendingState{Value: state, CreatedAt: now})
	f.lock.Unlock()
	if err != nil {
		return nil, fmt.Errorf("[Flow.Initiate] %w", err)
	}

	f.logger.Info().Time("expires_at", now.Add(f.stateTTL)).Msg("OAuth authorization initiated")
	return &AuthorizationRequest{
		URL:       f.oauth.AuthCodeURL(state),
		State:     state,
		ExpiresAt: now.Add(f.stateTTL),
	}, nil
}

// Complete validates the callback against the pending state, exchanges the
// code and stores the resulting access token, which is also returned.
//
// A state mismatch leaves the pending nonce in place so a forged callback
// cannot cancel a genuine one. A matching or expired nonce is deleted before
// any network traffic.
func (f *Flow) Complete(ctx context.Context, callbackURL string) (string, error) {
	if f.oauth.ClientID == "" {
		return "", fmt.Errorf("[Flow.Complete] %w", apperrors.ErrOAuthNotConfigured)
	}
	params, err := ParseCallback(callbackURL)
	if err != nil {
		return "", err
	}
	if params.Denied() {
		msg := params.Error
		if params.ErrorDescription != "" {
			msg += ": " + params.ErrorDescription
		}
		f.logger.Warn().Str("error", params.Error).Msg("OAuth authorization denied")
		return "", apperrors.Wrapf(apperrors.ErrOAuthDenied, "[Flow.Complete] %s", msg)
	}
	if params.Code == "" || params.State == "" {
		return "", apperrors.Wrapf(apperrors.ErrMissingParameters, "[Flow.Complete] code or state absent")
	}

	if err := f.consumeState(ctx, params.State); err != nil {
		return "", err
	}

	token, err := f.exchange(ctx, params.Code)
	if err != nil {
		f.logger.Error().Err(err).Msg("Token exchange failed")
		return "", err
	}

	// A cancellation that raced the response must not leave a token behind.
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: [Flow.Complete] %w", apperrors.ErrTokenExchangeFailed, err)
	}
	if err := f.tokens.Set(ctx, token); err != nil {
		return "", fmt.Errorf("[Flow.Complete] %w", err)
	}
	f.logger.Info().Msg("OAuth connection established")
	return token, nil
}

// Disconnect forgets the access token. A pending state is left alone.
func (f *Flow) Disconnect(ctx context.Context) error {
	if err := f.tokens.Clear(ctx); err != nil {
		return fmt.Errorf("[Flow.Disconnect] %w", err)
	}
	f.logger.Info().Msg("OAuth connection removed")
	return nil
}

// Pending reports whether a state nonce is waiting for its callback.
func (f *Flow) Pending(ctx context.Context) (bool, error) {
	pending, err := vault.GetJSON[pendingState](ctx, f.vault, vault.KeyAuthState)
	if err != nil {
		return false, fmt.Errorf("[Flow.Pending] %w", err)
	}
	return pending != nil && f.nowTime().Sub(pending.CreatedAt) < f.stateTTL, nil
}

// consumeState checks got against the pending nonce and deletes the nonce on
// a match or when it has expired.
func (f *Flow) consumeState(ctx context.Context, got string) error {
	f.lock.Lock()
	defer f.lock.Unlock()

	pending, err := vault.GetJSON[pendingState](ctx, f.vault, vault.KeyAuthState)
	if err != nil {
		if errors.Is(err, apperrors.ErrStorage) {
			return fmt.Errorf("[Flow.Complete] %w", err)
		}
		// An unreadable record can never match; drop it.
		f.logger.Warn().Err(err).Msg("Discarding corrupt pending state")
		if delErr := f.vault.Delete(ctx, vault.KeyAuthState); delErr != nil {
			return fmt.Errorf("[Flow.Complete] %w", delErr)
		}
		return apperrors.Wrapf(apperrors.ErrStateMismatch, "[Flow.Complete] pending state unreadable")
	}
	if pending == nil || pending.Value == "" {
		return apperrors.Wrapf(apperrors.ErrStateMismatch, "[Flow.Complete] no pending state")
	}

	if f.nowTime().Sub(pending.CreatedAt) >= f.stateTTL {
		if err := f.vault.Delete(ctx, vault.KeyAuthState); err != nil {
			return fmt.Errorf("[Flow.Complete] %w", err)
		}
		f.logger.Warn().Msg("Pending state expired")
		return apperrors.Wrapf(apperrors.ErrStateMismatch, "[Flow.Complete] pending state expired")
	}

	if subtle.ConstantTimeCompare([]byte(pending.Value), []byte(got)) != 1 {
		f.logger.Warn().Msg("Callback state does not match pending state")
		return apperrors.Wrapf(apperrors.ErrStateMismatch, "[Flow.Complete] state does not match")
	}

	if err := f.vault.Delete(ctx, vault.KeyAuthState); err != nil {
		return fmt.Errorf("[Flow.Complete] %w", err)
	}
	return nil
}

// exchange POSTs the code to the token endpoint as JSON.
func (f *Flow) exchange(ctx context.Context, code string) (string, error) {
	body, err := json.Marshal(tokenRequest{
		GrantType:   AuthorizationCodeGrant,
		ClientID:    f.oauth.ClientID,
		Code:        code,
		RedirectURI: f.oauth.RedirectURL,
	})
	if err != nil {
		return "", fmt.Errorf("%w: [Flow.exchange] encode request: %w", apperrors.ErrTokenExchangeFailed, err)
	}

	ctx, cancel := context.WithTimeout(ctx, f.exchangeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.oauth.Endpoint.TokenURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: [Flow.exchange] build request: %w", apperrors.ErrTokenExchangeFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: [Flow.exchange] %w", apperrors.ErrTokenExchangeFailed, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("%w: [Flow.exchange] read response: %w", apperrors.ErrTokenExchangeFailed, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: [Flow.exchange] token endpoint returned %d: %s",
			apperrors.ErrTokenExchangeFailed, resp.StatusCode, truncate(string(raw), 200))
	}

	var tr tokenResponse
	if err := json.Unmarshal(raw, &tr); err != nil {
		return "", fmt.Errorf("%w: [Flow.exchange] decode response: %w", apperrors.ErrMalformedTokenResponse, err)
	}
	token := utils.Value(tr.AccessToken)
	if token == "" {
		return "", apperrors.Wrapf(apperrors.ErrMalformedTokenResponse, "[Flow.exchange]")
	}
	return token, nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
