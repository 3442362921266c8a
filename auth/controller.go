// Package auth coordinates the biometric gate and the session manager into
// the single authenticated flag the app is gated on.
package auth

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/moneyguard/biometric"
	apperrors "github.com/jrsteele09/moneyguard/internal/errors"
	"github.com/jrsteele09/moneyguard/sessions"
	"github.com/jrsteele09/moneyguard/vault"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// Challenge prompts shown to the user.
const (
	UnlockPrompt = "Authenticate to access your financial data"
	EnablePrompt = "Enable biometric authentication"

	biometricEnabledValue = "true"
)

// SessionManager is the session lifecycle the controller drives.
type SessionManager interface {
	Create(ctx context.Context) (*sessions.Session, error)
	Validate(ctx context.Context) (bool, error)
	Touch(ctx context.Context) error
	Destroy(ctx context.Context) error
}

// CredentialClearer forgets the data API credential.
type CredentialClearer interface {
	Clear(ctx context.Context) error
}

// Deps holds all dependencies for the Controller
type Deps struct {
	Vault       vault.Vault       // Backing store for the biometric preference and wipe
	Gate        biometric.Gate    // Local authentication
	Sessions    SessionManager    // Session lifecycle
	Credentials CredentialClearer // Data API credential
}

// Snapshot is the controller state exposed to the presentation layer.
type Snapshot struct {
	Authenticated    bool
	BiometricEnabled bool
	Capabilities     biometric.Capabilities
	CheckedAt        time.Time
}

// Controller is the authentication state machine.
type Controller struct {
	deps    Deps
	nowTime func() time.Time // nowTime function (injectable for testing)
	logger  zerolog.Logger
	lock    sync.Locker // Serializes vault writes with the other components

	mu               sync.RWMutex
	authenticated    bool
	biometricEnabled bool
	capabilities     biometric.Capabilities
	checkedAt        time.Time
}

// ControllerOption defines a function type to modify the Controller instance.
type ControllerOption func(*Controller)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ControllerOption {
	return func(c *Controller) {
		c.nowTime = nowFunc
	}
}

// WithLogger sets the logger
func WithLogger(logger zerolog.Logger) ControllerOption {
	return func(c *Controller) {
		c.logger = logger
	}
}

// WithLocker sets the writer lock shared with the session manager, the
// credential store and the OAuth flow.
func WithLocker(lock sync.Locker) ControllerOption {
	return func(c *Controller) {
		c.lock = lock
	}
}

// NewController initializes a Controller with required dependencies.
func NewController(deps Deps, options ...ControllerOption) (*Controller, error) {
	if deps.Vault == nil {
		return nil, errors.New("[NewController] Vault is required")
	}
	if deps.Gate == nil {
		return nil, errors.New("[NewController] Gate is required")
	}
	if deps.Sessions == nil {
		return nil, errors.New("[NewController] Sessions is required")
	}
	if deps.Credentials == nil {
		return nil, errors.New("[NewController] Credentials is required")
	}

	c := &Controller{
		deps:    deps,
		nowTime: time.Now,
		logger:  zerolog.Nop(),
		lock:    &sync.Mutex{},
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// Bootstrap loads capabilities and the biometric preference, then validates
// any existing session. It runs at startup and on resume.
//
// A storage failure returns false together with the error; an expired or
// absent session returns false with a nil error.
func (c *Controller) Bootstrap(ctx context.Context) (bool, error) {
	caps, capsErr := c.deps.Gate.Capabilities(ctx)
	if capsErr != nil {
		c.logger.Warn().Err(capsErr).Msg("Biometric capability query failed")
	}

	enabled, err := c.loadPreference(ctx)
	if err != nil {
		c.setAuthenticated(false)
		c.logger.Error().Err(err).Msg("Failed to read biometric preference")
		return false, errors.Wrap(err, "[Bootstrap] biometric preference")
	}

	valid, err := c.deps.Sessions.Validate(ctx)

	c.mu.Lock()
	if capsErr == nil {
		c.capabilities = caps
	}
	c.biometricEnabled = enabled
	c.authenticated = err == nil && valid
	c.checkedAt = c.nowTime()
	c.mu.Unlock()

	if err != nil {
		c.logger.Error().Err(err).Msg("Session validation failed")
		return false, errors.Wrap(err, "[Bootstrap] session validation")
	}
	if !valid {
		c.logger.Info().Msg("No active session, authentication required")
	}
	return valid, nil
}

// Authenticate challenges the user when biometrics are enabled and usable,
// then starts a new session. A refused or cancelled challenge leaves no
// session behind.
//
// The preference is read from the vault on every call. An unreadable
// preference fails closed.
func (c *Controller) Authenticate(ctx context.Context) error {
	enabled, err := c.loadPreference(ctx)
	if err != nil {
		c.setAuthenticated(false)
		c.logger.Error().Err(err).Msg("Failed to read biometric preference")
		return errors.Wrap(err, "[Authenticate] biometric preference")
	}
	c.mu.Lock()
	c.biometricEnabled = enabled
	c.mu.Unlock()

	if enabled {
		caps, err := c.deps.Gate.Capabilities(ctx)
		if err != nil {
			c.setAuthenticated(false)
			return errors.Wrap(err, "[Authenticate] capability query")
		}
		c.setCapabilities(caps)

		if caps.Usable() {
			ok, err := c.deps.Gate.Challenge(ctx, UnlockPrompt)
			if err != nil {
				c.setAuthenticated(false)
				c.logger.Warn().Err(err).Msg("Biometric challenge failed")
				return errors.Wrap(err, "[Authenticate] challenge")
			}
			if !ok {
				c.setAuthenticated(false)
				c.logger.Info().Msg("Biometric challenge cancelled")
				return errors.Wrap(apperrors.ErrUserCancelled, "[Authenticate]")
			}
		} else {
			c.logger.Warn().Str("kinds", caps.String()).Msg("Biometric enabled but not usable, skipping challenge")
		}
	}

	s, err := c.deps.Sessions.Create(ctx)
	if err != nil {
		c.setAuthenticated(false)
		c.logger.Error().Err(err).Msg("Failed to create session")
		return errors.Wrap(err, "[Authenticate] create session")
	}
	c.setAuthenticated(true)
	c.logger.Info().Str("session_id", s.ID).Msg("Authenticated")
	return nil
}

// Logout ends the session. The controller is unauthenticated afterwards even
// if the delete fails.
func (c *Controller) Logout(ctx context.Context) error {
	c.setAuthenticated(false)
	if err := c.deps.Sessions.Destroy(ctx); err != nil {
		c.logger.Error().Err(err).Msg("Logout failed")
		return errors.Wrap(err, "[Logout]")
	}
	c.logger.Info().Msg("Logged out")
	return nil
}

// EnableBiometric requires a successful challenge before the preference is
// persisted.
func (c *Controller) EnableBiometric(ctx context.Context) error {
	caps, err := c.deps.Gate.Capabilities(ctx)
	if err != nil {
		return errors.Wrap(err, "[EnableBiometric] capability query")
	}
	c.setCapabilities(caps)
	if !caps.HasHardware {
		return errors.Wrap(apperrors.ErrHardwareUnavailable, "[EnableBiometric] no hardware")
	}
	if !caps.IsEnrolled {
		return errors.Wrap(apperrors.ErrHardwareUnavailable, "[EnableBiometric] nothing enrolled")
	}

	ok, err := c.deps.Gate.Challenge(ctx, EnablePrompt)
	if err != nil {
		return errors.Wrap(err, "[EnableBiometric] challenge")
	}
	if !ok {
		return errors.Wrap(apperrors.ErrUserCancelled, "[EnableBiometric]")
	}

	c.lock.Lock()
	err = c.deps.Vault.Set(ctx, vault.KeyBiometricEnabled, biometricEnabledValue)
	c.lock.Unlock()
	if err != nil {
		return errors.Wrap(err, "[EnableBiometric] persist preference")
	}
	c.mu.Lock()
	c.biometricEnabled = true
	c.mu.Unlock()
	c.logger.Info().Str("kinds", caps.String()).Msg("Biometric authentication enabled")
	return nil
}

// DisableBiometric removes the preference.
func (c *Controller) DisableBiometric(ctx context.Context) error {
	c.lock.Lock()
	err := c.deps.Vault.Delete(ctx, vault.KeyBiometricEnabled)
	c.lock.Unlock()
	if err != nil {
		return errors.Wrap(err, "[DisableBiometric]")
	}
	c.mu.Lock()
	c.biometricEnabled = false
	c.mu.Unlock()
	c.logger.Info().Msg("Biometric authentication disabled")
	return nil
}

// Touch records user activity on the current session.
func (c *Controller) Touch(ctx context.Context) error {
	if err := c.deps.Sessions.Touch(ctx); err != nil {
		c.logger.Error().Err(err).Msg("Failed to update activity")
		return errors.Wrap(err, "[Touch]")
	}
	return nil
}

// WipeAll deletes every secret the app holds. Every deletion is attempted;
// failures are joined. The credential store and session manager take the
// writer lock themselves, so it is held only over the direct key deletes.
func (c *Controller) WipeAll(ctx context.Context) error {
	c.setAuthenticated(false)

	var errs []error
	if err := c.deps.Credentials.Clear(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := c.deps.Sessions.Destroy(ctx); err != nil {
		errs = append(errs, err)
	}
	c.lock.Lock()
	for _, key := range []vault.Key{vault.KeyBiometricEnabled, vault.KeyAuthState, vault.KeyUserPreferences} {
		if err := c.deps.Vault.Delete(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	c.lock.Unlock()

	c.mu.Lock()
	c.biometricEnabled = false
	c.mu.Unlock()

	if err := apperrors.Join(errs...); err != nil {
		c.logger.Error().Err(err).Msg("Failed to clear all secure data")
		return errors.Wrap(err, "[WipeAll]")
	}
	c.logger.Info().Msg("All secure data cleared")
	return nil
}

// State returns a copy of the controller state.
func (c *Controller) State() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	caps := c.capabilities
	caps.Kinds = append([]biometric.AuthKind(nil), caps.Kinds...)
	return Snapshot{
		Authenticated:    c.authenticated,
		BiometricEnabled: c.biometricEnabled,
		Capabilities:     caps,
		CheckedAt:        c.checkedAt,
	}
}

// Authenticated reports the current gate decision.
func (c *Controller) Authenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.authenticated
}

func (c *Controller) loadPreference(ctx context.Context) (bool, error) {
	value, ok, err := c.deps.Vault.Get(ctx, vault.KeyBiometricEnabled)
	if err != nil {
		return false, err
	}
	return ok && value == biometricEnabledValue, nil
}

func (c *Controller) setAuthenticated(v bool) {
	c.mu.Lock()
	c.authenticated = v
	c.mu.Unlock()
}

func (c *Controller) setCapabilities(caps biometric.Capabilities) {
	c.mu.Lock()
	c.capabilities = caps
	c.mu.Unlock()
}
