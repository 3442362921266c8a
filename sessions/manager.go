// Package sessions owns the local session lifecycle:
// NoSession → Active → Expired → NoSession.
package sessions

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/moneyguard/internal/errors"
	"github.com/jrsteele09/moneyguard/vault"
	"github.com/rs/zerolog"
)

// DefaultTimeout is the inactivity window after which a session is expired.
const DefaultTimeout = 15 * time.Minute

// Manager creates, validates, touches and destroys the device session.
// Every read-modify-write runs under lock, which callers share with the
// credential store so vault mutations never interleave.
type Manager struct {
	vault   vault.Vault
	timeout time.Duration
	nowTime func() time.Time // injectable for testing
	lock    sync.Locker
	logger  zerolog.Logger
}

// ManagerOption defines a function type to modify the Manager instance.
type ManagerOption func(*Manager)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowTime = nowFunc
	}
}

// WithTimeout overrides DefaultTimeout. Non-positive values are ignored.
func WithTimeout(timeout time.Duration) ManagerOption {
	return func(m *Manager) {
		if timeout > 0 {
			m.timeout = timeout
		}
	}
}

// WithLocker sets the lock serializing vault mutations.
func WithLocker(l sync.Locker) ManagerOption {
	return func(m *Manager) {
		m.lock = l
	}
}

// WithLogger sets the logger
func WithLogger(logger zerolog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a session manager persisting through v.
func NewManager(v vault.Vault, options ...ManagerOption) (*Manager, error) {
	if v == nil {
		return nil, errors.New("[NewManager] vault is required")
	}
	m := &Manager{
		vault:   v,
		timeout: DefaultTimeout,
		nowTime: time.Now,
		lock:    &sync.Mutex{},
		logger:  zerolog.Nop(),
	}
	for _, opt := range options {
		opt(m)
	}
	return m, nil
}

// Timeout returns the configured inactivity window.
func (m *Manager) Timeout() time.Duration {
	return m.timeout
}

// Create starts a fresh session, replacing any existing one.
func (m *Manager) Create(ctx context.Context) (*Session, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	now := m.nowTime()
	s := &Session{
		ID:           uuid.New().String(),
		CreatedAt:    now,
		LastActivity: now,
	}
	if err := vault.SetJSON(ctx, m.vault, vault.KeySession, s); err != nil {
		return nil, fmt.Errorf("[Manager.Create] %w", err)
	}
	m.logger.Info().Str("session_id", s.ID).Msg("Session created")
	return s, nil
}

// Touch records user activity. It does nothing when there is no live session.
func (m *Manager) Touch(ctx context.Context) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	s, err := m.load(ctx)
	if err != nil {
		return fmt.Errorf("[Manager.Touch] %w", err)
	}
	if s == nil || s.Expired(m.nowTime(), m.timeout) {
		return nil
	}
	if err := m.touchLocked(ctx, s); err != nil {
		return fmt.Errorf("[Manager.Touch] %w", err)
	}
	return nil
}

// Validate reports whether a live session exists, deleting it if it has
// expired and extending it otherwise. A false result with a nil error is a
// legitimate absence or expiry; storage failures come back as errors.
func (m *Manager) Validate(ctx context.Context) (bool, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	s, err := m.load(ctx)
	if err != nil {
		return false, fmt.Errorf("[Manager.Validate] %w", err)
	}
	if s == nil {
		return false, nil
	}

	now := m.nowTime()
	if s.Expired(now, m.timeout) {
		if err := m.vault.Delete(ctx, vault.KeySession); err != nil {
			return false, fmt.Errorf("[Manager.Validate] deleting expired session: %w", err)
		}
		m.logger.Info().Str("session_id", s.ID).Dur("idle", s.IdleFor(now)).Msg("Session expired")
		return false, nil
	}

	if err := m.touchLocked(ctx, s); err != nil {
		return false, fmt.Errorf("[Manager.Validate] %w", err)
	}
	return true, nil
}

// Destroy removes the session. Destroying a missing session succeeds.
func (m *Manager) Destroy(ctx context.Context) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	if err := m.vault.Delete(ctx, vault.KeySession); err != nil {
		return fmt.Errorf("[Manager.Destroy] %w", err)
	}
	return nil
}

// Current returns the live session without touching it, or nil.
func (m *Manager) Current(ctx context.Context) (*Session, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	s, err := m.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("[Manager.Current] %w", err)
	}
	if s == nil || s.Expired(m.nowTime(), m.timeout) {
		return nil, nil
	}
	return s, nil
}

// load reads the session record. An undecodable record is removed and
// reported as ErrCorruptSession.
func (m *Manager) load(ctx context.Context) (*Session, error) {
	s, err := vault.GetJSON[Session](ctx, m.vault, vault.KeySession)
	if err == nil {
		return s, nil
	}
	if apperrors.Is(err, apperrors.ErrStorage) {
		return nil, err
	}
	m.logger.Warn().Err(err).Msg("Discarding corrupt session record")
	if delErr := m.vault.Delete(ctx, vault.KeySession); delErr != nil {
		return nil, apperrors.Join(fmt.Errorf("%w: %v", apperrors.ErrCorruptSession, err), delErr)
	}
	return nil, fmt.Errorf("%w: %v", apperrors.ErrCorruptSession, err)
}

// touchLocked moves LastActivity forward; a clock that went backwards never
// moves it back.
func (m *Manager) touchLocked(ctx context.Context, s *Session) error {
	if now := m.nowTime(); now.After(s.LastActivity) {
		s.LastActivity = now
	}
	return vault.SetJSON(ctx, m.vault, vault.KeySession, s)
}
