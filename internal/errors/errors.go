package errors

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by the vault, gate, session, oauth and credential layers.
var (
	// Storage errors
	ErrStorage    = errors.New("secure storage failure")
	ErrUnknownKey = errors.New("unknown vault key")

	// Local authentication errors
	ErrHardwareUnavailable = errors.New("authentication hardware unavailable")
	ErrUserCancelled       = errors.New("authentication cancelled by user")
	ErrBiometricFailed     = errors.New("biometric authentication failed")

	// OAuth errors
	ErrOAuthNotConfigured     = errors.New("oauth client id not configured")
	ErrOAuthDenied            = errors.New("oauth authorization denied")
	ErrMissingParameters      = errors.New("missing authorization code or state")
	ErrStateMismatch          = errors.New("invalid state parameter")
	ErrTokenExchangeFailed    = errors.New("failed to exchange authorization code")
	ErrMalformedTokenResponse = errors.New("token response missing access_token")

	// Credential errors
	ErrUnauthenticated = errors.New("no access token available")

	// Session errors
	ErrCorruptSession = errors.New("session record is corrupt")
)

// StorageError reports a failed vault operation on a single key.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("vault %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is makes every StorageError match ErrStorage.
func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

// NewStorageError wraps err for the given operation and key. A nil err stays nil.
func NewStorageError(op, key string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Key: key, Err: err}
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Join combines errors, dropping nils.
func Join(errs ...error) error {
	return errors.Join(errs...)
}
