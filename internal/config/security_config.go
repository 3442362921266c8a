package config

import "time"

type SecurityConfig interface {
	GetSessionTimeout() time.Duration
	GetPasscodeHash() string
}

type Security struct {
	SessionTimeout time.Duration `env:"MONEYGUARD_SESSION_TIMEOUT" envDefault:"15m"`
	PasscodeHash   string        `env:"MONEYGUARD_PASSCODE_HASH"`
}

var _ SecurityConfig = Security{}

// GetSessionTimeout is the inactivity window after which a session is treated as absent.
func (s Security) GetSessionTimeout() time.Duration {
	return s.SessionTimeout
}

// GetPasscodeHash returns the enrolled device passcode, empty when nothing is enrolled.
func (s Security) GetPasscodeHash() string {
	return s.PasscodeHash
}
