package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

type Config interface {
	EnvConfig
	OAuthConfig
	SecurityConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetDataFolder() string
	GetVaultPath() string
	GetKeyFilePath() string
}

type mainConfig struct {
	EnvVars
	OAuth
	Security
}

var _ Config = (*mainConfig)(nil)

// New parses the MONEYGUARD_* environment variables, applying defaults for anything unset.
func New() (Config, error) {
	c := &mainConfig{}
	if err := env.Parse(c); err != nil {
		return nil, fmt.Errorf("[config New] parse env: %w", err)
	}
	return c, nil
}
