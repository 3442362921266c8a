package config

import "path/filepath"

type EnvVars struct {
	AppName    string `env:"MONEYGUARD_APP_NAME" envDefault:"Money Guard"`
	Env        string `env:"MONEYGUARD_ENV" envDefault:"DEV"`
	LogLevel   string `env:"MONEYGUARD_LOG_LEVEL" envDefault:"info"`
	DataFolder string `env:"MONEYGUARD_DATA_DIR" envDefault:"./data"`
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetAppName() string {
	return e.AppName
}

func (e EnvVars) GetEnv() string {
	if e.Env == "" {
		return "DEV"
	}
	return e.Env
}

func (e EnvVars) GetLogLevel() string {
	return e.LogLevel
}

func (e EnvVars) GetDataFolder() string {
	return e.DataFolder
}

// GetVaultPath is the bbolt file holding the sealed secrets.
func (e EnvVars) GetVaultPath() string {
	return filepath.Join(e.DataFolder, "vault.db")
}

// GetKeyFilePath is the master key standing in for the platform keystore.
func (e EnvVars) GetKeyFilePath() string {
	return filepath.Join(e.DataFolder, "vault.key")
}
