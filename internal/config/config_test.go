package config_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/jrsteele09/moneyguard/internal/config"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	c, err := config.New()
	require.NoError(t, err)

	require.Equal(t, "DEV", c.GetEnv())
	require.Equal(t, "https://oauth.akahu.io/", c.GetAuthURL())
	require.Equal(t, "https://api.akahu.io/v1/token", c.GetTokenURL())
	require.Equal(t, "nz-money-manager://auth/callback", c.GetRedirectURI())
	require.Equal(t, []string{"ACCOUNTS:READ", "TRANSACTIONS:READ"}, c.GetScopes())
	require.Equal(t, 15*time.Minute, c.GetSessionTimeout())
	require.Equal(t, 10*time.Minute, c.GetStateTTL())
	require.Equal(t, 10*time.Second, c.GetExchangeTimeout())
	require.Equal(t, filepath.Join("./data", "vault.db"), c.GetVaultPath())
}

func TestNew_Overrides(t *testing.T) {
	t.Setenv("MONEYGUARD_CLIENT_ID", "app_token_123")
	t.Setenv("MONEYGUARD_DATA_DIR", "/tmp/mg")
	t.Setenv("MONEYGUARD_SESSION_TIMEOUT", "5m")

	c, err := config.New()
	require.NoError(t, err)
	require.Equal(t, "app_token_123", c.GetClientID())
	require.Equal(t, "/tmp/mg/vault.key", c.GetKeyFilePath())
	require.Equal(t, 5*time.Minute, c.GetSessionTimeout())
}

func TestNew_InvalidDuration(t *testing.T) {
	t.Setenv("MONEYGUARD_STATE_TTL", "forever")

	_, err := config.New()
	require.Error(t, err)
	require.Contains(t, err.Error(), "parse env")
}
