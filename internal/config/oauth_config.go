package config

import "time"

type OAuthConfig interface {
	GetClientID() string
	GetAuthURL() string
	GetTokenURL() string
	GetAPIBaseURL() string
	GetRedirectURI() string
	GetScopes() []string
	GetStateTTL() time.Duration
	GetExchangeTimeout() time.Duration
	GetAPIRateLimit() int
}

type OAuth struct {
	ClientID        string        `env:"MONEYGUARD_CLIENT_ID"`
	AuthURL         string        `env:"MONEYGUARD_AUTH_URL" envDefault:"https://oauth.akahu.io/"`
	TokenURL        string        `env:"MONEYGUARD_TOKEN_URL" envDefault:"https://api.akahu.io/v1/token"`
	APIBaseURL      string        `env:"MONEYGUARD_API_BASE_URL" envDefault:"https://api.akahu.io/v1"`
	RedirectURI     string        `env:"MONEYGUARD_REDIRECT_URI" envDefault:"nz-money-manager://auth/callback"`
	Scopes          []string      `env:"MONEYGUARD_SCOPES" envDefault:"ACCOUNTS:READ,TRANSACTIONS:READ" envSeparator:","`
	StateTTL        time.Duration `env:"MONEYGUARD_STATE_TTL" envDefault:"10m"`
	ExchangeTimeout time.Duration `env:"MONEYGUARD_EXCHANGE_TIMEOUT" envDefault:"10s"`
	APIRateLimit    int           `env:"MONEYGUARD_API_RATE_LIMIT" envDefault:"5"` // requests per second
}

var _ OAuthConfig = OAuth{}

func (o OAuth) GetClientID() string {
	return o.ClientID
}

func (o OAuth) GetAuthURL() string {
	return o.AuthURL
}

func (o OAuth) GetTokenURL() string {
	return o.TokenURL
}

func (o OAuth) GetAPIBaseURL() string {
	return o.APIBaseURL
}

func (o OAuth) GetRedirectURI() string {
	return o.RedirectURI
}

func (o OAuth) GetScopes() []string {
	return o.Scopes
}

func (o OAuth) GetStateTTL() time.Duration {
	return o.StateTTL
}

func (o OAuth) GetExchangeTimeout() time.Duration {
	return o.ExchangeTimeout
}

func (o OAuth) GetAPIRateLimit() int {
	return o.APIRateLimit
}
