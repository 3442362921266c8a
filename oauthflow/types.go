package oauthflow

import "time"

// Callback query parameter names delivered to the redirect URI.
const (
	// ParamCode carries the authorization code on success.
	// Example: nz-money-manager://auth/callback?code=ABC123&state=xyz
	ParamCode = "code"

	// ParamState echoes the nonce minted by Initiate.
	// Must match the pending state byte for byte.
	ParamState = "state"

	// ParamError is set by the provider when the user denies access
	// or the request is rejected.
	// Example: ?error=access_denied&error_description=User+cancelled
	ParamError = "error"

	// ParamErrorDescription is an optional human readable reason.
	ParamErrorDescription = "error_description"
)

// AuthorizationCodeGrant is the only grant type this client uses.
const AuthorizationCodeGrant = "authorization_code"

// DefaultScopes are requested when none are configured.
var DefaultScopes = []string{"ACCOUNTS:READ", "TRANSACTIONS:READ"}

// AuthorizationRequest is what Initiate hands back to the caller, who opens
// URL in an external browser.
type AuthorizationRequest struct {
	// URL is the fully formed provider authorization URL.
	// Example: https://oauth.akahu.io/?client_id=app_token_x&redirect_uri=...&response_type=code&scope=ACCOUNTS%3AREAD+TRANSACTIONS%3AREAD&state=...
	URL string

	// State is the nonce embedded in URL. It is also persisted in the vault.
	State string

	// ExpiresAt is when the pending state stops being accepted.
	ExpiresAt time.Time
}

// CallbackParams are the query values extracted from a redirect URI.
type CallbackParams struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

// pendingState is the vault record under vault.KeyAuthState.
type pendingState struct {
	Value     string    `json:"value"`
	CreatedAt time.Time `json:"createdAt"`
}

// tokenRequest is the JSON body POSTed to the token endpoint.
type tokenRequest struct {
	GrantType   string `json:"grant_type"`
	ClientID    string `json:"client_id"`
	Code        string `json:"code"`
	RedirectURI string `json:"redirect_uri"`
}

// tokenResponse is the token endpoint reply. Only access_token is required.
type tokenResponse struct {
	// AccessToken is the opaque bearer credential for the data API.
	// Usage: Include in Authorization header: "Bearer <access_token>"
	AccessToken *string `json:"access_token,omitempty"`

	// TokenType is normally "bearer".
	TokenType string `json:"token_type,omitempty"`

	// Scope lists the granted permissions, space separated.
	Scope string `json:"scope,omitempty"`
}
