package oauthflow

import (
	"net/url"
	"strings"

	apperrors "github.com/jrsteele09/moneyguard/internal/errors"
)

// ParseCallback extracts the authorization response parameters from a
// redirect URI. Custom schemes such as nz-money-manager:// are accepted.
func ParseCallback(rawURL string) (CallbackParams, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return CallbackParams{}, apperrors.Wrapf(apperrors.ErrMissingParameters, "[ParseCallback] invalid callback url")
	}
	q := u.Query()
	return CallbackParams{
		Code:             q.Get(ParamCode),
		State:            q.Get(ParamState),
		Error:            q.Get(ParamError),
		ErrorDescription: q.Get(ParamErrorDescription),
	}, nil
}

// CallbackURL rebuilds a redirect URI from parameters a platform delivered
// separately, e.g. a deep link handler that only exposes the query values.
func CallbackURL(redirectURI string, params CallbackParams) string {
	q := url.Values{}
	if params.Code != "" {
		q.Set(ParamCode, params.Code)
	}
	if params.State != "" {
		q.Set(ParamState, params.State)
	}
	if params.Error != "" {
		q.Set(ParamError, params.Error)
	}
	if params.ErrorDescription != "" {
		q.Set(ParamErrorDescription, params.ErrorDescription)
	}
	if len(q) == 0 {
		return redirectURI
	}
	sep := "?"
	if strings.Contains(redirectURI, "?") {
		sep = "&"
	}
	return redirectURI + sep + q.Encode()
}

// Denied reports whether the provider returned an error.
func (p CallbackParams) Denied() bool {
	return p.Error != ""
}
