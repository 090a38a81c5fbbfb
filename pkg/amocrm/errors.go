package amocrm

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// Sentinel errors of the token lifecycle. Refresh and exchange failures wrap
// their sentinel with the upstream status and body snippet, so callers can
// branch with errors.Is while operators still see what the provider said.
var (
	// ErrNotConnected means no token record exists for the subdomain and the
	// account has to go through /oauth/start again.
	ErrNotConnected = errors.New("not_connected: run /oauth/start and approve access")

	// ErrMissingConfig means the integration credentials are not configured.
	ErrMissingConfig = errors.New("missing_env: AMO_CLIENT_ID/SECRET/REDIRECT_URI")

	// ErrMissingAccessToken means the provider answered a token request
	// without an access_token field.
	ErrMissingAccessToken = errors.New("token_missing_access_token")

	// ErrRefreshFailed means the provider rejected a refresh_token grant.
	// From the caller's point of view this equals not connected: the old
	// refresh token is spent and the account must re-authorize.
	ErrRefreshFailed = errors.New("token_refresh_failed")

	// ErrExchangeFailed means the provider rejected an authorization_code grant.
	ErrExchangeFailed = errors.New("token_exchange_failed")
)

// UpstreamError is a non-2xx answer from the amoCRM API.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("amo_api_failed: %d %s", e.Status, e.Body)
}

// snippet returns at most n runes of an upstream body for error messages.
func snippet(body []byte, n int) string {
	s := string(body)
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
