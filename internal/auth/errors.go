// Package auth defines the closed set of failure outcomes for the token
// lifecycle. Handlers translate these into HTTP statuses; the token-validity
// variants (invalid, expired, revoked) stay distinct internally for logging
// but collapse to a single 401 at the boundary so callers cannot learn which
// check failed.
package auth

import "errors"

// ErrInvalidCredentials covers both unknown-username and wrong-password
// logins. The two cases are deliberately indistinguishable to the caller.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrTokenInvalid is a malformed, unsigned or unknown access/refresh token.
var ErrTokenInvalid = errors.New("token invalid")

// ErrTokenExpired is a structurally valid token past its expiry.
var ErrTokenExpired = errors.New("token expired")

// ErrTokenRevoked is a known refresh token that has been revoked or rotated.
var ErrTokenRevoked = errors.New("token revoked")

// ErrDuplicateUsername and ErrDuplicateEmail report registration collisions.
// Unlike login failures these are specific on purpose: they only confirm
// what the registering caller already supplied.
var (
	ErrDuplicateUsername = errors.New("username already registered")
	ErrDuplicateEmail    = errors.New("email already registered")
)

// ErrProviderExchange is any failure in the OAuth code/profile round trip.
// Provider internals are not attached to it.
var ErrProviderExchange = errors.New("provider exchange failed")

// ErrUnknownProvider is an OAuth login against a provider this deployment
// has no client credentials for.
var ErrUnknownProvider = errors.New("unknown oauth provider")

// ErrAccountInactive is a valid credential for a deactivated account.
var ErrAccountInactive = errors.New("account inactive")

// ErrUserNotFound is an internal lookup miss; handlers map it to 404 only on
// the profile endpoint, never on credential paths.
var ErrUserNotFound = errors.New("user not found")

// TokenFailure reports whether err is one of the token-validity outcomes
// that must collapse to a single response at the HTTP boundary.
func TokenFailure(err error) bool {
	return errors.Is(err, ErrTokenInvalid) ||
		errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrTokenRevoked)
}
