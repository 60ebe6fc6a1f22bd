package common

const (
	// SessionCookieName carries the signed session token.
	SessionCookieName = "brain_session"

	// StateCookieName carries the signed OAuth state during login.
	StateCookieName = "oauth_state"

	// AuthorizationHeaderName is the secondary session lookup path for
	// clients that cannot rely on cookies.
	AuthorizationHeaderName = "Authorization"
)
