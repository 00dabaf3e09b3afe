package httpx

// Cookie names shared by the auth handlers and middleware.
const (
	cookieSession           = "session_id"
	cookieOAuthState        = "oauth_state"
	cookieOAuthNonce        = "oauth_nonce"
	cookiePostLoginRedirect = "post_login_redirect"

	// oauthCookieMaxAge bounds how long a login round trip may take, in seconds.
	oauthCookieMaxAge = 600
)

const (
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	queryPlatform = "platform"
	queryToken    = "token"
)
