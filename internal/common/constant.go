package common

const (
	// AuthorizationHeader carries "Bearer <token>" credentials.
	AuthorizationHeader = "Authorization"
	// BearerScheme is the only accepted authorization scheme.
	BearerScheme = "Bearer"
	// TokenQueryParam is the fallback credential source for clients that
	// cannot set headers (inline document viewers). Optional auth only.
	TokenQueryParam = "token"
)
