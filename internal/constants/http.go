package constants

// HTTP Header Names
const (
	HeaderContentType   = "Content-Type"
	HeaderAuthorization = "Authorization"
	HeaderXRequestID    = "X-Request-ID"
)

// Authorization scheme
const (
	BearerScheme = "Bearer"
)

// Common HTTP Error Messages
const (
	MsgUnauthorized     = "Unauthorized"
	MsgBadRequest       = "Invalid request format"
	MsgInternalError    = "Internal server error"
	MsgRateLimited      = "Rate limit exceeded"
	MsgNotAuthenticated = "User is not authenticated"
)

// Gin context keys set by the bearer middleware
const (
	GinKeySubject = "subject"
	GinKeyRole    = "role"
)
