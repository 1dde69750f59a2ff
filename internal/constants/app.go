package constants

// Application Information
const (
	AppVersion = "1.0.0"
)

// Environment Types
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

const APIPrefix = "/api/v3"

// Redis key prefixes
const (
	KeyPrefix  = "bookhub:"
	KeyJobLock = KeyPrefix + "lock:job:"
)

// Account roles
const (
	RoleUser = "USER"
)

// Values substituted for fields the OAuth2 provider does not disclose
const (
	NoEmailFound = "no-email-found"
)
