package dto

type SignupRequest struct {
	FirstName string `json:"firstName" binding:"required,min=1,max=50"`
	LastName  string `json:"lastName" binding:"required,min=1,max=50"`
	Email     string `json:"email" binding:"required,email,max=255"`
	Password  string `json:"password" binding:"required,max=72"`
}

type SigninRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type UpdateProfileRequest struct {
	FirstName string `json:"firstName" binding:"required,min=1,max=50"`
	LastName  string `json:"lastName" binding:"omitempty,max=50"`
}

// GitHubCallbackRequest leaves code unvalidated so that an empty code
// surfaces as INVALID_CODE rather than a generic binding error.
type GitHubCallbackRequest struct {
	Code string `json:"code"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

type SigninResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
	Username     string `json:"username"`
}

type RefreshTokenResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
}

// AccountResponse is the projection returned by PATCH /auth and GET /auth/me.
// Username is the account email, the subject of its access tokens.
type AccountResponse struct {
	Username string  `json:"username"`
	FullName string  `json:"fullName"`
	UserID   uint    `json:"userId"`
	GithubID *string `json:"githubId,omitempty"`
}

type AuthURLResponse struct {
	AuthURL string `json:"authUrl"`
}

type FeaturesResponse struct {
	OAuth2Enabled bool `json:"oauth2Enabled"`
}
