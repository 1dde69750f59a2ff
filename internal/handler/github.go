package handler

import (
	"context"
	"net/http"

	"github.com/bookhub/backend/internal/dto"
	ctxutil "github.com/bookhub/backend/pkg/context"
	"github.com/bookhub/backend/pkg/logger"
	"github.com/bookhub/backend/pkg/provider"
	"github.com/gin-gonic/gin"
)

// OAuth2Provider turns an authorization code into the caller's profile.
type OAuth2Provider interface {
	AuthURL() string
	ExchangeCodeForProfile(ctx context.Context, code string) (*provider.Profile, error)
}

// OAuth2Service signs in, links or creates the account behind a profile.
type OAuth2Service interface {
	OAuth2SignupOrSignin(ctx context.Context, email, displayName, externalID string) (*dto.SigninResponse, error)
}

type GitHubHandler struct {
	provider    OAuth2Provider
	authService OAuth2Service
}

func NewGitHubHandler(p OAuth2Provider, authService OAuth2Service) *GitHubHandler {
	return &GitHubHandler{provider: p, authService: authService}
}

func (h *GitHubHandler) Login(c *gin.Context) {
	c.JSON(http.StatusOK, dto.AuthURLResponse{AuthURL: h.provider.AuthURL()})
}

// Callback completes the browser flow. Only the access token is returned.
func (h *GitHubHandler) Callback(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "GitHubCallback")

	var req dto.GitHubCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.WarnWithContext(ctx, "Invalid GitHub callback request").
			Err(err).
			Log()
		writeBadRequest(c, err.Error())
		return
	}

	profile, err := h.provider.ExchangeCodeForProfile(ctx, req.Code)
	if err != nil {
		writeError(ctx, c, "GitHub code exchange", err)
		return
	}

	logger.InfoWithContext(ctx, "GitHub profile resolved").
		String("external_id", profile.ExternalID).
		String("email", profile.Email).
		Log()

	resp, err := h.authService.OAuth2SignupOrSignin(ctx, profile.Email, profile.DisplayName, profile.ExternalID)
	if err != nil {
		writeError(ctx, c, "GitHub signin", err)
		return
	}

	c.JSON(http.StatusOK, dto.TokenResponse{Token: resp.Token})
}
