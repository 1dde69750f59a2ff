package handler

import (
	"context"
	"net/http"

	"github.com/bookhub/backend/internal/dto"
	"github.com/bookhub/backend/internal/middleware"
	ctxutil "github.com/bookhub/backend/pkg/context"
	"github.com/bookhub/backend/pkg/logger"
	"github.com/gin-gonic/gin"
)

// AuthService is the slice of the authentication core the /auth routes use.
type AuthService interface {
	Signup(ctx context.Context, req *dto.SignupRequest) (*dto.TokenResponse, error)
	Signin(ctx context.Context, req *dto.SigninRequest) (*dto.SigninResponse, error)
	RefreshExchange(ctx context.Context, value string) (*dto.RefreshTokenResponse, error)
}

type AuthHandler struct {
	authService AuthService
}

func NewAuthHandler(authService AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Signup creates a local account. It answers 202 with an access token only;
// a refresh token is handed out on the first signin.
func (h *AuthHandler) Signup(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "Signup")

	req, ok := middleware.Body[dto.SignupRequest](c)
	if !ok {
		writeBadRequest(c, nil)
		return
	}

	logger.InfoWithContext(ctx, "Signup attempt").
		String("email", req.Email).
		Log()

	resp, err := h.authService.Signup(ctx, req)
	if err != nil {
		writeError(ctx, c, "Signup", err)
		return
	}

	c.JSON(http.StatusAccepted, resp)
}

func (h *AuthHandler) Signin(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "Signin")

	req, ok := middleware.Body[dto.SigninRequest](c)
	if !ok {
		writeBadRequest(c, nil)
		return
	}

	logger.InfoWithContext(ctx, "Signin attempt").
		String("email", req.Email).
		Log()

	resp, err := h.authService.Signin(ctx, req)
	if err != nil {
		writeError(ctx, c, "Signin", err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *AuthHandler) RefreshToken(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "RefreshToken")

	req, ok := middleware.Body[dto.RefreshTokenRequest](c)
	if !ok {
		writeBadRequest(c, nil)
		return
	}

	logger.DebugWithContext(ctx, "Token refresh attempt").
		Int("token_length", len(req.RefreshToken)).
		Log()

	resp, err := h.authService.RefreshExchange(ctx, req.RefreshToken)
	if err != nil {
		writeError(ctx, c, "Token refresh", err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
