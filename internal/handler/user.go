package handler

import (
	"context"
	"net/http"

	"github.com/bookhub/backend/internal/constants"
	"github.com/bookhub/backend/internal/dto"
	apperrors "github.com/bookhub/backend/internal/errors"
	"github.com/bookhub/backend/internal/middleware"
	ctxutil "github.com/bookhub/backend/pkg/context"
	"github.com/bookhub/backend/pkg/logger"
	"github.com/gin-gonic/gin"
)

// AccountService serves the bearer-protected account routes. Callers are
// identified by the email carried in their access token.
type AccountService interface {
	UpdateProfile(ctx context.Context, email string, req *dto.UpdateProfileRequest) (*dto.AccountResponse, error)
	CurrentAccount(ctx context.Context, email string) (*dto.AccountResponse, error)
}

type UserHandler struct {
	accountService AccountService
}

func NewUserHandler(accountService AccountService) *UserHandler {
	return &UserHandler{accountService: accountService}
}

func (h *UserHandler) UpdateProfile(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "UpdateProfile")

	email, ok := middleware.Subject(c)
	if !ok {
		c.JSON(http.StatusUnauthorized,
			constants.BuildCodedErrorResponse(constants.MsgNotAuthenticated, apperrors.ErrUnauthorized.Code, nil))
		return
	}

	req, ok := middleware.Body[dto.UpdateProfileRequest](c)
	if !ok {
		writeBadRequest(c, nil)
		return
	}

	resp, err := h.accountService.UpdateProfile(ctx, email, req)
	if err != nil {
		writeError(ctx, c, "Profile update", err)
		return
	}

	logger.InfoWithContext(ctx, "Profile updated").
		String("email", email).
		Uint("user_id", resp.UserID).
		Log()

	c.JSON(http.StatusOK, resp)
}

func (h *UserHandler) Me(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "Me")

	email, ok := middleware.Subject(c)
	if !ok {
		c.JSON(http.StatusUnauthorized,
			constants.BuildCodedErrorResponse(constants.MsgNotAuthenticated, apperrors.ErrUnauthorized.Code, nil))
		return
	}

	resp, err := h.accountService.CurrentAccount(ctx, email)
	if err != nil {
		writeError(ctx, c, "Account lookup", err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
