package handler

import (
	"context"
	"net/http"

	"github.com/bookhub/backend/internal/constants"
	apperrors "github.com/bookhub/backend/internal/errors"
	"github.com/bookhub/backend/pkg/logger"
	"github.com/gin-gonic/gin"
)

// writeError maps err to its status and writes the coded error body.
// Errors outside the domain catalogue are logged and reported as 500
// without their text.
func writeError(ctx context.Context, c *gin.Context, action string, err error) {
	status := apperrors.ToHTTPStatus(err)
	message := apperrors.GetErrorMessage(err)
	code := apperrors.GetErrorCode(err)

	if status >= http.StatusInternalServerError {
		logger.ErrorWithContext(ctx, action+" failed").
			Int("http_status", status).
			Err(err).
			Log()
		if code == "" {
			message = constants.MsgInternalError
			code = apperrors.ErrInternal.Code
		}
	} else {
		logger.WarnWithContext(ctx, action+" rejected").
			Int("http_status", status).
			String("code", code).
			Err(err).
			Log()
	}

	c.JSON(status, constants.BuildCodedErrorResponse(message, code, nil))
}

func writeBadRequest(c *gin.Context, details any) {
	c.JSON(http.StatusBadRequest,
		constants.BuildCodedErrorResponse(constants.MsgBadRequest, apperrors.ErrInvalidInput.Code, details))
}
