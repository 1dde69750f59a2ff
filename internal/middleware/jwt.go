package middleware

import (
	"net/http"
	"strings"

	"github.com/bookhub/backend/internal/constants"
	apperrors "github.com/bookhub/backend/internal/errors"
	"github.com/bookhub/backend/internal/service"
	ctxutil "github.com/bookhub/backend/pkg/context"
	"github.com/bookhub/backend/pkg/logger"
	"github.com/gin-gonic/gin"
)

// TokenVerifier is the part of the token codec the bearer check needs.
type TokenVerifier interface {
	Verify(token string) (*service.VerifiedToken, error)
}

type JWTMiddleware struct {
	verifier TokenVerifier
}

func NewJWTMiddleware(verifier TokenVerifier) *JWTMiddleware {
	return &JWTMiddleware{verifier: verifier}
}

// RequireAuth rejects requests without a valid bearer token and exposes the
// token subject and role to downstream handlers.
func (m *JWTMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := ctxutil.WithFunction(c.Request.Context(), "middleware", "RequireAuth")

		raw, ok := bearerToken(c.GetHeader(constants.HeaderAuthorization))
		if !ok {
			logger.WarnWithContext(ctx, "Missing or malformed Authorization header").
				String("path", c.Request.URL.Path).
				Log()
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				constants.BuildCodedErrorResponse(constants.MsgUnauthorized, apperrors.ErrUnauthorized.Code, nil))
			return
		}

		verified, err := m.verifier.Verify(raw)
		if err != nil {
			logger.WarnWithContext(ctx, "Bearer token rejected").
				String("path", c.Request.URL.Path).
				Err(err).
				Log()
			c.AbortWithStatusJSON(apperrors.ToHTTPStatus(err),
				constants.BuildCodedErrorResponse(apperrors.GetErrorMessage(err), apperrors.GetErrorCode(err), nil))
			return
		}

		c.Set(constants.GinKeySubject, verified.Subject)
		c.Set(constants.GinKeyRole, verified.Role)
		c.Request = c.Request.WithContext(ctxutil.WithUserID(c.Request.Context(), verified.Subject))

		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, constants.BearerScheme) {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Subject returns the authenticated email set by RequireAuth.
func Subject(c *gin.Context) (string, bool) {
	subject := c.GetString(constants.GinKeySubject)
	return subject, subject != ""
}
