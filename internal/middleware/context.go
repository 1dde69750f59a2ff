package middleware

import (
	"time"

	"github.com/bookhub/backend/internal/constants"
	ctxutil "github.com/bookhub/backend/pkg/context"
	"github.com/bookhub/backend/pkg/ids"
	"github.com/bookhub/backend/pkg/logger"
	"github.com/gin-gonic/gin"
)

// ContextMiddleware seeds the request context with the request id, client
// address and a deadline. Handlers and the layers below log through it.
func ContextMiddleware(module string, timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(constants.HeaderXRequestID)
		if requestID == "" {
			requestID = ids.New()
		}
		c.Header(constants.HeaderXRequestID, requestID)

		ctx := ctxutil.WithRequestID(c.Request.Context(), requestID)
		ctx = ctxutil.WithValue(ctx, ctxutil.ClientIPKey, c.ClientIP())
		ctx = ctxutil.NewContextWithRequest(ctx, c.Request, module, c.FullPath())

		if timeout > 0 {
			var cancel func()
			ctx, cancel = ctxutil.WithTimeout(ctx, timeout)
			defer cancel()
		}

		c.Request = c.Request.WithContext(ctx)

		logger.DebugWithContext(ctx, "Request started").
			String("method", c.Request.Method).
			String("path", c.Request.URL.Path).
			Log()

		c.Next()

		logger.InfoWithContext(ctx, "Request completed").
			String("method", c.Request.Method).
			String("path", c.Request.URL.Path).
			Int("status_code", c.Writer.Status()).
			Int("response_size", c.Writer.Size()).
			Duration(ctxutil.GetDuration(ctx)).
			Log()
	}
}
