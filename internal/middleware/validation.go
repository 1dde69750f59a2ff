package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/bookhub/backend/internal/constants"
	apperrors "github.com/bookhub/backend/internal/errors"
	"github.com/bookhub/backend/pkg/logger"
	"github.com/bookhub/backend/pkg/validation"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// ValidatedBodyKey holds the decoded, validated request DTO in the gin context.
const ValidatedBodyKey = "validated_body"

const msgValidationFailed = "Validation failed"

type ValidationMiddleware struct {
	validate *validator.Validate
}

// NewValidationMiddleware reads the same `binding` tags gin uses and reports
// fields by their JSON names.
func NewValidationMiddleware() *ValidationMiddleware {
	validate := validator.New()
	validate.SetTagName("binding")
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &ValidationMiddleware{validate: validate}
}

// ValidateRequestBody decodes the body into a fresh value from factory and
// validates it. The value is stored under ValidatedBodyKey.
func (m *ValidationMiddleware) ValidateRequestBody(factory func() any) gin.HandlerFunc {
	return func(c *gin.Context) {
		var bodyBytes []byte
		if c.Request.Body != nil {
			var err error
			bodyBytes, err = io.ReadAll(c.Request.Body)
			if err != nil {
				logger.GetLogger().Error("Failed to read request body",
					zap.String("path", c.Request.URL.Path),
					zap.Error(err),
				)
				c.AbortWithStatusJSON(http.StatusBadRequest,
					constants.BuildCodedErrorResponse(constants.MsgBadRequest, apperrors.ErrInvalidInput.Code, nil))
				return
			}
		}
		c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

		request := factory()
		if err := json.Unmarshal(bodyBytes, request); err != nil {
			logger.GetLogger().Warn("Request body is not valid JSON",
				zap.String("path", c.Request.URL.Path),
				zap.Int("body_size", len(bodyBytes)),
				zap.Error(err),
			)
			c.AbortWithStatusJSON(http.StatusBadRequest,
				constants.BuildCodedErrorResponse(constants.MsgBadRequest, apperrors.ErrInvalidInput.Code, err.Error()))
			return
		}

		if err := m.validate.Struct(request); err != nil {
			details := validation.Messages(err)
			logger.GetLogger().Warn("Request validation failed",
				zap.String("path", c.Request.URL.Path),
				zap.Strings("validation_errors", details),
			)
			c.AbortWithStatusJSON(http.StatusBadRequest,
				constants.BuildCodedErrorResponse(msgValidationFailed, apperrors.ErrInvalidInput.Code, details))
			return
		}

		c.Set(ValidatedBodyKey, request)
		c.Next()
	}
}

// Body returns the request validated by ValidateRequestBody.
func Body[T any](c *gin.Context) (*T, bool) {
	v, ok := c.Get(ValidatedBodyKey)
	if !ok {
		return nil, false
	}
	req, ok := v.(*T)
	return req, ok
}
