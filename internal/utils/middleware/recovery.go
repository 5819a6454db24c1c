package middleware

import (
	"github.com/gin-gonic/gin"
	apperrors "github.com/ronchon/server/internal/utils/errors"
	"go.uber.org/zap"
)

// Recovery returns a middleware that turns panics into opaque 500 responses.
func Recovery(log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic recovered",
					zap.Any("panic", r),
					zap.String("method", c.Request.Method),
					zap.String("path", c.Request.URL.Path),
					zap.String("request_id", GetRequestID(c)),
					zap.StackSkip("stack", 2),
				)
				AbortWithError(c, apperrors.Internal("", nil))
			}
		}()
		c.Next()
	}
}

// AbortWithError writes err as the JSON error body and stops the chain.
func AbortWithError(c *gin.Context, err error) {
	appErr := apperrors.AsAppError(err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(appErr.StatusCode, appErr.ToResponse())
}
