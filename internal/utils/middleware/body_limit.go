package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/ronchon/server/internal/utils/errors"
)

// BodyLimit caps request bodies at maxBytes. Reads past the cap fail, which
// makes JSON binding report an error.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes > 0 && c.Request.Body != nil {
			if c.Request.ContentLength > maxBytes {
				AbortWithError(c, apperrors.PayloadTooLarge())
				return
			}
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		}
		c.Next()
	}
}
