package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/ronchon/server/internal/domain/entitlement"
	"github.com/ronchon/server/internal/utils/requestctx"
)

const (
	// InstanceIDHeader carries the client generated install id.
	InstanceIDHeader = "X-Instance-Id"
	// LicenseKeyHeader carries an optional license key.
	LicenseKeyHeader = "X-License-Key"
	// ForwardedForHeader is the proxy chain header.
	ForwardedForHeader = "X-Forwarded-For"

	// ClientKeyKey is the gin context key for the derived client key.
	ClientKeyKey = "client_key"
)

// LicenseValidator reports whether a license token is valid.
type LicenseValidator interface {
	Valid(token string) bool
}

// ClientKey derives the caller's ClientKey from request metadata and stores it
// in both the gin context and the request context. An invalid license is
// ignored so the caller falls back to its instance or address identity.
func ClientKey(deriver *entitlement.KeyDeriver, licenses LicenseValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		meta := entitlement.ClientMetadata{
			ForwardedFor: c.GetHeader(ForwardedForHeader),
			PeerAddress:  c.Request.RemoteAddr,
			InstanceID:   c.GetHeader(InstanceIDHeader),
		}
		if token := c.GetHeader(LicenseKeyHeader); token != "" && licenses != nil && licenses.Valid(token) {
			meta.LicenseToken = token
		}

		key := deriver.Derive(meta)
		c.Set(ClientKeyKey, key)
		c.Request = c.Request.WithContext(requestctx.WithClientKey(c.Request.Context(), key))

		c.Next()
	}
}

// GetClientKey returns the derived client key, or "" outside the middleware.
func GetClientKey(c *gin.Context) string {
	return c.GetString(ClientKeyKey)
}
