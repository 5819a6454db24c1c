package inbound

import "github.com/gin-gonic/gin"

// ===== Chat HTTP Ports =====

// ChatHttpPort defines the metered chat HTTP handler interface.
type ChatHttpPort interface {
	// SendMessage handles POST /api/message.
	SendMessage(c *gin.Context)
}

// QuotaStatusHttpPort defines the quota status HTTP handler interface.
type QuotaStatusHttpPort interface {
	// GetStatus handles GET /api/status.
	GetStatus(c *gin.Context)
}

// LicenseHttpPort defines the license check HTTP handler interface.
type LicenseHttpPort interface {
	// CheckLicense handles GET /api/license.
	CheckLicense(c *gin.Context)
}
