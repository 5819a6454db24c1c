package inbound

import "github.com/gin-gonic/gin"

// ===== Admin HTTP Ports =====

// EntitlementAdminHttpPort defines the entitlement admin HTTP handler interface.
type EntitlementAdminHttpPort interface {
	// GetStatus handles GET /api/admin/status/:key.
	GetStatus(c *gin.Context)

	// SetPremium handles PUT /api/admin/premium/:key.
	SetPremium(c *gin.Context)

	// ListWebhookEvents handles GET /api/admin/webhooks.
	ListWebhookEvents(c *gin.Context)
}
