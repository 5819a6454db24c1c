package billinghttp

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ronchon/server/internal/domain/entitlement"
	"github.com/ronchon/server/internal/port/inbound"
	apperrors "github.com/ronchon/server/internal/utils/errors"
	"github.com/ronchon/server/internal/utils/middleware"
)

// MockHandler flips the caller's premium flag without a payment. It is only
// mounted when mock billing is enabled.
type MockHandler struct {
	entitlements Entitlements
}

// NewMockHandler creates a new mock billing handler.
func NewMockHandler(entitlements Entitlements) *MockHandler {
	return &MockHandler{entitlements: entitlements}
}

// RegisterRoutes registers the mock billing routes.
func (h *MockHandler) RegisterRoutes(r *gin.RouterGroup) {
	mock := r.Group("/billing/mock")
	{
		mock.POST("/upgrade", h.Upgrade)
		mock.POST("/downgrade", h.Downgrade)
	}
}

// Upgrade handles POST /api/billing/mock/upgrade.
func (h *MockHandler) Upgrade(c *gin.Context) {
	h.set(c, true)
}

// Downgrade handles POST /api/billing/mock/downgrade.
func (h *MockHandler) Downgrade(c *gin.Context) {
	h.set(c, false)
}

func (h *MockHandler) set(c *gin.Context, premium bool) {
	ctx := c.Request.Context()
	key := middleware.GetClientKey(c)
	if key == "" || key == entitlement.AnonymousKey {
		middleware.AbortWithError(c, apperrors.BadRequest("client identity required"))
		return
	}
	if err := h.entitlements.SetPremiumManually(ctx, key, premium); err != nil {
		if errors.Is(err, entitlement.ErrLicensedKey) {
			middleware.AbortWithError(c, apperrors.NewAppError("licensed_key", err.Error(), http.StatusConflict, err))
			return
		}
		middleware.AbortWithError(c, apperrors.ServiceUnavailable(""))
		return
	}
	status := h.entitlements.GetStatus(ctx, key)
	c.JSON(http.StatusOK, PremiumResponse{
		Premium: status.Tier == entitlement.TierPremium,
		Tier:    string(status.Tier),
	})
}

// Compile-time check
var _ inbound.MockBillingHttpPort = (*MockHandler)(nil)
