package adminhttp

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ronchon/server/internal/domain/entitlement"
	"github.com/ronchon/server/internal/port/inbound"
	"github.com/ronchon/server/internal/port/outbound"
	apperrors "github.com/ronchon/server/internal/utils/errors"
	"github.com/ronchon/server/internal/utils/logger"
	"github.com/ronchon/server/internal/utils/middleware"
	"go.uber.org/zap"
)

// Entitlements is the part of the entitlement engine the admin routes use.
type Entitlements interface {
	GetStatus(ctx context.Context, key string) entitlement.Status
	SetPremiumManually(ctx context.Context, key string, premium bool) error
}

// CustomerLookup finds the billing customer linked to a client key.
type CustomerLookup interface {
	CustomerForKey(ctx context.Context, key string) (string, bool, error)
}

// SetPremiumRequest is the body of PUT /api/admin/premium/:key.
type SetPremiumRequest struct {
	Premium *bool `json:"premium" binding:"required"`
}

// StatusResponse describes one client key for operators.
type StatusResponse struct {
	Key        string `json:"key"`
	Premium    bool   `json:"premium"`
	Tier       string `json:"tier"`
	Used       int64  `json:"used"`
	Limit      int64  `json:"limit"`
	Remaining  int64  `json:"remaining"`
	Day        string `json:"day"`
	CustomerID string `json:"customer_id,omitempty"`
}

// Handler serves the operator API.
type Handler struct {
	entitlements Entitlements
	customers    CustomerLookup
	ledger       outbound.WebhookEventLedgerPort
	logger       *zap.Logger
}

// NewHandler creates a new admin handler. ledger may be nil, in which case
// the webhook listing is empty.
func NewHandler(entitlements Entitlements, customers CustomerLookup, ledger outbound.WebhookEventLedgerPort, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		entitlements: entitlements,
		customers:    customers,
		ledger:       ledger,
		logger:       log.Named("admin"),
	}
}

// RegisterRoutes registers admin routes behind the admin token check.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, secret string) {
	admin := r.Group("/admin")
	admin.Use(middleware.RequireAdmin(secret))
	{
		admin.GET("/status/:key", h.GetStatus)
		admin.PUT("/premium/:key", h.SetPremium)
		admin.GET("/webhooks", h.ListWebhookEvents)
	}
}

// GetStatus handles GET /api/admin/status/:key.
//
//	@Summary		Inspect a client key
//	@Tags			Admin
//	@Produce		json
//	@Security		BearerAuth
//	@Param			key	path		string	true	"Client key"
//	@Success		200	{object}	StatusResponse
//	@Failure		401	{object}	apperrors.ErrorResponse
//	@Router			/api/admin/status/{key} [get]
func (h *Handler) GetStatus(c *gin.Context) {
	key, ok := pathKey(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.status(c.Request.Context(), key))
}

// SetPremium handles PUT /api/admin/premium/:key.
//
//	@Summary		Grant or revoke premium
//	@Tags			Admin
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			key		path		string				true	"Client key"
//	@Param			request	body		SetPremiumRequest	true	"Premium flag"
//	@Success		200		{object}	StatusResponse
//	@Failure		400		{object}	apperrors.ErrorResponse
//	@Failure		401		{object}	apperrors.ErrorResponse
//	@Failure		409		{object}	apperrors.ErrorResponse
//	@Router			/api/admin/premium/{key} [put]
func (h *Handler) SetPremium(c *gin.Context) {
	key, ok := pathKey(c)
	if !ok {
		return
	}
	var req SetPremiumRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.AbortWithError(c, apperrors.InvalidInput("premium is required"))
		return
	}

	ctx := c.Request.Context()
	if err := h.entitlements.SetPremiumManually(ctx, key, *req.Premium); err != nil {
		if errors.Is(err, entitlement.ErrLicensedKey) {
			middleware.AbortWithError(c, apperrors.NewAppError("licensed_key", err.Error(), http.StatusConflict, err))
			return
		}
		middleware.AbortWithError(c, apperrors.ServiceUnavailable(""))
		return
	}
	logger.WithContext(ctx, h.logger).Info("premium changed by operator",
		zap.String("key", key),
		zap.Bool("premium", *req.Premium),
		zap.String("admin", c.GetString(middleware.AdminSubjectKey)),
	)
	c.JSON(http.StatusOK, h.status(ctx, key))
}

func (h *Handler) status(ctx context.Context, key string) StatusResponse {
	s := h.entitlements.GetStatus(ctx, key)
	resp := StatusResponse{
		Key:       key,
		Premium:   s.Tier == entitlement.TierPremium,
		Tier:      string(s.Tier),
		Used:      s.Used,
		Limit:     s.Limit,
		Remaining: s.Remaining(),
		Day:       s.Day,
	}
	if h.customers != nil {
		if id, ok, err := h.customers.CustomerForKey(ctx, key); err == nil && ok {
			resp.CustomerID = id
		}
	}
	return resp
}

func pathKey(c *gin.Context) (string, bool) {
	key := strings.TrimSpace(c.Param("key"))
	if key == "" {
		middleware.AbortWithError(c, apperrors.BadRequest("client key required"))
		return "", false
	}
	return key, true
}

// Compile-time check
var _ inbound.EntitlementAdminHttpPort = (*Handler)(nil)
