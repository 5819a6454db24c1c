package billinghttp

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	stripeadapter "github.com/ronchon/server/internal/adapter/outbound/stripe"
	"github.com/ronchon/server/internal/domain/entitlement"
	"github.com/ronchon/server/internal/port/inbound"
	"github.com/ronchon/server/internal/port/outbound"
	apperrors "github.com/ronchon/server/internal/utils/errors"
	"github.com/ronchon/server/internal/utils/middleware"
	"go.uber.org/zap"
)

// CheckoutHandler handles hosted billing session requests.
type CheckoutHandler struct {
	sessions     outbound.BillingSessionPort
	customers    CustomerLookup
	entitlements Entitlements
	logger       *zap.Logger
}

// NewCheckoutHandler creates a new checkout handler.
func NewCheckoutHandler(sessions outbound.BillingSessionPort, customers CustomerLookup, entitlements Entitlements, log *zap.Logger) *CheckoutHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &CheckoutHandler{
		sessions:     sessions,
		customers:    customers,
		entitlements: entitlements,
		logger:       log.Named("billing"),
	}
}

// RegisterRoutes registers billing routes. The checkout route replays
// responses for a repeated Idempotency-Key when idem is not nil.
func (h *CheckoutHandler) RegisterRoutes(r *gin.RouterGroup, idem gin.HandlerFunc) {
	billing := r.Group("/billing")
	{
		if idem != nil {
			billing.POST("/checkout", idem, h.CreateCheckoutSession)
		} else {
			billing.POST("/checkout", h.CreateCheckoutSession)
		}
		billing.POST("/portal", h.CreatePortalSession)
	}
}

// CreateCheckoutSession handles POST /api/billing/checkout.
//
//	@Summary		Start a premium checkout
//	@Description	Creates a Stripe Checkout session bound to the caller's client key
//	@Tags			Billing
//	@Produce		json
//	@Param			X-Instance-Id	header		string	true	"Client install id"
//	@Param			Idempotency-Key	header		string	false	"Replay protection"
//	@Success		200				{object}	SessionResponse
//	@Failure		400				{object}	apperrors.ErrorResponse
//	@Failure		409				{object}	apperrors.ErrorResponse
//	@Failure		503				{object}	apperrors.ErrorResponse
//	@Router			/api/billing/checkout [post]
func (h *CheckoutHandler) CreateCheckoutSession(c *gin.Context) {
	ctx := c.Request.Context()
	key := middleware.GetClientKey(c)
	if key == "" || key == entitlement.AnonymousKey {
		middleware.AbortWithError(c, apperrors.BadRequest("client identity required"))
		return
	}
	if status := h.entitlements.GetStatus(ctx, key); status.Tier == entitlement.TierPremium {
		middleware.AbortWithError(c, apperrors.NewAppError("already_premium", "already premium", http.StatusConflict, nil))
		return
	}

	// Reuse the customer from a previous subscription when there is one.
	customerID, _, err := h.customers.CustomerForKey(ctx, key)
	if err != nil {
		h.logger.Warn("customer lookup failed, creating checkout without customer", zap.Error(err))
		customerID = ""
	}

	sess, err := h.sessions.CreateCheckoutSession(ctx, &outbound.CheckoutSessionInput{
		ClientKey:      key,
		CustomerID:     customerID,
		IdempotencyKey: c.GetHeader(middleware.IdempotencyKeyHeader),
	})
	if err != nil {
		h.handleSessionError(c, "checkout", err)
		return
	}
	c.JSON(http.StatusOK, SessionResponse{ID: sess.ID, URL: sess.URL})
}

// CreatePortalSession handles POST /api/billing/portal.
//
//	@Summary		Open the billing portal
//	@Description	Creates a Stripe customer portal session for the caller's linked customer
//	@Tags			Billing
//	@Produce		json
//	@Param			X-Instance-Id	header		string	true	"Client install id"
//	@Success		200				{object}	SessionResponse
//	@Failure		404				{object}	apperrors.ErrorResponse
//	@Failure		503				{object}	apperrors.ErrorResponse
//	@Router			/api/billing/portal [post]
func (h *CheckoutHandler) CreatePortalSession(c *gin.Context) {
	ctx := c.Request.Context()
	customerID, ok, err := h.customers.CustomerForKey(ctx, middleware.GetClientKey(c))
	if err != nil {
		middleware.AbortWithError(c, apperrors.ServiceUnavailable(""))
		return
	}
	if !ok {
		middleware.AbortWithError(c, apperrors.NotFound("customer"))
		return
	}

	sess, err := h.sessions.CreatePortalSession(ctx, customerID)
	if err != nil {
		h.handleSessionError(c, "portal", err)
		return
	}
	c.JSON(http.StatusOK, SessionResponse{ID: sess.ID, URL: sess.URL})
}

func (h *CheckoutHandler) handleSessionError(c *gin.Context, kind string, err error) {
	if errors.Is(err, stripeadapter.ErrNotConfigured) {
		middleware.AbortWithError(c, apperrors.ServiceUnavailable("billing is not configured"))
		return
	}
	h.logger.Error("billing session failed", zap.String("kind", kind), zap.Error(err))
	middleware.AbortWithError(c, apperrors.UpstreamFailure(err))
}

// Compile-time check
var _ inbound.BillingHttpPort = (*CheckoutHandler)(nil)
