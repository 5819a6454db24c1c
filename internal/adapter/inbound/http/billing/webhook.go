package billinghttp

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	stripeadapter "github.com/ronchon/server/internal/adapter/outbound/stripe"
	"github.com/ronchon/server/internal/domain/entitlement"
	"github.com/ronchon/server/internal/port/inbound"
	"github.com/ronchon/server/internal/port/outbound"
	apperrors "github.com/ronchon/server/internal/utils/errors"
	"github.com/ronchon/server/internal/utils/logger"
	"github.com/ronchon/server/internal/utils/middleware"
	"go.uber.org/zap"
)

const (
	// StripeSignatureHeader carries the webhook signature.
	StripeSignatureHeader = "Stripe-Signature"

	defaultWebhookMaxBytes = 1 << 20
)

// EventVerifier authenticates a webhook payload and translates it.
type EventVerifier interface {
	Verify(payload []byte, signature string) (entitlement.Event, error)
}

// WebhookHandler receives payment provider webhooks.
type WebhookHandler struct {
	verifier     EventVerifier
	entitlements Entitlements
	ledger       outbound.WebhookEventLedgerPort
	maxBytes     int64
	logger       *zap.Logger
}

// NewWebhookHandler creates a new webhook handler. ledger may be nil.
func NewWebhookHandler(verifier EventVerifier, entitlements Entitlements, ledger outbound.WebhookEventLedgerPort, maxBytes int64, log *zap.Logger) *WebhookHandler {
	if maxBytes <= 0 {
		maxBytes = defaultWebhookMaxBytes
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &WebhookHandler{
		verifier:     verifier,
		entitlements: entitlements,
		ledger:       ledger,
		maxBytes:     maxBytes,
		logger:       log.Named("webhook"),
	}
}

// RegisterRoutes registers the webhook routes.
func (h *WebhookHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/webhooks/stripe", h.HandleStripeWebhook)
}

// HandleStripeWebhook handles POST /api/webhooks/stripe.
//
//	@Summary		Stripe webhook
//	@Description	Verifies the signature and applies the billing event at most once
//	@Tags			Billing
//	@Accept			json
//	@Produce		json
//	@Param			Stripe-Signature	header		string	true	"Webhook signature"
//	@Success		200					{object}	WebhookResponse
//	@Failure		400					{object}	apperrors.ErrorResponse
//	@Failure		500					{object}	apperrors.ErrorResponse
//	@Router			/api/webhooks/stripe [post]
func (h *WebhookHandler) HandleStripeWebhook(c *gin.Context) {
	ctx := c.Request.Context()
	log := logger.WithContext(ctx, h.logger)

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, h.maxBytes+1))
	if err != nil {
		middleware.AbortWithError(c, apperrors.BadRequest("unreadable body"))
		return
	}
	if int64(len(payload)) > h.maxBytes {
		middleware.AbortWithError(c, apperrors.PayloadTooLarge())
		return
	}

	ev, err := h.verifier.Verify(payload, c.GetHeader(StripeSignatureHeader))
	switch {
	case errors.Is(err, stripeadapter.ErrMissingSignature), errors.Is(err, stripeadapter.ErrInvalidSignature):
		log.Warn("rejected webhook with bad signature", zap.Error(err))
		middleware.AbortWithError(c, apperrors.SignatureInvalid(err))
		return
	case errors.Is(err, stripeadapter.ErrNotConfigured):
		middleware.AbortWithError(c, apperrors.ServiceUnavailable("webhooks are not configured"))
		return
	case err != nil:
		log.Warn("undecodable webhook payload", zap.Error(err))
		middleware.AbortWithError(c, apperrors.BadRequest("invalid event payload"))
		return
	}

	rec := &outbound.WebhookEventRecord{
		Provider:  "stripe",
		EventID:   ev.ID,
		EventType: ev.ProviderType,
		Payload:   payload,
		CreatedAt: time.Now(),
	}
	h.record(c, rec)

	res, err := h.entitlements.ApplyEvent(ctx, ev)
	if err != nil {
		log.Error("failed to apply billing event",
			zap.String("event_id", ev.ID),
			zap.String("event_type", ev.ProviderType),
			zap.Error(err),
		)
		h.markProcessed(c, rec, "failed", err)
		middleware.AbortWithError(c, apperrors.Internal("event processing failed", err))
		return
	}

	outcome := res.Outcome()
	if !res.Applied {
		outcome = res.Reason
	}
	h.markProcessed(c, rec, outcome, nil)

	resp := WebhookResponse{Status: "processed"}
	if !res.Applied {
		resp = WebhookResponse{Status: "skipped", Reason: res.Reason}
	}
	c.JSON(http.StatusOK, resp)
}

// The ledger is an audit trail. Its failures never change the response.
func (h *WebhookHandler) record(c *gin.Context, rec *outbound.WebhookEventRecord) {
	if h.ledger == nil {
		return
	}
	if err := h.ledger.Record(c.Request.Context(), rec); err != nil {
		h.logger.Warn("failed to record webhook event", zap.String("event_id", rec.EventID), zap.Error(err))
	}
}

func (h *WebhookHandler) markProcessed(c *gin.Context, rec *outbound.WebhookEventRecord, outcome string, processErr error) {
	if h.ledger == nil {
		return
	}
	if err := h.ledger.MarkProcessed(c.Request.Context(), rec.ID, outcome, processErr); err != nil {
		h.logger.Warn("failed to update webhook event", zap.String("event_id", rec.EventID), zap.Error(err))
	}
}

// Compile-time check
var _ inbound.WebhookHttpPort = (*WebhookHandler)(nil)
