package adminhttp

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ronchon/server/internal/port/outbound"
	apperrors "github.com/ronchon/server/internal/utils/errors"
	"github.com/ronchon/server/internal/utils/logger"
	"github.com/ronchon/server/internal/utils/middleware"
	"github.com/ronchon/server/internal/utils/pagination"
	"go.uber.org/zap"
)

// WebhookEventResponse is one ledger row. The payload is omitted.
type WebhookEventResponse struct {
	ID          string     `json:"id"`
	Provider    string     `json:"provider"`
	EventID     string     `json:"event_id"`
	EventType   string     `json:"event_type"`
	Outcome     string     `json:"outcome"`
	Error       string     `json:"error,omitempty"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// WebhookEventsResponse is a page of ledger rows.
type WebhookEventsResponse struct {
	Events []WebhookEventResponse `json:"events"`
	Page   pagination.PageInfo    `json:"page"`
}

type listWebhookEventsQuery struct {
	pagination.Pagination
	Outcome string `form:"outcome"`
}

// ListWebhookEvents handles GET /api/admin/webhooks.
//
//	@Summary		List received billing webhooks
//	@Tags			Admin
//	@Produce		json
//	@Security		BearerAuth
//	@Param			page		query		int		false	"Page number"	default(1)
//	@Param			page_size	query		int		false	"Page size"		default(20)
//	@Param			outcome		query		string	false	"Filter by outcome"
//	@Success		200			{object}	WebhookEventsResponse
//	@Failure		400			{object}	apperrors.ErrorResponse
//	@Failure		401			{object}	apperrors.ErrorResponse
//	@Router			/api/admin/webhooks [get]
func (h *Handler) ListWebhookEvents(c *gin.Context) {
	q := listWebhookEventsQuery{Pagination: *pagination.New()}
	if err := c.ShouldBindQuery(&q); err != nil {
		middleware.AbortWithError(c, apperrors.InvalidInput(err.Error()))
		return
	}

	resp := WebhookEventsResponse{Events: []WebhookEventResponse{}}
	if h.ledger == nil {
		resp.Page = q.Info(0)
		c.JSON(http.StatusOK, resp)
		return
	}

	ctx := c.Request.Context()
	records, total, err := h.ledger.List(ctx, q.Outcome, q.Offset(), q.Limit())
	if err != nil {
		logger.WithContext(ctx, h.logger).Error("failed to list webhook events", zap.Error(err))
		middleware.AbortWithError(c, apperrors.ServiceUnavailable(""))
		return
	}
	for _, r := range records {
		resp.Events = append(resp.Events, toWebhookEventResponse(r))
	}
	resp.Page = q.Info(total)
	c.JSON(http.StatusOK, resp)
}

func toWebhookEventResponse(r *outbound.WebhookEventRecord) WebhookEventResponse {
	return WebhookEventResponse{
		ID:          r.ID.String(),
		Provider:    r.Provider,
		EventID:     r.EventID,
		EventType:   r.EventType,
		Outcome:     r.Outcome,
		Error:       r.Error,
		ProcessedAt: r.ProcessedAt,
		CreatedAt:   r.CreatedAt,
	}
}
