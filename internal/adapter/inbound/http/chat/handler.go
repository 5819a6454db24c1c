package chathttp

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ronchon/server/internal/domain/chat"
	"github.com/ronchon/server/internal/domain/entitlement"
	"github.com/ronchon/server/internal/port/inbound"
	apperrors "github.com/ronchon/server/internal/utils/errors"
	"github.com/ronchon/server/internal/utils/middleware"
)

const (
	msgInvalidMessages = "Messages invalides."
	msgFreeExhausted   = "Quota gratuit atteint. Passe en premium pour continuer."
	msgDailyExhausted  = "Quota quotidien atteint. Reviens demain."
)

// ChatService runs one metered chat turn.
type ChatService interface {
	Send(ctx context.Context, key string, req *chat.Request) (*chat.Result, error)
}

// StatusReader reports tier and usage for a client key.
type StatusReader interface {
	GetStatus(ctx context.Context, key string) entitlement.Status
}

// Handler handles chat and quota status HTTP requests.
type Handler struct {
	chat   ChatService
	status StatusReader
}

// NewHandler creates a new chat handler.
func NewHandler(chat ChatService, status StatusReader) *Handler {
	return &Handler{chat: chat, status: status}
}

// RegisterRoutes registers the chat routes. The group must run the ClientKey
// middleware.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/message", h.SendMessage)
	r.GET("/status", h.GetStatus)
}

// SendMessage handles POST /api/message.
//
//	@Summary		Send a chat message
//	@Description	Admits the caller against its daily quota, then forwards the conversation to the model
//	@Tags			Chat
//	@Accept			json
//	@Produce		json
//	@Param			X-Instance-Id	header		string			false	"Client install id"
//	@Param			X-License-Key	header		string			false	"License key"
//	@Param			request			body		MessageRequest	true	"Conversation"
//	@Success		200				{object}	MessageResponse
//	@Failure		400				{object}	apperrors.ErrorResponse
//	@Failure		429				{object}	QuotaExceededResponse
//	@Failure		500				{object}	apperrors.ErrorResponse
//	@Router			/api/message [post]
func (h *Handler) SendMessage(c *gin.Context) {
	var req MessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			middleware.AbortWithError(c, apperrors.PayloadTooLarge())
			return
		}
		middleware.AbortWithError(c, apperrors.InvalidInput(msgInvalidMessages))
		return
	}

	in := &chat.Request{Personality: req.Personality, Messages: make([]chat.Message, len(req.Messages))}
	for i, m := range req.Messages {
		in.Messages[i] = chat.Message{Role: m.Role, Content: m.Content}
	}

	res, err := h.chat.Send(c.Request.Context(), middleware.GetClientKey(c), in)
	switch {
	case errors.Is(err, chat.ErrInvalidMessages):
		middleware.AbortWithError(c, apperrors.InvalidInput(msgInvalidMessages))
		return
	case errors.Is(err, chat.ErrQuotaExceeded):
		c.JSON(http.StatusTooManyRequests, quotaExceeded(res.Admission))
		return
	case err != nil:
		middleware.AbortWithError(c, apperrors.UpstreamFailure(err))
		return
	}

	adm := res.Admission
	c.JSON(http.StatusOK, MessageResponse{
		Response: res.Reply,
		Premium:  adm.Tier == entitlement.TierPremium,
		Tier:     string(adm.Tier),
		Quota:    QuotaDTO{Used: adm.Used, Limit: adm.Limit},
	})
}

// GetStatus handles GET /api/status.
//
//	@Summary		Quota status
//	@Description	Returns the caller's tier and today's usage without consuming quota
//	@Tags			Chat
//	@Produce		json
//	@Param			X-Instance-Id	header		string	false	"Client install id"
//	@Param			X-License-Key	header		string	false	"License key"
//	@Success		200				{object}	StatusResponse
//	@Router			/api/status [get]
func (h *Handler) GetStatus(c *gin.Context) {
	status := h.status.GetStatus(c.Request.Context(), middleware.GetClientKey(c))
	c.JSON(http.StatusOK, NewStatusResponse(status))
}

func quotaExceeded(adm entitlement.Admission) QuotaExceededResponse {
	msg := msgFreeExhausted
	if adm.Tier == entitlement.TierPremium {
		msg = msgDailyExhausted
	}
	return QuotaExceededResponse{
		Error:   "quota_exceeded",
		Message: msg,
		Premium: adm.Tier == entitlement.TierPremium,
		Tier:    string(adm.Tier),
		Quota:   QuotaDTO{Used: adm.Used, Limit: adm.Limit},
	}
}

// Compile-time checks
var (
	_ inbound.ChatHttpPort        = (*Handler)(nil)
	_ inbound.QuotaStatusHttpPort = (*Handler)(nil)
)
