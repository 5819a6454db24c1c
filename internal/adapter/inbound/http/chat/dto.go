package chathttp

import "github.com/ronchon/server/internal/domain/entitlement"

// MessageRequest is the body of POST /api/message.
type MessageRequest struct {
	Messages    []MessageDTO `json:"messages"`
	Personality string       `json:"personality"`
}

// MessageDTO is one conversation turn.
type MessageDTO struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// QuotaDTO reports today's usage against the tier limit.
type QuotaDTO struct {
	Used  int64 `json:"used"`
	Limit int64 `json:"limit"`
}

// MessageResponse is returned for an answered message.
type MessageResponse struct {
	Response string   `json:"response"`
	Premium  bool     `json:"premium"`
	Tier     string   `json:"tier"`
	Quota    QuotaDTO `json:"quota"`
}

// QuotaExceededResponse is returned with 429 when the daily quota is used up.
type QuotaExceededResponse struct {
	Error   string   `json:"error"`
	Message string   `json:"message"`
	Premium bool     `json:"premium"`
	Tier    string   `json:"tier"`
	Quota   QuotaDTO `json:"quota"`
}

// StatusResponse is returned by GET /api/status.
type StatusResponse struct {
	Premium   bool     `json:"premium"`
	Tier      string   `json:"tier"`
	Quota     QuotaDTO `json:"quota"`
	Remaining int64    `json:"remaining"`
	Day       string   `json:"day"`
}

// NewStatusResponse converts a status snapshot.
func NewStatusResponse(s entitlement.Status) StatusResponse {
	return StatusResponse{
		Premium:   s.Tier == entitlement.TierPremium,
		Tier:      string(s.Tier),
		Quota:     QuotaDTO{Used: s.Used, Limit: s.Limit},
		Remaining: s.Remaining(),
		Day:       s.Day,
	}
}
