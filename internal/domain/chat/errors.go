package chat

import "errors"

var (
	ErrInvalidMessages = errors.New("messages invalides")
	ErrQuotaExceeded   = errors.New("quota exceeded")
	ErrUpstream        = errors.New("chat completion failed")
)
