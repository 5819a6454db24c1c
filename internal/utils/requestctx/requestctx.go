// Package requestctx carries per-request identifiers through context.Context
// so that layers below HTTP can tag logs without depending on gin.
package requestctx

import "context"

type ctxKey int

const (
	requestIDKey ctxKey = iota
	clientKeyKey
)

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(orBackground(ctx), requestIDKey, requestID)
}

func RequestID(ctx context.Context) string {
	return stringValue(ctx, requestIDKey)
}

// WithClientKey attaches the derived client key of the caller.
func WithClientKey(ctx context.Context, key string) context.Context {
	return context.WithValue(orBackground(ctx), clientKeyKey, key)
}

func ClientKey(ctx context.Context) string {
	return stringValue(ctx, clientKeyKey)
}

func orBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

func stringValue(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	if s, ok := ctx.Value(key).(string); ok {
		return s
	}
	return ""
}
