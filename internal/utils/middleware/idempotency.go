package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ronchon/server/internal/port/outbound"
	apperrors "github.com/ronchon/server/internal/utils/errors"
	"go.uber.org/zap"
)

const (
	// IdempotencyKeyHeader is the header for idempotency key.
	IdempotencyKeyHeader = "Idempotency-Key"
	// IdempotentReplayHeader marks a response served from the cache.
	IdempotentReplayHeader = "Idempotent-Replayed"

	idempotencyKeyPrefix  = "idempotency:"
	defaultIdempotencyTTL = 24 * time.Hour
	idempotencyLockTTL    = 30 * time.Second
	maxIdempotencyKeyLen  = 255
)

// IdempotencyConfig holds idempotency middleware configuration.
type IdempotencyConfig struct {
	// TTL is the time to live for cached responses.
	TTL    time.Duration
	Logger *zap.Logger
}

// idempotencyResponse stores the cached response.
type idempotencyResponse struct {
	StatusCode  int    `json:"status_code"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// idempotencyResponseWriter wraps gin.ResponseWriter to capture the response.
type idempotencyResponseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *idempotencyResponseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// Idempotency replays the stored response for a repeated Idempotency-Key.
// Keys are scoped to the route and the client key. Requests without the
// header pass through.
func Idempotency(kv outbound.KVStorePort, cfg IdempotencyConfig) gin.HandlerFunc {
	if cfg.TTL <= 0 {
		cfg.TTL = defaultIdempotencyTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		idemKey := c.GetHeader(IdempotencyKeyHeader)
		if kv == nil || idemKey == "" {
			c.Next()
			return
		}
		if len(idemKey) > maxIdempotencyKeyLen {
			AbortWithError(c, apperrors.BadRequest("Idempotency-Key too long"))
			return
		}

		ctx := c.Request.Context()
		cacheKey := idempotencyCacheKey(c, idemKey)

		if raw, ok, err := kv.Get(ctx, cacheKey); err == nil && ok {
			var cached idempotencyResponse
			if json.Unmarshal([]byte(raw), &cached) == nil {
				c.Header(IdempotentReplayHeader, "true")
				c.Data(cached.StatusCode, cached.ContentType, cached.Body)
				c.Abort()
				return
			}
		}

		lockKey := cacheKey + ":lock"
		n, err := kv.Incr(ctx, lockKey, idempotencyLockTTL)
		if err != nil {
			cfg.Logger.Warn("idempotency lock unavailable", zap.Error(err))
			c.Next()
			return
		}
		if n > 1 {
			AbortWithError(c, apperrors.NewAppError("request_in_progress",
				"A request with this idempotency key is already being processed", http.StatusConflict, nil))
			return
		}
		defer func() { _ = kv.Delete(ctx, lockKey) }()

		w := &idempotencyResponseWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = w

		c.Next()

		status := c.Writer.Status()
		if status < 200 || status >= 500 {
			return
		}
		data, err := json.Marshal(idempotencyResponse{
			StatusCode:  status,
			ContentType: c.Writer.Header().Get("Content-Type"),
			Body:        w.body.Bytes(),
		})
		if err != nil {
			return
		}
		if err := kv.Set(ctx, cacheKey, string(data), cfg.TTL); err != nil {
			cfg.Logger.Warn("failed to cache idempotent response", zap.Error(err))
		}
	}
}

func idempotencyCacheKey(c *gin.Context, idemKey string) string {
	hash := sha256.Sum256([]byte(c.Request.Method + ":" + c.FullPath() + ":" + GetClientKey(c) + ":" + idemKey))
	return idempotencyKeyPrefix + hex.EncodeToString(hash[:])
}
