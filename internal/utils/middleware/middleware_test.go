package middleware

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/ronchon/server/internal/adapter/outbound/kvlimit"
	"github.com/ronchon/server/internal/adapter/outbound/memory"
	"github.com/ronchon/server/internal/domain/entitlement"
	"github.com/ronchon/server/internal/domain/license"
	"github.com/ronchon/server/internal/utils/logger"
	"github.com/ronchon/server/internal/utils/metrics"
	"github.com/ronchon/server/internal/utils/requestctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func bufferLogger(buf *bytes.Buffer, level string) *logger.Config {
	return &logger.Config{Level: level, Format: "json", Output: buf}
}

func TestRequestID(t *testing.T) {
	t.Run("generates new request ID when not provided", func(t *testing.T) {
		router := gin.New()
		router.Use(RequestID())
		router.GET("/test", func(c *gin.Context) {
			assert.Equal(t, GetRequestID(c), requestctx.RequestID(c.Request.Context()))
			c.String(http.StatusOK, GetRequestID(c))
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		headerID := w.Header().Get(RequestIDHeader)
		assert.NotEmpty(t, headerID)
		assert.Equal(t, headerID, w.Body.String())
	})

	t.Run("uses existing request ID from header", func(t *testing.T) {
		router := gin.New()
		router.Use(RequestID())
		router.GET("/test", func(c *gin.Context) {
			c.String(http.StatusOK, GetRequestID(c))
		})

		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set(RequestIDHeader, "existing-request-id-123")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, "existing-request-id-123", w.Header().Get(RequestIDHeader))
		assert.Equal(t, "existing-request-id-123", w.Body.String())
	})

	t.Run("replaces oversized request ID", func(t *testing.T) {
		router := gin.New()
		router.Use(RequestID())
		router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set(RequestIDHeader, strings.Repeat("x", 500))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Len(t, w.Header().Get(RequestIDHeader), 36)
	})
}

func TestLogging(t *testing.T) {
	tests := []struct {
		name   string
		level  string
		status int
		want   string
	}{
		{"info for 2xx", "info", http.StatusOK, `"level":"info"`},
		{"warn for 4xx", "warn", http.StatusNotFound, `"level":"warn"`},
		{"error for 5xx", "error", http.StatusInternalServerError, `"level":"error"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			router := gin.New()
			router.Use(RequestID(), Logging(logger.New(bufferLogger(buf, tt.level))))
			router.GET("/test", func(c *gin.Context) { c.String(tt.status, "x") })

			req := httptest.NewRequest("GET", "/test", nil)
			req.Header.Set("User-Agent", "TestAgent/1.0")
			router.ServeHTTP(httptest.NewRecorder(), req)

			out := buf.String()
			assert.Contains(t, out, tt.want)
			assert.Contains(t, out, "HTTP request")
			assert.Contains(t, out, "/test")
			assert.Contains(t, out, "TestAgent/1.0")
			assert.Contains(t, out, "request_id")
		})
	}
}

func TestRecovery(t *testing.T) {
	buf := &bytes.Buffer{}
	router := gin.New()
	router.Use(Recovery(logger.New(bufferLogger(buf, "error"))))
	router.GET("/panic", func(c *gin.Context) { panic("test panic") })

	w := httptest.NewRecorder()
	require.NotPanics(t, func() {
		router.ServeHTTP(w, httptest.NewRequest("GET", "/panic", nil))
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal_error","message":"internal server error"}`, w.Body.String())
	assert.Contains(t, buf.String(), "panic recovered")
	assert.Contains(t, buf.String(), "test panic")

	t.Run("nil logger", func(t *testing.T) {
		router := gin.New()
		router.Use(Recovery(nil))
		router.GET("/panic", func(c *gin.Context) { panic("x") })

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/panic", nil))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestCORS(t *testing.T) {
	cfg := DefaultCORSConfig([]string{"chrome-extension://mbfcngdankjjdmdkflfpgnfeeoijpddn", "https://ronchon.com"})
	router := gin.New()
	router.Use(CORS(cfg))
	router.POST("/api/message", func(c *gin.Context) { c.Status(http.StatusOK) })

	preflight := func(origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/api/message", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", "POST")
		req.Header.Set("Access-Control-Request-Headers", "X-Instance-Id")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	w := preflight("chrome-extension://mbfcngdankjjdmdkflfpgnfeeoijpddn")
	assert.Equal(t, "chrome-extension://mbfcngdankjjdmdkflfpgnfeeoijpddn", w.Header().Get("Access-Control-Allow-Origin"))

	w = preflight("https://evil.example")
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, http.StatusForbidden, w.Code)

	assert.Contains(t, cfg.AllowHeaders, LicenseKeyHeader)
	assert.Contains(t, cfg.AllowHeaders, IdempotencyKeyHeader)
}

func TestClientKey(t *testing.T) {
	deriver := entitlement.NewKeyDeriver(false, "")
	licenses := license.NewRegistry([]string{"GOOD-LICENSE"})

	run := func(headers map[string]string) string {
		var got, fromCtx string
		router := gin.New()
		router.Use(ClientKey(deriver, licenses))
		router.GET("/k", func(c *gin.Context) {
			got = GetClientKey(c)
			fromCtx = requestctx.ClientKey(c.Request.Context())
		})
		req := httptest.NewRequest("GET", "/k", nil)
		req.RemoteAddr = "10.0.0.7:5555"
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		router.ServeHTTP(httptest.NewRecorder(), req)
		assert.Equal(t, got, fromCtx)
		return got
	}

	assert.Equal(t, "lic:GOOD-LICENSE", run(map[string]string{LicenseKeyHeader: "GOOD-LICENSE", InstanceIDHeader: "inst-1"}))
	assert.Equal(t, "cid:inst-1", run(map[string]string{LicenseKeyHeader: "BAD", InstanceIDHeader: "inst-1"}))
	assert.Equal(t, "ip:203.0.113.9", run(map[string]string{ForwardedForHeader: "203.0.113.9, 10.0.0.1"}))
	assert.Equal(t, "ip:10.0.0.7", run(nil))
}

func TestRateLimit(t *testing.T) {
	limiter := kvlimit.NewRateLimiter(memory.NewKVStore())
	var limited atomic.Int32

	router := gin.New()
	router.Use(RateLimit(limiter, RateLimitConfig{
		Limit:     2,
		Window:    time.Minute,
		KeyFunc:   func(*gin.Context) string { return "fixed" },
		OnLimited: func(*gin.Context) { limited.Add(1) },
	}))
	router.GET("/r", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 3)
	var last *httptest.ResponseRecorder
	for i := range codes {
		last = httptest.NewRecorder()
		router.ServeHTTP(last, httptest.NewRequest("GET", "/r", nil))
		codes[i] = last.Code
	}

	assert.Equal(t, []int{200, 200, 429}, codes)
	assert.Equal(t, "60", last.Header().Get(RetryAfter))
	assert.Contains(t, last.Body.String(), "rate_limited")
	assert.Equal(t, int32(1), limited.Load())
}

type brokenLimiter struct{}

func (brokenLimiter) Allow(context.Context, string, int, time.Duration) (bool, error) {
	return false, errors.New("down")
}

func (brokenLimiter) GetRemaining(context.Context, string, int, time.Duration) (int, error) {
	return 0, errors.New("down")
}

func TestRateLimit_FailsOpen(t *testing.T) {
	router := gin.New()
	router.Use(RateLimit(brokenLimiter{}, DefaultRateLimitConfig()))
	router.GET("/r", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/r", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestIdempotency(t *testing.T) {
	kv := memory.NewKVStore()
	var calls atomic.Int32

	router := gin.New()
	router.Use(Idempotency(kv, IdempotencyConfig{TTL: time.Hour}))
	router.POST("/checkout", func(c *gin.Context) {
		n := calls.Add(1)
		c.JSON(http.StatusOK, gin.H{"call": n})
	})

	send := func(key string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/checkout", nil)
		if key != "" {
			req.Header.Set(IdempotencyKeyHeader, key)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	first := send("abc")
	replay := send("abc")
	other := send("def")
	none := send("")

	assert.JSONEq(t, `{"call":1}`, first.Body.String())
	assert.JSONEq(t, `{"call":1}`, replay.Body.String())
	assert.Equal(t, "true", replay.Header().Get(IdempotentReplayHeader))
	assert.JSONEq(t, `{"call":2}`, other.Body.String())
	assert.JSONEq(t, `{"call":3}`, none.Body.String())
	assert.Equal(t, int32(3), calls.Load())
}

func TestIdempotency_InProgress(t *testing.T) {
	kv := memory.NewKVStore()
	router := gin.New()
	router.Use(func(c *gin.Context) {
		// Simulate a concurrent holder of the lock.
		_, _ = kv.Incr(c.Request.Context(), idempotencyCacheKey(c, "abc")+":lock", time.Minute)
		c.Next()
	})
	router.Use(Idempotency(kv, IdempotencyConfig{}))
	router.POST("/checkout", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest("POST", "/checkout", nil)
	req.Header.Set(IdempotencyKeyHeader, "abc")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "request_in_progress")
}

func TestBodyLimit(t *testing.T) {
	router := gin.New()
	router.Use(BodyLimit(16))
	router.POST("/b", func(c *gin.Context) {
		var body map[string]any
		if err := c.ShouldBindJSON(&body); err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/b", strings.NewReader(`{"a":1}`)))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/b", strings.NewReader(`{"a":"`+strings.Repeat("x", 64)+`"}`)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	// Unknown length bodies are cut by the reader instead.
	req := httptest.NewRequest("POST", "/b", strings.NewReader(`{"a":"`+strings.Repeat("x", 64)+`"}`))
	req.ContentLength = -1
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMetrics(t *testing.T) {
	m := metrics.NewWithRegistry("test", prometheus.NewRegistry())
	router := gin.New()
	router.Use(Metrics(m))
	router.GET("/api/status", func(c *gin.Context) { c.Status(http.StatusOK) })

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/status", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/nope", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/status", "2xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "unmatched", "4xx")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.HTTPRequestsInFlight))
}

func TestRequireAdmin(t *testing.T) {
	const secret = "s3cret"
	router := gin.New()
	router.GET("/admin", RequireAdmin(secret), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(AdminSubjectKey))
	})

	call := func(token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("GET", "/admin", nil)
		if token != "" {
			req.Header.Set(AuthorizationHeader, BearerPrefix+token)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	good, err := IssueAdminToken(secret, "ops", time.Hour)
	require.NoError(t, err)
	w := call(good)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ops", w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, call("").Code)

	forged, err := IssueAdminToken("other", "ops", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, call(forged).Code)

	expired, err := IssueAdminToken(secret, "ops", -time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, call(expired).Code)

	_, err = IssueAdminToken("", "ops", time.Hour)
	assert.Error(t, err)
}
