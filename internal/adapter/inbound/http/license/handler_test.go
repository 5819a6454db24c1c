package licensehttp

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/ronchon/server/internal/domain/license"
	"github.com/stretchr/testify/assert"
)

func TestCheckLicense(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewHandler(license.NewRegistry([]string{"ABC123"})).RegisterRoutes(router.Group("/api"))

	tests := []struct {
		query    string
		wantCode int
		wantBody string
	}{
		{"?key=ABC123", http.StatusOK, `{"valid":true}`},
		{"?key=%20ABC123%20", http.StatusOK, `{"valid":true}`},
		{"?key=nope", http.StatusOK, `{"valid":false}`},
		{"", http.StatusBadRequest, `{"valid":false,"error":"missing_key"}`},
		{"?key=%20%20", http.StatusBadRequest, `{"valid":false,"error":"missing_key"}`},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/license"+tt.query, nil))

			assert.Equal(t, tt.wantCode, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
		})
	}
}
