package licensehttp

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ronchon/server/internal/port/inbound"
)

// Validator reports whether a license key is valid.
type Validator interface {
	Valid(token string) bool
}

// LicenseResponse is returned by GET /api/license.
type LicenseResponse struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// Handler handles license check requests.
type Handler struct {
	licenses Validator
}

// NewHandler creates a new license handler.
func NewHandler(licenses Validator) *Handler {
	return &Handler{licenses: licenses}
}

// RegisterRoutes registers the license routes.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/license", h.CheckLicense)
}

// CheckLicense handles GET /api/license?key=.
//
//	@Summary		Check a license key
//	@Tags			License
//	@Produce		json
//	@Param			key	query		string	true	"License key"
//	@Success		200	{object}	LicenseResponse
//	@Failure		400	{object}	LicenseResponse
//	@Router			/api/license [get]
func (h *Handler) CheckLicense(c *gin.Context) {
	key := strings.TrimSpace(c.Query("key"))
	if key == "" {
		c.JSON(http.StatusBadRequest, LicenseResponse{Valid: false, Error: "missing_key"})
		return
	}
	c.JSON(http.StatusOK, LicenseResponse{Valid: h.licenses.Valid(key)})
}

// Compile-time check
var _ inbound.LicenseHttpPort = (*Handler)(nil)
