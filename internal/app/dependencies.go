package app

import (
	"go.uber.org/zap"

	// Domains
	"github.com/ronchon/server/internal/domain/entitlement"
	"github.com/ronchon/server/internal/domain/license"

	// Inbound adapters
	adminhttp "github.com/ronchon/server/internal/adapter/inbound/http/admin"
	billinghttp "github.com/ronchon/server/internal/adapter/inbound/http/billing"
	chathttp "github.com/ronchon/server/internal/adapter/inbound/http/chat"
	licensehttp "github.com/ronchon/server/internal/adapter/inbound/http/license"

	// Ports
	"github.com/ronchon/server/internal/port/outbound"

	// Infrastructure
	"github.com/ronchon/server/internal/infra/config"
	"github.com/ronchon/server/internal/infra/scheduler"

	// Utils
	"github.com/ronchon/server/internal/utils/metrics"
)

// Dependencies holds all injected dependencies.
type Dependencies struct {
	Config      *config.Config
	Logger      *zap.Logger
	Metrics     *metrics.Metrics
	Store       *Store
	RateLimiter outbound.RateLimiterPort
	Scheduler   *scheduler.Scheduler

	// Domains
	KeyDeriver *entitlement.KeyDeriver
	Licenses   *license.Registry
	Engine     *entitlement.Engine

	// HTTP Handlers
	ChatHandler        *chathttp.Handler
	LicenseHandler     *licensehttp.Handler
	CheckoutHandler    *billinghttp.CheckoutHandler
	MockBillingHandler *billinghttp.MockHandler
	WebhookHandler     *billinghttp.WebhookHandler
	AdminHandler       *adminhttp.Handler
}
