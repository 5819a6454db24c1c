package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/wire"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	// Domains
	"github.com/ronchon/server/internal/domain/chat"
	"github.com/ronchon/server/internal/domain/entitlement"
	"github.com/ronchon/server/internal/domain/license"

	// Inbound adapters
	adminhttp "github.com/ronchon/server/internal/adapter/inbound/http/admin"
	billinghttp "github.com/ronchon/server/internal/adapter/inbound/http/billing"
	chathttp "github.com/ronchon/server/internal/adapter/inbound/http/chat"
	licensehttp "github.com/ronchon/server/internal/adapter/inbound/http/license"

	// Ports
	"github.com/ronchon/server/internal/port/outbound"

	// Outbound adapters
	"github.com/ronchon/server/internal/adapter/outbound/amqp"
	"github.com/ronchon/server/internal/adapter/outbound/kvlimit"
	"github.com/ronchon/server/internal/adapter/outbound/memory"
	"github.com/ronchon/server/internal/adapter/outbound/openai"
	"github.com/ronchon/server/internal/adapter/outbound/postgres"
	redisadapter "github.com/ronchon/server/internal/adapter/outbound/redis"
	"github.com/ronchon/server/internal/adapter/outbound/sqlite"
	stripeadapter "github.com/ronchon/server/internal/adapter/outbound/stripe"

	// Infrastructure
	"github.com/ronchon/server/internal/infra/config"
	"github.com/ronchon/server/internal/infra/database"
	"github.com/ronchon/server/internal/infra/events"
	"github.com/ronchon/server/internal/infra/scheduler"

	// Utils
	"github.com/ronchon/server/internal/utils/logger"
	"github.com/ronchon/server/internal/utils/metrics"
)

// Store is the selected key-value backend.
type Store struct {
	KV outbound.KVStorePort

	// Redis is set only when the redis backend is active.
	Redis goredis.UniversalClient

	// Sweeper is set for backends that purge expired keys themselves.
	Sweeper outbound.SweeperPort
}

// ===== Infrastructure Providers =====

// InfraSet provides infrastructure dependencies.
var InfraSet = wire.NewSet(
	ProvideLogger,
	ProvideMetrics,
	ProvideStore,
	ProvideRateLimiter,
	ProvideMessagePublisher,
	ProvideEventBus,
	ProvideWebhookLedger,
	ProvideScheduler,
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) *zap.Logger {
	return logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
}

// ProvideMetrics creates the metrics collectors on the default registry.
func ProvideMetrics() *metrics.Metrics {
	return metrics.New("ronchon")
}

// ProvideStore opens the configured key-value backend.
func ProvideStore(cfg *config.Config, log *zap.Logger) (*Store, func(), error) {
	st, err := OpenStore(context.Background(), &cfg.Store, &cfg.Redis, log)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := st.KV.Close(); err != nil {
			log.Warn("failed to close store", zap.String("store", st.KV.Name()), zap.Error(err))
		}
	}
	return st, cleanup, nil
}

// OpenStore selects the backend. With driver auto, Redis is probed first,
// then SQLite when a path is configured, then memory.
func OpenStore(ctx context.Context, storeCfg *config.StoreConfig, redisCfg *config.RedisConfig, log *zap.Logger) (*Store, error) {
	switch storeCfg.Driver {
	case "redis":
		return openRedis(ctx, storeCfg, redisCfg)
	case "sqlite":
		return openSQLite(storeCfg)
	case "memory":
		return openMemory(), nil
	}

	if redisCfg.URL != "" || redisCfg.Address != "" {
		st, err := openRedis(ctx, storeCfg, redisCfg)
		if err == nil {
			return st, nil
		}
		log.Warn("redis unavailable, falling back", zap.Error(err))
	}
	if storeCfg.SQLitePath != "" {
		st, err := openSQLite(storeCfg)
		if err == nil {
			return st, nil
		}
		log.Warn("sqlite unavailable, falling back to memory", zap.Error(err))
	}
	log.Warn("using in-memory store, state is lost on restart")
	return openMemory(), nil
}

func openRedis(ctx context.Context, storeCfg *config.StoreConfig, redisCfg *config.RedisConfig) (*Store, error) {
	client, err := redisadapter.NewClient(ctx, redisCfg, storeCfg.ProbeTimeout)
	if err != nil {
		return nil, err
	}
	return &Store{KV: redisadapter.NewKVStore(client), Redis: client}, nil
}

func openSQLite(storeCfg *config.StoreConfig) (*Store, error) {
	if storeCfg.SQLitePath == "" {
		return nil, errors.New("store.sqlite_path is required for the sqlite driver")
	}
	kv, err := sqlite.Open(storeCfg.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	return &Store{KV: kv, Sweeper: kv}, nil
}

func openMemory() *Store {
	kv := memory.NewKVStore()
	return &Store{KV: kv, Sweeper: kv}
}

// ProvideRateLimiter uses the Redis sliding window when Redis is active and
// fixed windows over the key-value store otherwise.
func ProvideRateLimiter(st *Store) outbound.RateLimiterPort {
	if st.Redis != nil {
		return redisadapter.NewRateLimiter(st.Redis)
	}
	return kvlimit.NewRateLimiter(st.KV)
}

// ProvideMessagePublisher connects to the broker when enabled. A broker that
// cannot be reached degrades to a publisher that only logs.
func ProvideMessagePublisher(cfg *config.Config, log *zap.Logger) (outbound.MessagePublisherPort, func()) {
	if !cfg.AMQP.Enabled {
		return amqp.NewNoopPublisher(log), func() {}
	}
	pub, err := amqp.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange, log)
	if err != nil {
		log.Warn("amqp publisher unavailable, events stay in process", zap.Error(err))
		return amqp.NewNoopPublisher(log), func() {}
	}
	return pub, func() {
		if err := pub.Close(); err != nil {
			log.Warn("failed to close amqp publisher", zap.Error(err))
		}
	}
}

// ProvideEventBus creates the domain event bus and registers its handlers.
func ProvideEventBus(pub outbound.MessagePublisherPort, m *metrics.Metrics, log *zap.Logger) *events.Bus {
	bus := events.NewBus(log.Named("events"))
	bus.Register(amqp.NewForwarder(pub, entitlement.EventTypePremiumChanged))
	bus.Register(events.NewHandlerFunc([]string{entitlement.EventTypePremiumChanged}, func(_ context.Context, ev events.Event) error {
		if pc, ok := ev.(entitlement.PremiumChanged); ok {
			m.RecordPremiumChange(pc.Premium, pc.Source)
		}
		return nil
	}))
	return bus
}

// ProvideWebhookLedger stores webhook deliveries in Postgres when a database
// is configured, in memory otherwise.
func ProvideWebhookLedger(cfg *config.Config, log *zap.Logger) (outbound.WebhookEventLedgerPort, func(), error) {
	if !cfg.Database.Enabled {
		return memory.NewWebhookLedger(0), func() {}, nil
	}
	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("init database: %w", err)
	}
	if err := postgres.AutoMigrate(db); err != nil {
		_ = database.Close(db)
		return nil, nil, fmt.Errorf("migrate webhook ledger: %w", err)
	}
	cleanup := func() {
		if err := database.Close(db); err != nil {
			log.Warn("failed to close database", zap.Error(err))
		}
	}
	return postgres.NewWebhookEventAdapter(db), cleanup, nil
}

// ProvideScheduler schedules the expiry sweep for backends that need one.
func ProvideScheduler(cfg *config.Config, st *Store, log *zap.Logger) (*scheduler.Scheduler, error) {
	s := scheduler.New(log)
	if st.Sweeper != nil {
		if err := s.AddSweep(cfg.Store.SweepSchedule, st.KV.Name(), st.Sweeper); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// ===== Domain Providers =====

// DomainSet provides domain services.
var DomainSet = wire.NewSet(
	ProvideKeyDeriver,
	ProvideLicenseRegistry,
	ProvideEntitlementStore,
	ProvideEngine,
	ProvideChatService,
)

// ProvideKeyDeriver creates the client key deriver.
func ProvideKeyDeriver(cfg *config.Config, log *zap.Logger) *entitlement.KeyDeriver {
	if cfg.Identity.HashKeys && cfg.Identity.Salt == "" {
		log.Warn("identity.salt is empty, client key digests are unkeyed")
	}
	return entitlement.NewKeyDeriver(cfg.Identity.HashKeys, cfg.Identity.Salt)
}

// ProvideLicenseRegistry loads the configured license keys.
func ProvideLicenseRegistry(cfg *config.Config) *license.Registry {
	return license.NewRegistry(cfg.License.Keys)
}

// ProvideEntitlementStore creates the entitlement store. Subscription
// tombstones live as long as event dedup markers.
func ProvideEntitlementStore(cfg *config.Config, st *Store) *entitlement.Store {
	return entitlement.NewStore(st.KV, cfg.Webhook.DedupTTL)
}

// ProvideEngine creates the entitlement engine.
func ProvideEngine(cfg *config.Config, es *entitlement.Store, st *Store, bus *events.Bus, m *metrics.Metrics, log *zap.Logger) *entitlement.Engine {
	return entitlement.NewEngine(
		es,
		entitlement.NewUsageCounter(st.KV),
		entitlement.NewDeduplicator(st.KV, cfg.Webhook.DedupTTL),
		entitlement.Limits{
			FreeDaily:    cfg.Quota.FreeDailyLimit,
			PremiumDaily: cfg.Quota.PremiumDailyLimit,
		},
		log,
		entitlement.WithPublisher(bus),
		entitlement.WithRecorder(m),
	)
}

// ProvideChatService creates the chat service.
func ProvideChatService(engine *entitlement.Engine, llm outbound.ChatCompletionPort, log *zap.Logger) *chat.Service {
	return chat.NewService(engine, llm, log)
}

// ===== Outbound Adapter Providers =====

// AdapterSet provides external service adapters.
var AdapterSet = wire.NewSet(
	ProvideChatCompletion,
	ProvideBillingSessions,
	ProvideWebhookVerifier,
)

// ProvideChatCompletion creates the LLM client.
func ProvideChatCompletion(cfg *config.Config, m *metrics.Metrics, log *zap.Logger) outbound.ChatCompletionPort {
	return openai.NewClient(&cfg.OpenAI, m, log)
}

// ProvideBillingSessions creates the Stripe session client.
func ProvideBillingSessions(cfg *config.Config) outbound.BillingSessionPort {
	return stripeadapter.NewBillingClient(&cfg.Stripe)
}

// ProvideWebhookVerifier creates the Stripe webhook verifier.
func ProvideWebhookVerifier(cfg *config.Config) *stripeadapter.WebhookVerifier {
	return stripeadapter.NewWebhookVerifier(cfg.Stripe.WebhookSecret)
}

// ===== HTTP Handler Providers =====

// HandlerSet provides HTTP handlers.
var HandlerSet = wire.NewSet(
	ProvideChatHandler,
	ProvideLicenseHandler,
	ProvideCheckoutHandler,
	ProvideMockBillingHandler,
	ProvideWebhookHandler,
	ProvideAdminHandler,
)

// ProvideChatHandler creates the chat handler.
func ProvideChatHandler(svc *chat.Service, engine *entitlement.Engine) *chathttp.Handler {
	return chathttp.NewHandler(svc, engine)
}

// ProvideLicenseHandler creates the license handler.
func ProvideLicenseHandler(reg *license.Registry) *licensehttp.Handler {
	return licensehttp.NewHandler(reg)
}

// ProvideCheckoutHandler creates the checkout handler.
func ProvideCheckoutHandler(sessions outbound.BillingSessionPort, es *entitlement.Store, engine *entitlement.Engine, log *zap.Logger) *billinghttp.CheckoutHandler {
	return billinghttp.NewCheckoutHandler(sessions, es, engine, log)
}

// ProvideMockBillingHandler creates the mock billing handler.
func ProvideMockBillingHandler(engine *entitlement.Engine) *billinghttp.MockHandler {
	return billinghttp.NewMockHandler(engine)
}

// ProvideWebhookHandler creates the webhook handler.
func ProvideWebhookHandler(cfg *config.Config, verifier *stripeadapter.WebhookVerifier, engine *entitlement.Engine, ledger outbound.WebhookEventLedgerPort, log *zap.Logger) *billinghttp.WebhookHandler {
	return billinghttp.NewWebhookHandler(verifier, engine, ledger, cfg.Webhook.MaxBodyBytes, log)
}

// ProvideAdminHandler creates the admin handler.
func ProvideAdminHandler(engine *entitlement.Engine, es *entitlement.Store, ledger outbound.WebhookEventLedgerPort, log *zap.Logger) *adminhttp.Handler {
	return adminhttp.NewHandler(engine, es, ledger, log)
}

// ===== All Sets Combined =====

// AppSet combines all provider sets.
var AppSet = wire.NewSet(
	InfraSet,
	DomainSet,
	AdapterSet,
	HandlerSet,
)
