package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ronchon/server/internal/domain/entitlement"
	"github.com/ronchon/server/internal/infra/config"
	"github.com/ronchon/server/internal/utils/metrics"
)

// Entitlements gives operator commands access to entitlement state without
// starting the HTTP server.
type Entitlements struct {
	Engine  *entitlement.Engine
	Store   *entitlement.Store
	Deriver *entitlement.KeyDeriver
	Backend string
}

// OpenEntitlements opens the configured store and builds an engine over it.
// Premium changes are still published to the broker when one is enabled.
func OpenEntitlements(cfg *config.Config, log *zap.Logger) (*Entitlements, func(), error) {
	st, closeStore, err := ProvideStore(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	pub, closePublisher := ProvideMessagePublisher(cfg, log)

	// Commands are short lived and never scraped.
	m := metrics.NewWithRegistry("ronchon", prometheus.NewRegistry())
	bus := ProvideEventBus(pub, m, log)
	es := ProvideEntitlementStore(cfg, st)

	ents := &Entitlements{
		Engine:  ProvideEngine(cfg, es, st, bus, m, log),
		Store:   es,
		Deriver: ProvideKeyDeriver(cfg, log),
		Backend: st.KV.Name(),
	}
	return ents, func() {
		closePublisher()
		closeStore()
	}, nil
}
