package entitlement

import (
	"context"
	"strings"
	"time"

	"github.com/ronchon/server/internal/infra/events"
	"github.com/ronchon/server/internal/utils/logger"
	"go.uber.org/zap"
)

// Publisher receives domain events emitted by the engine.
type Publisher interface {
	Publish(ctx context.Context, event events.Event)
}

// Recorder receives engine metrics.
type Recorder interface {
	RecordAdmission(tier string, admitted bool)
	RecordStoreError(op string)
	RecordBillingEvent(eventType, outcome string)
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, events.Event) {}

type noopRecorder struct{}

func (noopRecorder) RecordAdmission(string, bool) {}
func (noopRecorder) RecordStoreError(string) {}
func (noopRecorder) RecordBillingEvent(string, string) {}

// Engine decides admissions and applies entitlement transitions.
//
// Store failures on the request path fail open: the caller is treated as free
// with no prior usage for that call. Usage is charged right after admission,
// before the upstream call, and is never refunded.
type Engine struct {
	store     *Store
	usage     *UsageCounter
	dedup     *Deduplicator
	limits    Limits
	publisher Publisher
	recorder  Recorder
	logger    *zap.Logger
	now       func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source used to compute the usage day.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithPublisher sets the domain event publisher.
func WithPublisher(p Publisher) Option {
	return func(e *Engine) {
		if p != nil {
			e.publisher = p
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		if r != nil {
			e.recorder = r
		}
	}
}

// NewEngine creates an Engine.
func NewEngine(store *Store, usage *UsageCounter, dedup *Deduplicator, limits Limits, log *zap.Logger, opts ...Option) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	e := &Engine{
		store:     store,
		usage:     usage,
		dedup:     dedup,
		limits:    limits,
		publisher: noopPublisher{},
		recorder:  noopRecorder{},
		logger:    log.Named("entitlement"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Limits returns the configured daily limits.
func (e *Engine) Limits() Limits {
	return e.limits
}

// CheckAndConsume admits or rejects one request for key and, when admitted,
// charges it against today's usage. A rejection never mutates state.
func (e *Engine) CheckAndConsume(ctx context.Context, key string) Admission {
	log := logger.WithContext(ctx, e.logger)
	day := DayOf(e.now())

	tier := e.tierOf(ctx, key, log)
	limit := e.limits.For(tier)

	used, err := e.usage.Get(ctx, key, day)
	if err != nil {
		log.Warn("usage read failed, assuming no prior usage", zap.Error(err))
		e.recorder.RecordStoreError("usage_get")
		used = 0
	}

	if used >= limit {
		e.recorder.RecordAdmission(string(tier), false)
		return Admission{Admitted: false, Tier: tier, Used: used, Limit: limit, Day: day}
	}

	count, err := e.usage.IncrementAndGet(ctx, key, day)
	if err != nil {
		log.Warn("usage increment failed, request admitted uncounted", zap.Error(err))
		e.recorder.RecordStoreError("usage_incr")
		count = used + 1
	}

	e.recorder.RecordAdmission(string(tier), true)
	return Admission{Admitted: true, Tier: tier, Used: count, Limit: limit, Day: day}
}

// GetStatus reports tier and usage for key without changing anything.
func (e *Engine) GetStatus(ctx context.Context, key string) Status {
	log := logger.WithContext(ctx, e.logger)
	day := DayOf(e.now())
	tier := e.tierOf(ctx, key, log)

	used, err := e.usage.Get(ctx, key, day)
	if err != nil {
		log.Warn("usage read failed", zap.Error(err))
		e.recorder.RecordStoreError("usage_get")
		used = 0
	}
	return Status{Key: key, Tier: tier, Used: used, Limit: e.limits.For(tier), Day: day}
}

// SetPremiumManually grants or revokes premium outside of billing events.
func (e *Engine) SetPremiumManually(ctx context.Context, key string, premium bool) error {
	if key == "" {
		return ErrInvalidKey
	}
	if !premium && strings.HasPrefix(key, KeyPrefixLicense) {
		return ErrLicensedKey
	}
	if err := e.store.SetPremium(ctx, key, premium); err != nil {
		e.recorder.RecordStoreError("premium_set")
		return err
	}
	logger.WithContext(ctx, e.logger).Info("premium flag set manually",
		zap.String("key", key),
		zap.Bool("premium", premium),
	)
	e.publisher.Publish(ctx, newPremiumChanged(key, premium, "manual", ""))
	return nil
}

// ApplyEvent applies a verified billing event at most once. A returned error
// means nothing was marked and the provider should redeliver.
func (e *Engine) ApplyEvent(ctx context.Context, ev Event) (ApplyResult, error) {
	if ev.ID == "" {
		return ApplyResult{}, ErrInvalidEvent
	}
	log := logger.WithContext(ctx, e.logger).With(
		zap.String("event_id", ev.ID),
		zap.String("event_type", string(ev.Type)),
	)

	fresh, err := e.dedup.ShouldProcess(ctx, ev.ID)
	if err != nil {
		e.recorder.RecordStoreError("dedup_check")
		return ApplyResult{}, err
	}
	if !fresh {
		log.Info("billing event already processed")
		e.recorder.RecordBillingEvent(string(ev.Type), ReasonDuplicate)
		return skipped(ReasonDuplicate), nil
	}

	var res ApplyResult
	switch ev.Type {
	case EventCheckoutCompleted:
		res, err = e.applyCheckoutCompleted(ctx, ev, log)
	case EventSubscriptionDeleted:
		res, err = e.applySubscriptionDeleted(ctx, ev, log)
	case EventInvoicePaid:
		res, err = e.applyInvoicePaid(ctx, ev, log)
	default:
		log.Debug("billing event ignored", zap.String("provider_type", ev.ProviderType))
		res = skipped(ReasonUnhandled)
	}
	if err != nil {
		e.recorder.RecordStoreError("apply_" + string(ev.Type))
		e.recorder.RecordBillingEvent(string(ev.Type), "failed")
		return ApplyResult{}, err
	}

	// The transition is stored; a failed mark only means a harmless replay.
	if err := e.dedup.MarkProcessed(ctx, ev.ID); err != nil {
		log.Warn("failed to mark billing event processed", zap.Error(err))
		e.recorder.RecordStoreError("dedup_mark")
	}

	outcome := res.Outcome()
	if !res.Applied {
		outcome = res.Reason
	}
	e.recorder.RecordBillingEvent(string(ev.Type), outcome)
	return res, nil
}

func (e *Engine) applyCheckoutCompleted(ctx context.Context, ev Event, log *zap.Logger) (ApplyResult, error) {
	key := ev.Data.ClientReferenceKey
	if key == "" {
		log.Warn("checkout completed without client reference, skipping",
			zap.String("customer_id", ev.Data.CustomerID),
			zap.String("subscription_id", ev.Data.SubscriptionID),
		)
		return skipped(ReasonUnattributable), nil
	}

	deleted, err := e.store.IsSubscriptionDeleted(ctx, ev.Data.SubscriptionID)
	if err != nil {
		return ApplyResult{}, err
	}
	if deleted {
		log.Info("checkout for an already deleted subscription, not granting",
			zap.String("key", key),
			zap.String("subscription_id", ev.Data.SubscriptionID),
		)
		return skipped(ReasonSubscriptionDeleted), nil
	}

	if err := e.store.SetPremium(ctx, key, true); err != nil {
		return ApplyResult{}, err
	}

	// Links are best effort. They never roll back the flag.
	if err := e.store.LinkCustomer(ctx, ev.Data.CustomerID, key); err != nil {
		log.Warn("failed to link customer", zap.String("customer_id", ev.Data.CustomerID), zap.Error(err))
		e.recorder.RecordStoreError("link_customer")
	}
	if err := e.store.LinkSubscription(ctx, ev.Data.SubscriptionID, key); err != nil {
		log.Warn("failed to link subscription", zap.String("subscription_id", ev.Data.SubscriptionID), zap.Error(err))
		e.recorder.RecordStoreError("link_subscription")
	}

	log.Info("premium granted", zap.String("key", key), zap.String("customer_id", ev.Data.CustomerID))
	e.publisher.Publish(ctx, newPremiumChanged(key, true, string(ev.Type), ev.ID))
	return applied(key, TierPremium), nil
}

func (e *Engine) applySubscriptionDeleted(ctx context.Context, ev Event, log *zap.Logger) (ApplyResult, error) {
	if err := e.store.MarkSubscriptionDeleted(ctx, ev.Data.SubscriptionID); err != nil {
		log.Warn("failed to record subscription tombstone", zap.Error(err))
		e.recorder.RecordStoreError("subscription_tombstone")
	}

	key, err := e.resolveKey(ctx, ev.Data.ClientReferenceKey, ev.Data.SubscriptionID, ev.Data.CustomerID)
	if err != nil {
		return ApplyResult{}, err
	}
	if key == "" {
		log.Warn("subscription deleted for unknown client, skipping",
			zap.String("customer_id", ev.Data.CustomerID),
			zap.String("subscription_id", ev.Data.SubscriptionID),
		)
		return skipped(ReasonUnattributable), nil
	}

	others, err := e.store.HasOtherLiveSubscription(ctx, key, ev.Data.SubscriptionID)
	if err != nil {
		return ApplyResult{}, err
	}
	if others {
		if err := e.store.UnlinkSubscription(ctx, ev.Data.SubscriptionID); err != nil {
			log.Warn("failed to unlink subscription", zap.Error(err))
		}
		log.Info("subscription deleted but another one is live, keeping premium", zap.String("key", key))
		return skipped(ReasonSubscriptionActive), nil
	}

	if err := e.store.SetPremium(ctx, key, false); err != nil {
		return ApplyResult{}, err
	}

	// The customer link is kept so the billing portal still resolves.
	if err := e.store.UnlinkSubscription(ctx, ev.Data.SubscriptionID); err != nil {
		log.Warn("failed to unlink subscription", zap.Error(err))
	}

	log.Info("premium revoked", zap.String("key", key))
	e.publisher.Publish(ctx, newPremiumChanged(key, false, string(ev.Type), ev.ID))
	return applied(key, TierFree), nil
}

func (e *Engine) applyInvoicePaid(ctx context.Context, ev Event, log *zap.Logger) (ApplyResult, error) {
	deleted, err := e.store.IsSubscriptionDeleted(ctx, ev.Data.SubscriptionID)
	if err != nil {
		return ApplyResult{}, err
	}
	if deleted {
		return skipped(ReasonSubscriptionDeleted), nil
	}

	key, err := e.resolveKey(ctx, ev.Data.ClientReferenceKey, ev.Data.SubscriptionID, ev.Data.CustomerID)
	if err != nil {
		return ApplyResult{}, err
	}
	if key == "" {
		log.Info("invoice paid for unknown client, skipping", zap.String("customer_id", ev.Data.CustomerID))
		return skipped(ReasonUnattributable), nil
	}

	if err := e.store.SetPremium(ctx, key, true); err != nil {
		return ApplyResult{}, err
	}
	log.Info("premium confirmed by invoice", zap.String("key", key))
	e.publisher.Publish(ctx, newPremiumChanged(key, true, string(ev.Type), ev.ID))
	return applied(key, TierPremium), nil
}

// resolveKey tries the direct reference, then the subscription link, then the
// customer link.
func (e *Engine) resolveKey(ctx context.Context, direct, subscriptionID, customerID string) (string, error) {
	if direct != "" {
		return direct, nil
	}
	key, ok, err := e.store.ResolveKeyBySubscription(ctx, subscriptionID)
	if err != nil {
		return "", err
	}
	if ok {
		return key, nil
	}
	key, _, err = e.store.ResolveKeyByCustomer(ctx, customerID)
	return key, err
}

func (e *Engine) tierOf(ctx context.Context, key string, log *zap.Logger) Tier {
	// lic: keys are only derived from a license that was checked valid.
	if strings.HasPrefix(key, KeyPrefixLicense) {
		return TierPremium
	}
	premium, err := e.store.IsPremium(ctx, key)
	if err != nil {
		log.Warn("premium lookup failed, treating caller as free", zap.Error(err))
		e.recorder.RecordStoreError("premium_get")
		return TierFree
	}
	if premium {
		return TierPremium
	}
	return TierFree
}
