package entitlement

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/ronchon/server/internal/port/outbound"
)

const (
	premiumPrefix       = "premium:"
	customerToKey       = "cust2key:"
	keyToCustomer       = "key2cust:"
	subscriptionToKey   = "sub2key:"
	keyToSubscriptions  = "key2subs:"
	deletedSubsPrefix   = "subdel:"
	defaultTombstoneTTL = 30 * 24 * time.Hour
)

// Store keeps premium flags and the client key to billing id links.
// All writes are idempotent.
type Store struct {
	kv           outbound.KVStorePort
	tombstoneTTL time.Duration
}

// NewStore creates a Store over kv. tombstoneTTL bounds how long deleted
// subscription markers are kept.
func NewStore(kv outbound.KVStorePort, tombstoneTTL time.Duration) *Store {
	if tombstoneTTL <= 0 {
		tombstoneTTL = defaultTombstoneTTL
	}
	return &Store{kv: kv, tombstoneTTL: tombstoneTTL}
}

// Backend returns the name of the underlying key-value backend.
func (s *Store) Backend() string {
	return s.kv.Name()
}

func (s *Store) IsPremium(ctx context.Context, key string) (bool, error) {
	ok, err := s.kv.Exists(ctx, premiumPrefix+key)
	if err != nil {
		return false, fmt.Errorf("read premium flag: %w", err)
	}
	return ok, nil
}

func (s *Store) SetPremium(ctx context.Context, key string, premium bool) error {
	var err error
	if premium {
		err = s.kv.Set(ctx, premiumPrefix+key, "1", 0)
	} else {
		err = s.kv.Delete(ctx, premiumPrefix+key)
	}
	if err != nil {
		return fmt.Errorf("write premium flag: %w", err)
	}
	return nil
}

// LinkCustomer associates customerID with key in both directions. A previous
// association of either side is replaced, so each side has at most one
// partner.
func (s *Store) LinkCustomer(ctx context.Context, customerID, key string) error {
	if customerID == "" || key == "" {
		return nil
	}

	prevCustomer, found, err := s.kv.Get(ctx, keyToCustomer+key)
	if err != nil {
		return fmt.Errorf("read customer link: %w", err)
	}
	if found && prevCustomer != customerID {
		if err := s.kv.Delete(ctx, customerToKey+prevCustomer); err != nil {
			return fmt.Errorf("drop stale customer link: %w", err)
		}
	}

	prevKey, found, err := s.kv.Get(ctx, customerToKey+customerID)
	if err != nil {
		return fmt.Errorf("read key link: %w", err)
	}
	if found && prevKey != key {
		if err := s.kv.Delete(ctx, keyToCustomer+prevKey); err != nil {
			return fmt.Errorf("drop stale key link: %w", err)
		}
	}

	if err := s.kv.Set(ctx, customerToKey+customerID, key, 0); err != nil {
		return fmt.Errorf("write customer link: %w", err)
	}
	if err := s.kv.Set(ctx, keyToCustomer+key, customerID, 0); err != nil {
		return fmt.Errorf("write key link: %w", err)
	}
	return nil
}

func (s *Store) ResolveKeyByCustomer(ctx context.Context, customerID string) (string, bool, error) {
	return s.lookup(ctx, customerToKey, customerID)
}

// CustomerForKey returns the customer linked to key, if any.
func (s *Store) CustomerForKey(ctx context.Context, key string) (string, bool, error) {
	return s.lookup(ctx, keyToCustomer, key)
}

// UnlinkCustomer removes both directions of the link held by customerID.
func (s *Store) UnlinkCustomer(ctx context.Context, customerID string) error {
	key, found, err := s.ResolveKeyByCustomer(ctx, customerID)
	if err != nil || !found {
		return err
	}
	keys := []string{customerToKey + customerID}
	if cur, ok, err := s.CustomerForKey(ctx, key); err == nil && ok && cur == customerID {
		keys = append(keys, keyToCustomer+key)
	}
	if err := s.kv.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("unlink customer: %w", err)
	}
	return nil
}

// LinkSubscription points subscriptionID at key and adds it to the key's
// subscription list.
func (s *Store) LinkSubscription(ctx context.Context, subscriptionID, key string) error {
	if subscriptionID == "" || key == "" {
		return nil
	}
	if err := s.kv.Set(ctx, subscriptionToKey+subscriptionID, key, 0); err != nil {
		return fmt.Errorf("write subscription link: %w", err)
	}

	subs, err := s.Subscriptions(ctx, key)
	if err != nil {
		return err
	}
	if slices.Contains(subs, subscriptionID) {
		return nil
	}
	return s.writeSubscriptions(ctx, key, append(subs, subscriptionID))
}

// Subscriptions lists the subscriptions linked to key, oldest first.
func (s *Store) Subscriptions(ctx context.Context, key string) ([]string, error) {
	if key == "" {
		return nil, nil
	}
	v, found, err := s.kv.Get(ctx, keyToSubscriptions+key)
	if err != nil {
		return nil, fmt.Errorf("read subscription list: %w", err)
	}
	if !found || v == "" {
		return nil, nil
	}
	return strings.Split(v, ","), nil
}

// HasOtherLiveSubscription reports whether key still holds a subscription
// other than subscriptionID that is linked to it and not tombstoned.
func (s *Store) HasOtherLiveSubscription(ctx context.Context, key, subscriptionID string) (bool, error) {
	subs, err := s.Subscriptions(ctx, key)
	if err != nil {
		return false, err
	}
	for _, sub := range subs {
		if sub == subscriptionID {
			continue
		}
		deleted, err := s.IsSubscriptionDeleted(ctx, sub)
		if err != nil {
			return false, err
		}
		if deleted {
			continue
		}
		owner, ok, err := s.ResolveKeyBySubscription(ctx, sub)
		if err != nil {
			return false, err
		}
		if ok && owner == key {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) writeSubscriptions(ctx context.Context, key string, subs []string) error {
	var err error
	if len(subs) == 0 {
		err = s.kv.Delete(ctx, keyToSubscriptions+key)
	} else {
		err = s.kv.Set(ctx, keyToSubscriptions+key, strings.Join(subs, ","), 0)
	}
	if err != nil {
		return fmt.Errorf("write subscription list: %w", err)
	}
	return nil
}

func (s *Store) ResolveKeyBySubscription(ctx context.Context, subscriptionID string) (string, bool, error) {
	return s.lookup(ctx, subscriptionToKey, subscriptionID)
}

// UnlinkSubscription drops subscriptionID's link and removes it from its
// key's subscription list.
func (s *Store) UnlinkSubscription(ctx context.Context, subscriptionID string) error {
	if subscriptionID == "" {
		return nil
	}
	key, found, err := s.ResolveKeyBySubscription(ctx, subscriptionID)
	if err != nil {
		return err
	}
	if err := s.kv.Delete(ctx, subscriptionToKey+subscriptionID); err != nil {
		return fmt.Errorf("unlink subscription: %w", err)
	}
	if !found {
		return nil
	}

	subs, err := s.Subscriptions(ctx, key)
	if err != nil {
		return err
	}
	rest := slices.DeleteFunc(subs, func(id string) bool { return id == subscriptionID })
	return s.writeSubscriptions(ctx, key, rest)
}

// MarkSubscriptionDeleted records that subscriptionID ended, so a late
// checkout event for it does not grant premium again.
func (s *Store) MarkSubscriptionDeleted(ctx context.Context, subscriptionID string) error {
	if subscriptionID == "" {
		return nil
	}
	if err := s.kv.Set(ctx, deletedSubsPrefix+subscriptionID, "1", s.tombstoneTTL); err != nil {
		return fmt.Errorf("write subscription tombstone: %w", err)
	}
	return nil
}

func (s *Store) IsSubscriptionDeleted(ctx context.Context, subscriptionID string) (bool, error) {
	if subscriptionID == "" {
		return false, nil
	}
	ok, err := s.kv.Exists(ctx, deletedSubsPrefix+subscriptionID)
	if err != nil {
		return false, fmt.Errorf("read subscription tombstone: %w", err)
	}
	return ok, nil
}

func (s *Store) lookup(ctx context.Context, prefix, id string) (string, bool, error) {
	if id == "" {
		return "", false, nil
	}
	v, found, err := s.kv.Get(ctx, prefix+id)
	if err != nil {
		return "", false, fmt.Errorf("read %s link: %w", prefix[:len(prefix)-1], err)
	}
	if !found || v == "" {
		return "", false, nil
	}
	return v, true, nil
}
