// Package entitlement implements the quota and entitlement state machine:
// client identity derivation, daily usage accounting, premium flags driven by
// billing events, and the client key to customer mapping.
package entitlement

import "time"

// Tier governs the daily request limit of a client key.
type Tier string

const (
	TierFree    Tier = "free"
	TierPremium Tier = "premium"
)

// Limits holds the per-tier daily request limits.
type Limits struct {
	FreeDaily    int64
	PremiumDaily int64
}

// For returns the daily limit for tier.
func (l Limits) For(tier Tier) int64 {
	if tier == TierPremium {
		return l.PremiumDaily
	}
	return l.FreeDaily
}

// Admission is the verdict of CheckAndConsume.
type Admission struct {
	Admitted bool   `json:"admitted"`
	Tier     Tier   `json:"tier"`
	Used     int64  `json:"used"`
	Limit    int64  `json:"limit"`
	Day      string `json:"day"`
}

// Status is a read-only view of a client key's entitlement and usage.
type Status struct {
	Key   string `json:"key"`
	Tier  Tier   `json:"tier"`
	Used  int64  `json:"used"`
	Limit int64  `json:"limit"`
	Day   string `json:"day"`
}

// Remaining returns how many requests are left today.
func (s Status) Remaining() int64 {
	if s.Used >= s.Limit {
		return 0
	}
	return s.Limit - s.Used
}

// DayOf returns the UTC calendar day of t as YYYY-MM-DD.
func DayOf(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
