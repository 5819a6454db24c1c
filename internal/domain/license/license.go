// Package license validates the static license keys that unlock the premium
// tier without a billing subscription.
package license

import (
	"crypto/subtle"
	"strings"
)

// Registry holds the configured license keys. It is immutable after creation
// and safe for concurrent use.
type Registry struct {
	keys [][]byte
}

// NewRegistry builds a registry from keys, ignoring blanks and duplicates.
func NewRegistry(keys []string) *Registry {
	seen := make(map[string]struct{}, len(keys))
	r := &Registry{}
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		r.keys = append(r.keys, []byte(k))
	}
	return r
}

// Valid reports whether token matches a configured key exactly.
func (r *Registry) Valid(token string) bool {
	token = strings.TrimSpace(token)
	if r == nil || token == "" {
		return false
	}
	t := []byte(token)
	match := 0
	for _, k := range r.keys {
		match |= subtle.ConstantTimeCompare(k, t)
	}
	return match == 1
}

// Len returns the number of configured keys.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.keys)
}
