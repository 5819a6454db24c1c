package entitlement

import "errors"

var (
	// ErrInvalidEvent is returned for events without an identifier.
	ErrInvalidEvent = errors.New("invalid event")
	// ErrInvalidKey is returned when an operation receives an empty client key.
	ErrInvalidKey = errors.New("invalid client key")
	// ErrLicensedKey is returned when a license key is downgraded by hand.
	// Licenses are revoked by removing them from license.keys.
	ErrLicensedKey = errors.New("license keys are premium until the license is removed")
)
