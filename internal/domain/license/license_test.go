package license

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistry_Valid(t *testing.T) {
	r := NewRegistry([]string{"ABC123", " XYZ ", "", "ABC123"})

	assert.Equal(t, 2, r.Len())

	tests := []struct {
		token string
		want  bool
	}{
		{"ABC123", true},
		{"XYZ", true},
		{" ABC123 ", true},
		{"abc123", false},
		{"ABC12", false},
		{"", false},
		{"   ", false},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Valid(tt.token))
		})
	}
}

func TestRegistry_Empty(t *testing.T) {
	var nilRegistry *Registry
	assert.False(t, nilRegistry.Valid("ABC"))
	assert.Equal(t, 0, nilRegistry.Len())
	assert.False(t, NewRegistry(nil).Valid("ABC"))
}
