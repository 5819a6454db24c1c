package httpclient

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	c := New(Options{})

	assert.Equal(t, 60*time.Second, c.Timeout)
	tr, ok := c.Transport.(*http.Transport)
	require.True(t, ok)
	assert.Equal(t, 100, tr.MaxIdleConns)
	assert.Equal(t, 10, tr.MaxIdleConnsPerHost)
	assert.Equal(t, 90*time.Second, tr.IdleConnTimeout)
	assert.True(t, tr.ForceAttemptHTTP2)
}

func TestNew_Overrides(t *testing.T) {
	c := New(Options{ResponseTimeout: 5 * time.Second, MaxIdleConnsPerHost: 2})

	assert.Equal(t, 5*time.Second, c.Timeout)
	tr := c.Transport.(*http.Transport)
	assert.Equal(t, 2, tr.MaxIdleConnsPerHost)
}
