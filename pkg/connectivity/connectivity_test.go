package connectivity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbeReachableBackend(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	p, err := NewProbeChecker(srv.URL, time.Second)
	require.NoError(t, err)
	assert.True(t, p.IsConnected(context.Background()))
}

func TestProbeUnreachableBackendIsFalse(t *testing.T) {
	p, err := NewProbeChecker("http://127.0.0.1:1", 200*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, p.IsConnected(context.Background()))
}

func TestProbeDefaultPorts(t *testing.T) {
	p, err := NewProbeChecker("https://backend.example.com", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "backend.example.com:443", p.addr)

	p, err = NewProbeChecker("http://backend.example.com", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "backend.example.com:80", p.addr)
}

func TestProbeCancelledContextIsFalse(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	p, err := NewProbeChecker(srv.URL, time.Second)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, p.IsConnected(ctx))
}

func TestStatic(t *testing.T) {
	assert.True(t, Static(true).IsConnected(context.Background()))
	assert.False(t, Static(false).IsConnected(context.Background()))
}
