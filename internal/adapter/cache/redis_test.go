//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ctr.Terminate(ctx) })

	endpoint, err := ctr.Endpoint(ctx, "")
	require.NoError(t, err)
	return endpoint
}

func TestRedis_GetSetExpiry(t *testing.T) {
	ctx := context.Background()
	r, err := NewRedis(ctx, startRedis(t))
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.CheckReadiness(ctx))

	_, ok, err := r.Get(ctx, "marine_forecast:5.98,116.07")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, r.Set(ctx, "marine_forecast:5.98,116.07", []byte(`{"wind_speed":12}`), time.Second))
	got, ok, err := r.Get(ctx, "marine_forecast:5.98,116.07")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.JSONEq(t, `{"wind_speed":12}`, string(got))

	assert.Eventually(t, func() bool {
		_, ok, err := r.Get(ctx, "marine_forecast:5.98,116.07")
		return err == nil && !ok
	}, 5*time.Second, 100*time.Millisecond)
}

func TestNewRedis_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := NewRedis(ctx, "127.0.0.1:1")
	require.Error(t, err)
}
