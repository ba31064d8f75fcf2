package storage

import (
	"context"
	"testing"

	"github.com/redis/rueidis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedisContainer starts a throwaway Redis and returns its address.
// Tests are skipped when Docker is not available.
func setupRedisContainer(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp"),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("Failed to setup Redis container: %v", err)
	}
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	addr, err := container.Endpoint(ctx, "")
	require.NoError(t, err)
	return addr
}

func TestRedisStore(t *testing.T) {
	addr := setupRedisContainer(t)

	store, err := NewRedisStoreFromOptions(RedisOptions{Addr: addr, Prefix: "heartrate"})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	testBlobStore(t, store)

	// Keys are namespaced under the prefix.
	ctx := context.Background()
	got, err := store.client.Do(ctx, store.client.B().Get().Key("heartrate/token.json").Build()).AsBytes()
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"a":1}`), got)

	_, err = store.client.Do(ctx, store.client.B().Get().Key("token.json").Build()).AsBytes()
	assert.True(t, rueidis.IsRedisNil(err))
}

func TestOpen_Redis(t *testing.T) {
	addr := setupRedisContainer(t)

	store, err := NewRedisStoreFromOptions(RedisOptions{Addr: addr})
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "days/2021-06-23.json", []byte("{}")))
	got, err := store.Get(ctx, "days/2021-06-23.json")
	require.NoError(t, err)
	assert.Equal(t, []byte("{}"), got)
}

func TestNewRedisStoreFromOptions_EmptyAddr(t *testing.T) {
	_, err := NewRedisStoreFromOptions(RedisOptions{})
	assert.ErrorIs(t, err, ErrInvalidInput)
}
