package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRedisRegistry_AddAndRemove(t *testing.T) {
	client := getTestRedisClient(t)
	r := NewRedisConnectionRegistry(client, time.Hour, zap.NewNop())
	ctx := context.Background()

	defer cleanupRedisKeys(t, client, "connections:user:*", "connection:*")

	r.AddConnection(ctx, "c1", 501)
	r.AddConnection(ctx, "c2", 501)

	assert.ElementsMatch(t, []string{"c1", "c2"}, r.GetConnections(ctx, 501))
	assert.True(t, r.IsOnline(ctx, 501))

	// ACT: remove twice
	r.RemoveConnection(ctx, "c1")
	r.RemoveConnection(ctx, "c1")

	// ASSERT
	assert.Equal(t, []string{"c2"}, r.GetConnections(ctx, 501))

	r.RemoveConnection(ctx, "c2")
	assert.False(t, r.IsOnline(ctx, 501))
	assert.Empty(t, r.GetConnections(ctx, 501))
}

func TestRedisRegistry_MovesConnectionBetweenUsers(t *testing.T) {
	client := getTestRedisClient(t)
	r := NewRedisConnectionRegistry(client, time.Hour, zap.NewNop())
	ctx := context.Background()

	defer cleanupRedisKeys(t, client, "connections:user:*", "connection:*")

	r.AddConnection(ctx, "shared", 601)
	r.AddConnection(ctx, "shared", 602)

	assert.False(t, r.IsOnline(ctx, 601))
	assert.Equal(t, []string{"shared"}, r.GetConnections(ctx, 602))
	assert.Equal(t, []string{"shared"}, r.GetConnectionsForUsers(ctx, []int64{601, 602}))
}

// TestRedisRegistry_Cleanup exercises the lazy reaping of members whose
// connection key already expired.
func TestRedisRegistry_Cleanup(t *testing.T) {
	client := getTestRedisClient(t)
	ctx := context.Background()

	defer cleanupRedisKeys(t, client, "connections:user:*", "connection:*")

	short := NewRedisConnectionRegistry(client, time.Second, zap.NewNop())
	long := NewRedisConnectionRegistry(client, time.Hour, zap.NewNop())

	short.AddConnection(ctx, "expiring", 701)
	long.AddConnection(ctx, "valid", 701)

	time.Sleep(1500 * time.Millisecond)

	// ACT
	reaped, err := long.Cleanup(ctx)

	// ASSERT
	require.NoError(t, err)
	assert.Equal(t, 1, reaped)
	assert.Equal(t, []string{"valid"}, long.GetConnections(ctx, 701))
}
