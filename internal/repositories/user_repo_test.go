package repositories

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prudhvinik1/chatnotify/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingDirectory struct {
	mu    sync.Mutex
	calls int
	users map[int64]*models.UserProfile
}

func (d *countingDirectory) GetUser(ctx context.Context, id int64) (*models.UserProfile, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	user, ok := d.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func TestCachedUserDirectory_ReadThrough(t *testing.T) {
	client := getTestRedisClient(t)
	ctx := context.Background()
	defer cleanupRedisKeys(t, client, userCachePrefix+"*")

	backing := &countingDirectory{users: map[int64]*models.UserProfile{
		11: {ID: 11, Username: "alice", DisplayName: "Alice", IsActive: true},
	}}
	dir := NewCachedUserDirectory(backing, client, time.Minute, zap.NewNop())

	// ACT: two lookups
	first, err := dir.GetUser(ctx, 11)
	require.NoError(t, err)
	second, err := dir.GetUser(ctx, 11)
	require.NoError(t, err)

	// ASSERT: second call served from cache
	assert.Equal(t, "Alice", first.Name())
	assert.Equal(t, first, second)
	assert.Equal(t, 1, backing.calls)

	// Invalidation forces a reload
	require.NoError(t, dir.Invalidate(ctx, 11))
	_, err = dir.GetUser(ctx, 11)
	require.NoError(t, err)
	assert.Equal(t, 2, backing.calls)
}

func TestCachedUserDirectory_MissIsNotCached(t *testing.T) {
	client := getTestRedisClient(t)
	ctx := context.Background()
	defer cleanupRedisKeys(t, client, userCachePrefix+"*")

	backing := &countingDirectory{users: map[int64]*models.UserProfile{}}
	dir := NewCachedUserDirectory(backing, client, time.Minute, zap.NewNop())

	_, err := dir.GetUser(ctx, 12)
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = dir.GetUser(ctx, 12)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 2, backing.calls)
}

func TestPostgresUserDirectory_GetUser(t *testing.T) {
	pool := getTestPool(t)
	ctx := context.Background()

	_, err := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS users (
		id           BIGINT PRIMARY KEY,
		username     TEXT    NOT NULL,
		display_name TEXT,
		is_active    BOOLEAN NOT NULL DEFAULT TRUE
	)`)
	require.NoError(t, err)

	id := testUserID()
	_, err = pool.Exec(ctx, `INSERT INTO users (id, username, display_name, is_active) VALUES ($1, 'bob', NULL, FALSE)`, id)
	require.NoError(t, err)
	defer pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)

	dir := NewPostgresUserDirectory(pool)

	// ACT
	user, err := dir.GetUser(ctx, id)

	// ASSERT
	require.NoError(t, err)
	assert.Equal(t, "bob", user.Name())
	assert.False(t, user.IsActive)

	_, err = dir.GetUser(ctx, -id)
	assert.ErrorIs(t, err, ErrNotFound)
}
