package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prudhvinik1/chatnotify/internal/models"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	userCachePrefix = "chatnotify:user:"
	UserCacheTTL    = 5 * time.Minute
)

// PostgresUserDirectory reads the users table owned by the account service.
type PostgresUserDirectory struct {
	pool *pgxpool.Pool
}

func NewPostgresUserDirectory(pool *pgxpool.Pool) *PostgresUserDirectory {
	return &PostgresUserDirectory{pool: pool}
}

func (r *PostgresUserDirectory) GetUser(ctx context.Context, id int64) (*models.UserProfile, error) {
	query := `SELECT id, username, COALESCE(display_name, ''), is_active FROM users WHERE id = $1`

	var user models.UserProfile
	err := r.pool.QueryRow(ctx, query, id).Scan(&user.ID, &user.Username, &user.DisplayName, &user.IsActive)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// CachedUserDirectory is a read-through Redis cache in front of another
// directory. Cache failures fall through to the backing directory.
type CachedUserDirectory struct {
	next   UserDirectory
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewCachedUserDirectory(next UserDirectory, client *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedUserDirectory {
	if ttl <= 0 {
		ttl = UserCacheTTL
	}
	return &CachedUserDirectory{next: next, client: client, ttl: ttl, logger: logger}
}

func (c *CachedUserDirectory) GetUser(ctx context.Context, id int64) (*models.UserProfile, error) {
	key := userCacheKey(id)

	data, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var user models.UserProfile
		if err := json.Unmarshal(data, &user); err == nil {
			return &user, nil
		}
		c.logger.Warn("Discarding unreadable cached user", zap.Int64("user_id", id))
	} else if err != redis.Nil {
		c.logger.Warn("User cache unavailable", zap.Int64("user_id", id), zap.Error(err))
	}

	user, err := c.next.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(user); err == nil {
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Warn("Failed to cache user", zap.Int64("user_id", id), zap.Error(err))
		}
	}
	return user, nil
}

// Invalidate drops a cached profile.
func (c *CachedUserDirectory) Invalidate(ctx context.Context, id int64) error {
	if err := c.client.Del(ctx, userCacheKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate user cache: %w", err)
	}
	return nil
}

func userCacheKey(id int64) string {
	return fmt.Sprintf("%s%d", userCachePrefix, id)
}
