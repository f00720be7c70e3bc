package repositories

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	userConnectionsPrefix = "connections:user:"
	connectionPrefix      = "connection:"
	cleanupScanCount      = 100
)

// RedisConnectionRegistry shares presence between instances. Each user owns a
// SET of connection ids and each connection id owns a string key holding its
// user id. Both carry the connection TTL, refreshed on every write.
type RedisConnectionRegistry struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisConnectionRegistry(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisConnectionRegistry {
	if ttl <= 0 {
		ttl = DefaultConnectionTTL
	}
	return &RedisConnectionRegistry{client: client, ttl: ttl, logger: logger}
}

func (r *RedisConnectionRegistry) AddConnection(ctx context.Context, connectionID string, userID int64) {
	connKey := connectionKey(connectionID)

	prev, err := r.client.Get(ctx, connKey).Int64()
	if err != nil && err != redis.Nil {
		r.logger.Error("Failed to read connection owner", zap.String("connection_id", connectionID), zap.Error(err))
	}
	moved := err == nil && prev != userID

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if moved {
			pipe.SRem(ctx, userConnectionsKey(prev), connectionID)
		}
		pipe.Set(ctx, connKey, userID, r.ttl)
		pipe.SAdd(ctx, userConnectionsKey(userID), connectionID)
		pipe.Expire(ctx, userConnectionsKey(userID), r.ttl)
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to add connection",
			zap.String("connection_id", connectionID),
			zap.Int64("user_id", userID),
			zap.Error(err))
		return
	}

	r.logger.Debug("Added connection", zap.String("connection_id", connectionID), zap.Int64("user_id", userID))
}

func (r *RedisConnectionRegistry) RemoveConnection(ctx context.Context, connectionID string) {
	connKey := connectionKey(connectionID)

	userID, err := r.client.Get(ctx, connKey).Int64()
	if err == redis.Nil {
		return
	}
	if err != nil {
		r.logger.Error("Failed to read connection owner", zap.String("connection_id", connectionID), zap.Error(err))
		return
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SRem(ctx, userConnectionsKey(userID), connectionID)
		pipe.Del(ctx, connKey)
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to remove connection",
			zap.String("connection_id", connectionID),
			zap.Int64("user_id", userID),
			zap.Error(err))
		return
	}

	r.logger.Debug("Removed connection", zap.String("connection_id", connectionID), zap.Int64("user_id", userID))
}

func (r *RedisConnectionRegistry) GetConnections(ctx context.Context, userID int64) []string {
	ids, err := r.client.SMembers(ctx, userConnectionsKey(userID)).Result()
	if err != nil {
		r.logger.Error("Failed to get connections", zap.Int64("user_id", userID), zap.Error(err))
		return []string{}
	}
	return ids
}

func (r *RedisConnectionRegistry) GetConnectionsForUsers(ctx context.Context, userIDs []int64) []string {
	ids := []string{}
	if len(userIDs) == 0 {
		return ids
	}

	// One round trip for every user set
	pipe := r.client.Pipeline()
	cmds := make([]*redis.StringSliceCmd, len(userIDs))
	for i, userID := range userIDs {
		cmds[i] = pipe.SMembers(ctx, userConnectionsKey(userID))
	}
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		r.logger.Error("Failed to get connections for users", zap.Int("users", len(userIDs)), zap.Error(err))
		return ids
	}

	seen := make(map[string]struct{})
	for _, cmd := range cmds {
		for _, id := range cmd.Val() {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}

func (r *RedisConnectionRegistry) IsOnline(ctx context.Context, userID int64) bool {
	n, err := r.client.SCard(ctx, userConnectionsKey(userID)).Result()
	if err != nil {
		r.logger.Error("Failed to check presence", zap.Int64("user_id", userID), zap.Error(err))
		return false
	}
	return n > 0
}

// Cleanup walks every user set and drops members whose connection key has
// expired. Expired user sets vanish on their own.
func (r *RedisConnectionRegistry) Cleanup(ctx context.Context) (int, error) {
	reaped := 0
	iter := r.client.Scan(ctx, 0, userConnectionsPrefix+"*", cleanupScanCount).Iterator()
	for iter.Next(ctx) {
		setKey := iter.Val()

		members, err := r.client.SMembers(ctx, setKey).Result()
		if err != nil {
			return reaped, fmt.Errorf("failed to read %s: %w", setKey, err)
		}

		var expiredIDs []interface{}
		for _, id := range members {
			exists, err := r.client.Exists(ctx, connectionKey(id)).Result()
			if err != nil {
				return reaped, fmt.Errorf("failed to check connection %s: %w", id, err)
			}
			if exists == 0 {
				expiredIDs = append(expiredIDs, id)
			}
		}

		if len(expiredIDs) > 0 {
			if err := r.client.SRem(ctx, setKey, expiredIDs...).Err(); err != nil {
				return reaped, fmt.Errorf("failed to remove expired connections: %w", err)
			}
			reaped += len(expiredIDs)
		}
	}
	if err := iter.Err(); err != nil {
		return reaped, fmt.Errorf("failed to scan connection sets: %w", err)
	}
	return reaped, nil
}

func userConnectionsKey(userID int64) string {
	return userConnectionsPrefix + strconv.FormatInt(userID, 10)
}

func connectionKey(connectionID string) string {
	return connectionPrefix + connectionID
}
