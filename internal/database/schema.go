package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is applied on start-up. Statements must stay idempotent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS notification_history (
		id         BIGSERIAL PRIMARY KEY,
		user_id    BIGINT      NOT NULL,
		type       VARCHAR(32) NOT NULL,
		title      TEXT        NOT NULL,
		content    TEXT        NOT NULL,
		is_read    BOOLEAN     NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		read_at    TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_notification_history_user_created
		ON notification_history (user_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_notification_history_user_unread
		ON notification_history (user_id) WHERE is_read = FALSE`,
}

func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
