package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prudhvinik1/chatnotify/internal/models"
)

const notificationColumns = `id, user_id, type, title, content, is_read, created_at, read_at`

type PostgresNotificationRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresNotificationRepository(pool *pgxpool.Pool) *PostgresNotificationRepository {
	return &PostgresNotificationRepository{pool: pool}
}

// Create inserts an unread record and fills in its ID and CreatedAt.
func (r *PostgresNotificationRepository) Create(ctx context.Context, record *models.NotificationRecord) (int64, error) {
	query := `INSERT INTO notification_history (user_id, type, title, content, is_read)
	          VALUES ($1, $2, $3, $4, FALSE)
	          RETURNING id, created_at`

	err := r.pool.QueryRow(ctx, query,
		record.UserID,
		string(record.Type),
		record.Title,
		record.Content,
	).Scan(&record.ID, &record.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to create notification: %w", err)
	}

	record.IsRead = false
	record.ReadAt = nil
	return record.ID, nil
}

func (r *PostgresNotificationRepository) GetByID(ctx context.Context, id int64) (*models.NotificationRecord, error) {
	query := `SELECT ` + notificationColumns + ` FROM notification_history WHERE id = $1`

	record, err := scanNotification(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	return record, nil
}

// GetByUser returns one page of a user's history, newest first. Pages are 1-based.
func (r *PostgresNotificationRepository) GetByUser(ctx context.Context, userID int64, page, size int) ([]*models.NotificationRecord, error) {
	if page < 1 {
		page = 1
	}
	query := `SELECT ` + notificationColumns + `
	          FROM notification_history
	          WHERE user_id = $1
	          ORDER BY created_at DESC, id DESC
	          LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, userID, size, (page-1)*size)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer rows.Close()

	records := []*models.NotificationRecord{}
	for rows.Next() {
		record, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}
	return records, nil
}

func (r *PostgresNotificationRepository) CountByUser(ctx context.Context, userID int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM notification_history WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return count, nil
}

func (r *PostgresNotificationRepository) GetUnreadCount(ctx context.Context, userID int64) (int, error) {
	query := `SELECT COUNT(*) FROM notification_history WHERE user_id = $1 AND is_read = FALSE`

	var count int
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead only touches a record owned by userID. Anything else is a no-op.
func (r *PostgresNotificationRepository) MarkRead(ctx context.Context, id, userID int64) error {
	query := `UPDATE notification_history
	          SET is_read = TRUE, read_at = NOW()
	          WHERE id = $1 AND user_id = $2 AND is_read = FALSE`

	if _, err := r.pool.Exec(ctx, query, id, userID); err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}

func (r *PostgresNotificationRepository) MarkAllRead(ctx context.Context, userID int64) error {
	query := `UPDATE notification_history
	          SET is_read = TRUE, read_at = NOW()
	          WHERE user_id = $1 AND is_read = FALSE`

	if _, err := r.pool.Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return nil
}

func (r *PostgresNotificationRepository) Delete(ctx context.Context, id, userID int64) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM notification_history WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanNotification(row pgx.Row) (*models.NotificationRecord, error) {
	var record models.NotificationRecord
	var notificationType string
	err := row.Scan(
		&record.ID,
		&record.UserID,
		&notificationType,
		&record.Title,
		&record.Content,
		&record.IsRead,
		&record.CreatedAt,
		&record.ReadAt,
	)
	if err != nil {
		return nil, err
	}
	record.Type = models.NotificationType(notificationType)
	return &record, nil
}
