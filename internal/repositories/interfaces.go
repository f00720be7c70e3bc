package repositories

import (
	"context"
	"errors"

	"github.com/prudhvinik1/chatnotify/internal/models"
)

var ErrNotFound = errors.New("not found")

// ConnectionRegistry tracks which realtime connections belong to which user.
// Implementations swallow storage errors (logging them) and degrade to empty
// results, so presence lookups never fail a dispatch.
type ConnectionRegistry interface {
	AddConnection(ctx context.Context, connectionID string, userID int64)
	RemoveConnection(ctx context.Context, connectionID string)
	GetConnections(ctx context.Context, userID int64) []string
	GetConnectionsForUsers(ctx context.Context, userIDs []int64) []string
	IsOnline(ctx context.Context, userID int64) bool
	Cleanup(ctx context.Context) (int, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, record *models.NotificationRecord) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.NotificationRecord, error)
	GetByUser(ctx context.Context, userID int64, page, size int) ([]*models.NotificationRecord, error)
	CountByUser(ctx context.Context, userID int64) (int, error)
	GetUnreadCount(ctx context.Context, userID int64) (int, error)
	MarkRead(ctx context.Context, id, userID int64) error
	MarkAllRead(ctx context.Context, userID int64) error
	Delete(ctx context.Context, id, userID int64) error
}

type UserDirectory interface {
	GetUser(ctx context.Context, id int64) (*models.UserProfile, error)
}
