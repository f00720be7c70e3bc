package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prudhvinik1/chatnotify/internal/models"
	"github.com/prudhvinik1/chatnotify/internal/repositories"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	MaxPageSize     = 100
	DefaultPageSize = 20

	persistConcurrency = 16
)

var ErrInvalidUser = errors.New("invalid user")

// Pusher delivers one frame to every connection in the union of groups.
// Delivery is best-effort and must not block.
type Pusher interface {
	PushToGroups(groups []string, event string, payload any)
}

// NotificationService decides, per notification, whether to push it live,
// store it, or both. Push and persist are independent best-effort steps.
type NotificationService struct {
	registry repositories.ConnectionRegistry
	history  repositories.NotificationRepository
	users    repositories.UserDirectory
	pusher   Pusher
	logger   *zap.Logger
	now      func() time.Time
}

func NewNotificationService(
	registry repositories.ConnectionRegistry,
	history repositories.NotificationRepository,
	users repositories.UserDirectory,
	pusher Pusher,
	logger *zap.Logger,
) *NotificationService {
	return &NotificationService{
		registry: registry,
		history:  history,
		users:    users,
		pusher:   pusher,
		logger:   logger,
		now:      time.Now,
	}
}

// SendRealtimeNotification persists message and system notifications
// unconditionally, then pushes to the user's group if they are online.
// Push-only types sent to an offline user are dropped. The returned error
// reports persistence failures only.
func (s *NotificationService) SendRealtimeNotification(
	ctx context.Context,
	userID int64,
	notificationType models.NotificationType,
	title, content string,
	data any,
) error {
	if !notificationType.Valid() {
		return models.ErrUnknownNotificationType
	}

	if notificationType.PersistOnDispatch() {
		record := &models.NotificationRecord{
			UserID:  userID,
			Type:    notificationType,
			Title:   title,
			Content: content,
		}
		if _, err := s.history.Create(ctx, record); err != nil {
			s.logger.Error("Failed to persist notification",
				zap.Int64("user_id", userID),
				zap.String("type", notificationType.String()),
				zap.Error(err))
			return fmt.Errorf("failed to persist notification: %w", err)
		}
	}

	if !s.registry.IsOnline(ctx, userID) {
		path := pathDropped
		if notificationType.PersistOnDispatch() {
			path = pathStored
		}
		notificationsDispatched.WithLabelValues(notificationType.String(), path).Inc()
		s.logger.Debug("User offline, push skipped",
			zap.Int64("user_id", userID),
			zap.String("type", notificationType.String()),
			zap.String("path", path))
		return nil
	}

	s.pusher.PushToGroups([]string{models.UserGroup(userID)}, models.EventReceiveNotification, &models.RealtimeNotification{
		Type:      notificationType,
		Title:     title,
		Content:   content,
		Data:      data,
		Timestamp: s.now().UTC(),
	})
	notificationsDispatched.WithLabelValues(notificationType.String(), pathPush).Inc()

	s.logger.Info("Realtime notification sent",
		zap.Int64("user_id", userID),
		zap.String("type", notificationType.String()))
	return nil
}

// SendSystemNotification stores one system record per target and then issues
// a single multicast push to the groups of the targets that are online.
func (s *NotificationService) SendSystemNotification(ctx context.Context, userIDs []int64, title, content string) error {
	if err := ValidateBroadcastTargets(userIDs); err != nil {
		return err
	}
	broadcastTargets.Observe(float64(len(userIDs)))

	// Every target's write is attempted even after a failure.
	var (
		g        errgroup.Group
		mu       sync.Mutex
		failures []error
	)
	g.SetLimit(persistConcurrency)
	for _, userID := range userIDs {
		g.Go(func() error {
			record := &models.NotificationRecord{
				UserID:  userID,
				Type:    models.TypeSystem,
				Title:   title,
				Content: content,
			}
			if _, err := s.history.Create(ctx, record); err != nil {
				mu.Lock()
				failures = append(failures, fmt.Errorf("user %d: %w", userID, err))
				mu.Unlock()
			}
			return nil
		})
	}
	g.Wait()

	var persistErr error
	if len(failures) > 0 {
		joined := errors.Join(failures...)
		s.logger.Error("Failed to persist system notification",
			zap.Int("targets", len(userIDs)),
			zap.Int("failed", len(failures)),
			zap.Error(joined))
		persistErr = fmt.Errorf("failed to persist system notification for %d of %d users: %w",
			len(failures), len(userIDs), joined)
	}

	// Online targets still get the push; the error reports the missing records.
	s.pushSystemNotification(ctx, userIDs, title, content)
	return persistErr
}

func (s *NotificationService) pushSystemNotification(ctx context.Context, userIDs []int64, title, content string) {
	if len(s.registry.GetConnectionsForUsers(ctx, userIDs)) == 0 {
		notificationsDispatched.WithLabelValues(models.TypeSystem.String(), pathStored).Add(float64(len(userIDs)))
		s.logger.Info("System notification stored, no target online", zap.Int("targets", len(userIDs)))
		return
	}

	groups := make([]string, 0, len(userIDs))
	for _, userID := range userIDs {
		if s.registry.IsOnline(ctx, userID) {
			groups = append(groups, models.UserGroup(userID))
		}
	}
	if len(groups) == 0 {
		notificationsDispatched.WithLabelValues(models.TypeSystem.String(), pathStored).Add(float64(len(userIDs)))
		return
	}

	s.pusher.PushToGroups(groups, models.EventReceiveNotification, &models.RealtimeNotification{
		Type:      models.TypeSystem,
		Title:     title,
		Content:   content,
		Timestamp: s.now().UTC(),
	})
	notificationsDispatched.WithLabelValues(models.TypeSystem.String(), pathPush).Add(float64(len(groups)))
	notificationsDispatched.WithLabelValues(models.TypeSystem.String(), pathStored).Add(float64(len(userIDs) - len(groups)))

	s.logger.Info("System notification sent",
		zap.Int("targets", len(userIDs)),
		zap.Int("online", len(groups)))
}

// SendPrivateMessageNotification notifies receiverID of a direct message from
// senderID. The receiver must exist and be active.
func (s *NotificationService) SendPrivateMessageNotification(ctx context.Context, senderID, receiverID int64, message string) error {
	if !s.ValidateUser(ctx, receiverID) {
		return ErrInvalidUser
	}

	senderName := ""
	if sender, err := s.users.GetUser(ctx, senderID); err == nil {
		senderName = sender.Name()
	}

	return s.SendRealtimeNotification(ctx, receiverID, models.TypeMessage, "New message", message, &models.PrivateMessageData{
		SenderID:   senderID,
		SenderName: senderName,
		Message:    message,
	})
}

// ValidateUser reports whether userID resolves to an active user. Lookup
// failures count as invalid.
func (s *NotificationService) ValidateUser(ctx context.Context, userID int64) bool {
	if userID <= 0 {
		return false
	}
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			s.logger.Warn("User lookup failed", zap.Int64("user_id", userID), zap.Error(err))
		}
		return false
	}
	return user.IsActive
}

// DisplayName returns the user's display name, or "" when unknown.
func (s *NotificationService) DisplayName(ctx context.Context, userID int64) string {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return ""
	}
	return user.Name()
}

func (s *NotificationService) IsUserOnline(ctx context.Context, userID int64) bool {
	return s.registry.IsOnline(ctx, userID)
}

// GetPresence reports a user's presence with their live connection count.
func (s *NotificationService) GetPresence(ctx context.Context, userID int64) *models.Presence {
	return models.NewPresence(userID, len(s.registry.GetConnections(ctx, userID)))
}

func (s *NotificationService) GetUsersOnlineStatus(ctx context.Context, userIDs []int64) map[int64]bool {
	status := make(map[int64]bool, len(userIDs))
	for _, userID := range userIDs {
		status[userID] = s.registry.IsOnline(ctx, userID)
	}
	return status
}

// GetUserNotifications returns one page of history. Storage errors yield an
// empty page.
func (s *NotificationService) GetUserNotifications(ctx context.Context, userID int64, page, size int) *models.PagedResult {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > MaxPageSize {
		size = DefaultPageSize
	}

	items, err := s.history.GetByUser(ctx, userID, page, size)
	if err != nil {
		s.logger.Error("Failed to get notifications", zap.Int64("user_id", userID), zap.Error(err))
		return models.NewPagedResult(nil, page, size, 0)
	}

	total, err := s.history.CountByUser(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to count notifications", zap.Int64("user_id", userID), zap.Error(err))
		total = (page-1)*size + len(items)
	}
	return models.NewPagedResult(items, page, size, total)
}

func (s *NotificationService) GetUnreadCount(ctx context.Context, userID int64) int {
	count, err := s.history.GetUnreadCount(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to get unread count", zap.Int64("user_id", userID), zap.Error(err))
		return 0
	}
	return count
}

// MarkAsRead marks one of the user's notifications read and pushes the new
// unread count. Notifications owned by someone else are left untouched.
func (s *NotificationService) MarkAsRead(ctx context.Context, notificationID, userID int64) error {
	if err := s.history.MarkRead(ctx, notificationID, userID); err != nil {
		s.logger.Error("Failed to mark notification read",
			zap.Int64("notification_id", notificationID),
			zap.Int64("user_id", userID),
			zap.Error(err))
		return err
	}
	s.pushUnreadCount(ctx, userID)
	return nil
}

func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID int64) error {
	if err := s.history.MarkAllRead(ctx, userID); err != nil {
		s.logger.Error("Failed to mark all notifications read", zap.Int64("user_id", userID), zap.Error(err))
		return err
	}
	s.pushUnreadCount(ctx, userID)
	return nil
}

// DeleteNotification removes one of the user's notifications.
// repositories.ErrNotFound is returned when it does not exist or is not theirs.
func (s *NotificationService) DeleteNotification(ctx context.Context, notificationID, userID int64) error {
	if err := s.history.Delete(ctx, notificationID, userID); err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			s.logger.Error("Failed to delete notification",
				zap.Int64("notification_id", notificationID),
				zap.Int64("user_id", userID),
				zap.Error(err))
		}
		return err
	}
	s.pushUnreadCount(ctx, userID)
	return nil
}

func (s *NotificationService) pushUnreadCount(ctx context.Context, userID int64) {
	if !s.registry.IsOnline(ctx, userID) {
		return
	}
	count := s.GetUnreadCount(ctx, userID)
	s.pusher.PushToGroups([]string{models.UserGroup(userID)}, models.EventUnreadCountUpdated, &models.UnreadCount{Count: count})
}
