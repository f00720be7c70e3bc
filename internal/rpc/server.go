package rpc

import (
	"context"
	"errors"

	"github.com/prudhvinik1/chatnotify/internal/models"
	"github.com/prudhvinik1/chatnotify/internal/repositories"
	"github.com/prudhvinik1/chatnotify/internal/services"
	"go.uber.org/zap"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// Backend is the notification service as seen by the RPC surface.
type Backend interface {
	SendRealtimeNotification(ctx context.Context, userID int64, notificationType models.NotificationType, title, content string, data any) error
	SendSystemNotification(ctx context.Context, userIDs []int64, title, content string) error
	GetUserNotifications(ctx context.Context, userID int64, page, size int) *models.PagedResult
	GetUnreadCount(ctx context.Context, userID int64) int
	MarkAsRead(ctx context.Context, notificationID, userID int64) error
	DeleteNotification(ctx context.Context, notificationID, userID int64) error
}

type Server struct {
	backend Backend
	logger  *zap.Logger
}

func NewServer(backend Backend, logger *zap.Logger) *Server {
	return &Server{backend: backend, logger: logger}
}

func (s *Server) SendNotification(ctx context.Context, req *SendNotificationRequest) (*NotificationResponse, error) {
	if req.UserID <= 0 {
		return failed("user_id must be greater than 0"), nil
	}
	notificationType, err := models.ParseNotificationType(req.NotificationType)
	if err != nil {
		return failed("invalid notification type"), nil
	}
	if err := services.ValidateNotification(req.Title, req.Content); err != nil {
		return failed(err.Error()), nil
	}

	if err := s.backend.SendRealtimeNotification(ctx, req.UserID, notificationType, req.Title, req.Content, nil); err != nil {
		s.logger.Error("SendNotification failed", zap.Int64("user_id", req.UserID), zap.Error(err))
		return failed("Failed to send notification"), nil
	}
	return &NotificationResponse{Success: true}, nil
}

func (s *Server) GetNotifications(ctx context.Context, req *GetNotificationsRequest) (*GetNotificationsResponse, error) {
	result := s.backend.GetUserNotifications(ctx, req.UserID, int(req.Page), int(req.PageSize))

	resp := &GetNotificationsResponse{
		Notifications: make([]*NotificationInfo, 0, len(result.Items)),
		TotalCount:    int32(result.TotalCount),
	}
	for _, n := range result.Items {
		info := &NotificationInfo{
			ID:               n.ID,
			UserID:           n.UserID,
			Title:            n.Title,
			Content:          n.Content,
			NotificationType: n.Type.String(),
			IsRead:           n.IsRead,
			CreatedAt:        timestamppb.New(n.CreatedAt),
		}
		if n.ReadAt != nil {
			info.ReadAt = timestamppb.New(*n.ReadAt)
		}
		resp.Notifications = append(resp.Notifications, info)
	}
	return resp, nil
}

func (s *Server) MarkAsRead(ctx context.Context, req *MarkAsReadRequest) (*NotificationResponse, error) {
	if err := s.backend.MarkAsRead(ctx, req.NotificationID, req.UserID); err != nil {
		s.logger.Error("MarkAsRead failed",
			zap.Int64("notification_id", req.NotificationID),
			zap.Int64("user_id", req.UserID),
			zap.Error(err))
		return failed("Failed to mark notification as read"), nil
	}
	return &NotificationResponse{Success: true}, nil
}

func (s *Server) GetUnreadCount(ctx context.Context, req *GetUnreadCountRequest) (*UnreadCountResponse, error) {
	return &UnreadCountResponse{Count: int32(s.backend.GetUnreadCount(ctx, req.UserID))}, nil
}

func (s *Server) DeleteNotification(ctx context.Context, req *DeleteNotificationRequest) (*NotificationResponse, error) {
	err := s.backend.DeleteNotification(ctx, req.NotificationID, req.UserID)
	switch {
	case err == nil:
		return &NotificationResponse{Success: true}, nil
	case errors.Is(err, repositories.ErrNotFound):
		return failed("notification not found"), nil
	default:
		s.logger.Error("DeleteNotification failed",
			zap.Int64("notification_id", req.NotificationID),
			zap.Int64("user_id", req.UserID),
			zap.Error(err))
		return failed("Failed to delete notification"), nil
	}
}

func (s *Server) BroadcastMessage(ctx context.Context, req *BroadcastMessageRequest) (*BroadcastResponse, error) {
	if err := services.ValidateNotification(req.Title, req.Content); err != nil {
		return &BroadcastResponse{ErrorMessage: err.Error()}, nil
	}

	if err := s.backend.SendSystemNotification(ctx, req.TargetUserIDs, req.Title, req.Content); err != nil {
		if errors.Is(err, services.ErrInvalidTargets) {
			return &BroadcastResponse{ErrorMessage: err.Error()}, nil
		}
		s.logger.Error("BroadcastMessage failed", zap.Int("targets", len(req.TargetUserIDs)), zap.Error(err))
		return &BroadcastResponse{ErrorMessage: "Failed to send broadcast"}, nil
	}
	return &BroadcastResponse{Success: true, SentCount: int32(len(req.TargetUserIDs))}, nil
}

func failed(msg string) *NotificationResponse {
	return &NotificationResponse{Success: false, ErrorMessage: msg}
}
