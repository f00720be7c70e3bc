package rpc

import "google.golang.org/protobuf/types/known/timestamppb"

type SendNotificationRequest struct {
	UserID           int64  `json:"user_id"`
	Title            string `json:"title"`
	Content          string `json:"content"`
	NotificationType string `json:"notification_type"`
}

// NotificationResponse carries failures in-band; transport errors are
// reserved for malformed calls.
type NotificationResponse struct {
	Success      bool   `json:"success"`
	ErrorMessage string `json:"error_message,omitempty"`
}

type GetNotificationsRequest struct {
	UserID   int64 `json:"user_id"`
	Page     int32 `json:"page"`
	PageSize int32 `json:"page_size"`
}

type NotificationInfo struct {
	ID               int64                  `json:"id"`
	UserID           int64                  `json:"user_id"`
	Title            string                 `json:"title"`
	Content          string                 `json:"content"`
	NotificationType string                 `json:"notification_type"`
	IsRead           bool                   `json:"is_read"`
	CreatedAt        *timestamppb.Timestamp `json:"created_at"`
	ReadAt           *timestamppb.Timestamp `json:"read_at,omitempty"`
}

type GetNotificationsResponse struct {
	Notifications []*NotificationInfo `json:"notifications"`
	TotalCount    int32               `json:"total_count"`
}

type MarkAsReadRequest struct {
	NotificationID int64 `json:"notification_id"`
	UserID         int64 `json:"user_id"`
}

type GetUnreadCountRequest struct {
	UserID int64 `json:"user_id"`
}

type UnreadCountResponse struct {
	Count int32 `json:"count"`
}

type DeleteNotificationRequest struct {
	NotificationID int64 `json:"notification_id"`
	UserID         int64 `json:"user_id"`
}

type BroadcastMessageRequest struct {
	TargetUserIDs []int64 `json:"target_user_ids"`
	Title         string  `json:"title"`
	Content       string  `json:"content"`
}

type BroadcastResponse struct {
	Success      bool   `json:"success"`
	SentCount    int32  `json:"sent_count"`
	ErrorMessage string `json:"error_message,omitempty"`
}
