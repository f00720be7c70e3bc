package models

import (
	"errors"
	"time"
)

var ErrUnknownNotificationType = errors.New("unknown notification type")

type NotificationType string

const (
	TypeMessage        NotificationType = "message"
	TypeFriendRequest  NotificationType = "friend_request"
	TypeFriendAccepted NotificationType = "friend_accepted"
	TypeSystem         NotificationType = "system"
	TypeTest           NotificationType = "test"
)

// persistOnDispatch lists the types that keep a history row when dispatched.
// Every other type is push-only and is lost if the user is offline.
var persistOnDispatch = map[NotificationType]bool{
	TypeMessage:        true,
	TypeFriendRequest:  false,
	TypeFriendAccepted: false,
	TypeSystem:         true,
	TypeTest:           false,
}

func ParseNotificationType(s string) (NotificationType, error) {
	t := NotificationType(s)
	if _, ok := persistOnDispatch[t]; !ok {
		return "", ErrUnknownNotificationType
	}
	return t, nil
}

func (t NotificationType) Valid() bool {
	_, ok := persistOnDispatch[t]
	return ok
}

func (t NotificationType) PersistOnDispatch() bool {
	return persistOnDispatch[t]
}

func (t NotificationType) String() string {
	return string(t)
}

type NotificationRecord struct {
	ID        int64            `json:"id"`
	UserID    int64            `json:"user_id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Content   string           `json:"content"`
	IsRead    bool             `json:"is_read"`
	CreatedAt time.Time        `json:"created_at"`
	ReadAt    *time.Time       `json:"read_at,omitempty"`
}

// RealtimeNotification is the payload of a ReceiveNotification push.
type RealtimeNotification struct {
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Content   string           `json:"content"`
	Data      any              `json:"data,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

type PagedResult struct {
	Items      []*NotificationRecord `json:"items"`
	Page       int                   `json:"page"`
	Size       int                   `json:"size"`
	TotalCount int                   `json:"total_count"`
	TotalPages int                   `json:"total_pages"`
}

func NewPagedResult(items []*NotificationRecord, page, size, total int) *PagedResult {
	if items == nil {
		items = []*NotificationRecord{}
	}
	pages := 0
	if size > 0 {
		pages = (total + size - 1) / size
	}
	return &PagedResult{
		Items:      items,
		Page:       page,
		Size:       size,
		TotalCount: total,
		TotalPages: pages,
	}
}
