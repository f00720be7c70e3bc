package models

// Server-to-client event names carried in realtime frames.
const (
	EventReceiveNotification = "ReceiveNotification"
	EventUnreadCountUpdated  = "UnreadCountUpdated"
	EventError               = "Error"
)

type UnreadCount struct {
	Count int `json:"count"`
}

// PrivateMessageData is attached to "message" notifications sent from one user to another.
type PrivateMessageData struct {
	SenderID   int64  `json:"sender_id"`
	SenderName string `json:"sender_name,omitempty"`
	Message    string `json:"message"`
}
