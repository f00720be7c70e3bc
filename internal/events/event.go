package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Chat domain event types published by the chat service.
const (
	TypeMessageCreated  = "message.created"
	TypeFriendRequested = "friend.requested"
	TypeFriendAccepted  = "friend.accepted"
	TypeUserUpdated     = "user.updated"
)

var ErrMalformedEvent = errors.New("malformed chat event")

// ChatEvent is the envelope on the chat.events topic. SenderID is the user
// who acted; ReceiverID is the user to notify. user.updated carries only
// UserID.
type ChatEvent struct {
	Type       string    `json:"type"`
	UserID     int64     `json:"user_id,omitempty"`
	SenderID   int64     `json:"sender_id"`
	ReceiverID int64     `json:"receiver_id"`
	MessageID  int64     `json:"message_id,omitempty"`
	Content    string    `json:"content,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func ParseChatEvent(data []byte) (*ChatEvent, error) {
	var event ChatEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	switch event.Type {
	case TypeUserUpdated:
		if event.UserID <= 0 {
			return nil, fmt.Errorf("%w: user_id is required", ErrMalformedEvent)
		}
		return &event, nil
	case TypeMessageCreated, TypeFriendRequested, TypeFriendAccepted:
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrMalformedEvent, event.Type)
	}
	if event.SenderID <= 0 || event.ReceiverID <= 0 {
		return nil, fmt.Errorf("%w: sender_id and receiver_id are required", ErrMalformedEvent)
	}
	if event.Type == TypeMessageCreated && event.Content == "" {
		return nil, fmt.Errorf("%w: message content is required", ErrMalformedEvent)
	}
	return &event, nil
}
