package models

import "time"

type Presence struct {
	UserID      int64     `json:"user_id"`
	Status      string    `json:"status"`
	IsOnline    bool      `json:"is_online"`
	Connections int       `json:"connections"`
	CheckedAt   time.Time `json:"checked_at"`
}

type PresenceStatus string

const (
	StatusOnline  PresenceStatus = "online"
	StatusOffline PresenceStatus = "offline"
)

func NewPresence(userID int64, connections int) *Presence {
	status := StatusOffline
	if connections > 0 {
		status = StatusOnline
	}
	return &Presence{
		UserID:      userID,
		Status:      string(status),
		IsOnline:    connections > 0,
		Connections: connections,
		CheckedAt:   time.Now(),
	}
}
