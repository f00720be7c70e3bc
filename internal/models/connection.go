package models

import "fmt"

type ConnectionState int

const (
	StateConnecting ConnectionState = iota
	StateConnected
	StateDisconnected
)

func (s ConnectionState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

const userGroupPrefix = "User_"

// UserGroup is the push group holding every connection of one user.
func UserGroup(userID int64) string {
	return fmt.Sprintf("%s%d", userGroupPrefix, userID)
}

// IsUserGroup reports whether name is reserved for a per-user group.
func IsUserGroup(name string) bool {
	return len(name) >= len(userGroupPrefix) && name[:len(userGroupPrefix)] == userGroupPrefix
}
