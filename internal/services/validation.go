package services

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	MaxBroadcastTargets = 1000
	MaxTitleLength      = 200
	MaxContentLength    = 1000
)

var (
	ErrInvalidTargets      = errors.New("invalid broadcast targets")
	ErrInvalidNotification = errors.New("invalid notification")
)

// ValidateNotification checks the title and content of an inbound request.
func ValidateNotification(title, content string) error {
	switch {
	case strings.TrimSpace(title) == "":
		return fmt.Errorf("%w: title is required", ErrInvalidNotification)
	case utf8.RuneCountInString(title) > MaxTitleLength:
		return fmt.Errorf("%w: title cannot exceed %d characters", ErrInvalidNotification, MaxTitleLength)
	case strings.TrimSpace(content) == "":
		return fmt.Errorf("%w: content is required", ErrInvalidNotification)
	case utf8.RuneCountInString(content) > MaxContentLength:
		return fmt.Errorf("%w: content cannot exceed %d characters", ErrInvalidNotification, MaxContentLength)
	}
	return nil
}

// ValidateBroadcastTargets enforces 1..1000 unique positive user ids.
func ValidateBroadcastTargets(userIDs []int64) error {
	if len(userIDs) == 0 {
		return fmt.Errorf("%w: at least one user id is required", ErrInvalidTargets)
	}
	if len(userIDs) > MaxBroadcastTargets {
		return fmt.Errorf("%w: at most %d user ids are allowed", ErrInvalidTargets, MaxBroadcastTargets)
	}
	seen := make(map[int64]struct{}, len(userIDs))
	for _, id := range userIDs {
		if id <= 0 {
			return fmt.Errorf("%w: user ids must be positive", ErrInvalidTargets)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: duplicate user id %d", ErrInvalidTargets, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}
