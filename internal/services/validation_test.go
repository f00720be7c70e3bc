package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateNotification(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		content string
		wantErr bool
	}{
		{"valid", "Hi", "body", false},
		{"blank title", "  ", "body", true},
		{"blank content", "Hi", "", true},
		{"title at limit", strings.Repeat("t", MaxTitleLength), "body", false},
		{"title too long", strings.Repeat("t", MaxTitleLength+1), "body", true},
		{"content too long", "Hi", strings.Repeat("c", MaxContentLength+1), true},
		{"multibyte content at limit", "Hi", strings.Repeat("é", MaxContentLength), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNotification(tt.title, tt.content)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidNotification)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateBroadcastTargets(t *testing.T) {
	assert.NoError(t, ValidateBroadcastTargets([]int64{1, 2, 3}))
	assert.ErrorIs(t, ValidateBroadcastTargets(nil), ErrInvalidTargets)
	assert.ErrorIs(t, ValidateBroadcastTargets([]int64{1, 0}), ErrInvalidTargets)
	assert.ErrorIs(t, ValidateBroadcastTargets([]int64{4, 4}), ErrInvalidTargets)
}
