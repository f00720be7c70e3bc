package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/prudhvinik1/chatnotify/internal/models"
	"github.com/prudhvinik1/chatnotify/internal/repositories"
)

// memoryHistory is an in-memory NotificationRepository.
type memoryHistory struct {
	mu      sync.Mutex
	nextID  int64
	records []*models.NotificationRecord
	failAll error
	failFor map[int64]error
}

func newMemoryHistory() *memoryHistory {
	return &memoryHistory{nextID: 1}
}

func (h *memoryHistory) Create(ctx context.Context, record *models.NotificationRecord) (int64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if h.failAll != nil {
		return 0, h.failAll
	}
	if err := h.failFor[record.UserID]; err != nil {
		return 0, err
	}
	record.ID = h.nextID
	record.CreatedAt = time.Now().Add(time.Duration(h.nextID) * time.Millisecond)
	record.IsRead = false
	h.nextID++
	copied := *record
	h.records = append(h.records, &copied)
	return record.ID, nil
}

func (h *memoryHistory) GetByID(ctx context.Context, id int64) (*models.NotificationRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, r := range h.records {
		if r.ID == id {
			copied := *r
			return &copied, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (h *memoryHistory) GetByUser(ctx context.Context, userID int64, page, size int) ([]*models.NotificationRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.failAll != nil {
		return nil, h.failAll
	}
	var mine []*models.NotificationRecord
	for _, r := range h.records {
		if r.UserID == userID {
			copied := *r
			mine = append(mine, &copied)
		}
	}
	sort.Slice(mine, func(i, j int) bool { return mine[i].CreatedAt.After(mine[j].CreatedAt) })
	start := (page - 1) * size
	if start >= len(mine) {
		return []*models.NotificationRecord{}, nil
	}
	end := start + size
	if end > len(mine) {
		end = len(mine)
	}
	return mine[start:end], nil
}

func (h *memoryHistory) CountByUser(ctx context.Context, userID int64) (int, error) {
	return len(h.forUser(userID)), nil
}

func (h *memoryHistory) GetUnreadCount(ctx context.Context, userID int64) (int, error) {
	n := 0
	for _, r := range h.forUser(userID) {
		if !r.IsRead {
			n++
		}
	}
	return n, nil
}

func (h *memoryHistory) MarkRead(ctx context.Context, id, userID int64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, r := range h.records {
		if r.ID == id && r.UserID == userID && !r.IsRead {
			now := time.Now()
			r.IsRead = true
			r.ReadAt = &now
		}
	}
	return nil
}

func (h *memoryHistory) MarkAllRead(ctx context.Context, userID int64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, r := range h.records {
		if r.UserID == userID && !r.IsRead {
			now := time.Now()
			r.IsRead = true
			r.ReadAt = &now
		}
	}
	return nil
}

func (h *memoryHistory) Delete(ctx context.Context, id, userID int64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, r := range h.records {
		if r.ID == id && r.UserID == userID {
			h.records = append(h.records[:i], h.records[i+1:]...)
			return nil
		}
	}
	return repositories.ErrNotFound
}

func (h *memoryHistory) forUser(userID int64) []*models.NotificationRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	var mine []*models.NotificationRecord
	for _, r := range h.records {
		if r.UserID == userID {
			mine = append(mine, r)
		}
	}
	return mine
}

type staticUsers map[int64]*models.UserProfile

func (u staticUsers) GetUser(ctx context.Context, id int64) (*models.UserProfile, error) {
	if user, ok := u[id]; ok {
		return user, nil
	}
	return nil, repositories.ErrNotFound
}

type failingUsers struct{}

func (failingUsers) GetUser(ctx context.Context, id int64) (*models.UserProfile, error) {
	return nil, errors.New("connection refused")
}

type push struct {
	Groups  []string
	Event   string
	Payload any
}

type recordingPusher struct {
	mu     sync.Mutex
	pushes []push
}

func (p *recordingPusher) PushToGroups(groups []string, event string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pushes = append(p.pushes, push{Groups: append([]string(nil), groups...), Event: event, Payload: payload})
}

func (p *recordingPusher) Pushes() []push {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]push(nil), p.pushes...)
}
