package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prudhvinik1/chatnotify/internal/models"
	"github.com/prudhvinik1/chatnotify/internal/services"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// NotificationDispatcher is the slice of the notification service the HTTP
// surface needs.
type NotificationDispatcher interface {
	SendRealtimeNotification(ctx context.Context, userID int64, notificationType models.NotificationType, title, content string, data any) error
	SendSystemNotification(ctx context.Context, userIDs []int64, title, content string) error
	GetUserNotifications(ctx context.Context, userID int64, page, size int) *models.PagedResult
	GetUnreadCount(ctx context.Context, userID int64) int
	MarkAsRead(ctx context.Context, notificationID, userID int64) error
	MarkAllAsRead(ctx context.Context, userID int64) error
	GetPresence(ctx context.Context, userID int64) *models.Presence
}

type NotificationHandler struct {
	service NotificationDispatcher
	logger  *zap.Logger
}

func NewNotificationHandler(service NotificationDispatcher, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{service: service, logger: logger}
}

type SendNotificationRequest struct {
	UserID  int64           `json:"user_id"`
	Type    string          `json:"type"`
	Title   string          `json:"title"`
	Content string          `json:"content"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type SystemNotificationRequest struct {
	UserIDs []int64 `json:"user_ids"`
	Title   string  `json:"title"`
	Content string  `json:"content"`
}

type TestNotificationRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

func (h *NotificationHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	page, err := queryInt(r, "page", 1)
	if err != nil || page < 1 {
		Error(w, http.StatusBadRequest, "page must be a positive integer")
		return
	}
	size, err := queryInt(r, "size", services.DefaultPageSize)
	if err != nil || size < 1 || size > services.MaxPageSize {
		Error(w, http.StatusBadRequest, "size must be between 1 and 100")
		return
	}

	JSON(w, http.StatusOK, h.service.GetUserNotifications(r.Context(), userID, page, size))
}

func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())
	JSON(w, http.StatusOK, models.UnreadCount{Count: h.service.GetUnreadCount(r.Context(), userID)})
}

func (h *NotificationHandler) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		Error(w, http.StatusBadRequest, "invalid notification id")
		return
	}

	if err := h.service.MarkAsRead(r.Context(), id, userID); err != nil {
		Error(w, http.StatusBadRequest, "failed to mark notification as read")
		return
	}
	Message(w, http.StatusOK, "notification marked as read")
}

func (h *NotificationHandler) MarkAllAsRead(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	if err := h.service.MarkAllAsRead(r.Context(), userID); err != nil {
		Error(w, http.StatusBadRequest, "failed to mark notifications as read")
		return
	}
	Message(w, http.StatusOK, "all notifications marked as read")
}

func (h *NotificationHandler) OnlineStatus(w http.ResponseWriter, r *http.Request) {
	target, err := strconv.ParseInt(chi.URLParam(r, "userId"), 10, 64)
	if err != nil || target <= 0 {
		Error(w, http.StatusBadRequest, "invalid user id")
		return
	}

	JSON(w, http.StatusOK, h.service.GetPresence(r.Context(), target))
}

// SendTest pushes a test notification to the caller.
func (h *NotificationHandler) SendTest(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	req := TestNotificationRequest{Title: "Test notification", Content: "This is a test notification"}
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			Error(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	if err := services.ValidateNotification(req.Title, req.Content); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	data := map[string]interface{}{"sent_at": time.Now().UTC()}
	if err := h.service.SendRealtimeNotification(r.Context(), userID, models.TypeTest, req.Title, req.Content, data); err != nil {
		Error(w, http.StatusBadRequest, "failed to send test notification")
		return
	}
	Message(w, http.StatusOK, "test notification sent")
}

// Send is the service-to-service entry point for a single notification.
func (h *NotificationHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req SendNotificationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.UserID <= 0 {
		Error(w, http.StatusBadRequest, "user_id must be greater than 0")
		return
	}
	notificationType, err := models.ParseNotificationType(req.Type)
	if err != nil {
		Error(w, http.StatusBadRequest, "invalid notification type")
		return
	}
	if err := services.ValidateNotification(req.Title, req.Content); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	var data any
	if len(req.Data) > 0 && string(req.Data) != "null" {
		data = req.Data
	}

	if err := h.service.SendRealtimeNotification(r.Context(), req.UserID, notificationType, req.Title, req.Content, data); err != nil {
		Error(w, http.StatusBadRequest, "failed to send notification")
		return
	}
	Message(w, http.StatusOK, "notification sent")
}

func (h *NotificationHandler) SendSystem(w http.ResponseWriter, r *http.Request) {
	var req SystemNotificationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := services.ValidateBroadcastTargets(req.UserIDs); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := services.ValidateNotification(req.Title, req.Content); err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.service.SendSystemNotification(r.Context(), req.UserIDs, req.Title, req.Content); err != nil {
		if errors.Is(err, services.ErrInvalidTargets) {
			Error(w, http.StatusBadRequest, err.Error())
			return
		}
		Error(w, http.StatusBadRequest, "failed to send system notification")
		return
	}
	Message(w, http.StatusOK, "system notification sent")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
