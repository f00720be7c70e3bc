package realtime

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prudhvinik1/chatnotify/internal/services"
	"go.uber.org/zap"
)

type TokenVerifier interface {
	VerifyToken(token string) (*services.TokenClaims, error)
}

// Handler upgrades authenticated requests and hands the connection to the hub.
type Handler struct {
	hub        *Hub
	auth       TokenVerifier
	dispatcher Dispatcher
	upgrader   websocket.Upgrader
	logger     *zap.Logger

	allowAll bool
	origins  map[string]struct{}
}

func NewHandler(hub *Hub, auth TokenVerifier, dispatcher Dispatcher, allowedOrigins []string, logger *zap.Logger) *Handler {
	h := &Handler{
		hub:        hub,
		auth:       auth,
		dispatcher: dispatcher,
		logger:     logger,
		origins:    make(map[string]struct{}),
	}
	for _, origin := range allowedOrigins {
		origin = strings.TrimSpace(origin)
		if origin == "*" {
			h.allowAll = true
			continue
		}
		if normalized, ok := normalizeOrigin(origin); ok {
			h.origins[normalized] = struct{}{}
		} else if origin != "" {
			logger.Warn("Ignoring invalid allowed origin", zap.String("origin", origin))
		}
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	claims, err := h.auth.VerifyToken(tokenFromRequest(r))
	if err != nil {
		h.logger.Debug("Rejected realtime connection", zap.String("remote_addr", r.RemoteAddr), zap.Error(err))
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		h.logger.Warn("WebSocket upgrade failed", zap.Int64("user_id", claims.UserID), zap.Error(err))
		return
	}

	client := NewClient(uuid.NewString(), claims.UserID, conn, h.hub, h.dispatcher, h.logger)
	if err := h.hub.Register(client); err != nil {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		conn.Close()
	}
}

// tokenFromRequest reads the access_token query parameter, which browsers
// can set on a WebSocket handshake, and falls back to a bearer header.
func tokenFromRequest(r *http.Request) string {
	if token := r.URL.Query().Get("access_token"); token != "" {
		return token
	}
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowAll {
		return true
	}
	normalized, ok := normalizeOrigin(origin)
	if !ok {
		return false
	}
	if _, allowed := h.origins[normalized]; allowed {
		return true
	}
	h.logger.Warn("Blocked WebSocket connection from disallowed origin", zap.String("origin", origin))
	return false
}

func normalizeOrigin(origin string) (string, bool) {
	parsed, err := url.Parse(origin)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}
	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host), true
}
