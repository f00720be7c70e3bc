package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/prudhvinik1/chatnotify/internal/models"
	"github.com/prudhvinik1/chatnotify/internal/repositories"
	"go.uber.org/zap"
)

const registryTimeout = 5 * time.Second

var ErrHubClosed = errors.New("hub is shut down")

// Hub owns the live clients of this process and the groups they belong to.
// Presence is mirrored into the connection registry so that other components
// (and other instances, with a shared registry) can see who is online.
type Hub struct {
	registry repositories.ConnectionRegistry
	logger   *zap.Logger

	mu      sync.RWMutex
	clients map[string]*Client
	groups  map[string]map[string]*Client
	closed  bool

	wg sync.WaitGroup
}

func NewHub(registry repositories.ConnectionRegistry, logger *zap.Logger) *Hub {
	return &Hub{
		registry: registry,
		logger:   logger,
		clients:  make(map[string]*Client),
		groups:   make(map[string]map[string]*Client),
	}
}

// Register moves a client to Connected: it joins the user's group, is
// recorded in the registry and starts its pumps.
func (h *Hub) Register(c *Client) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return ErrHubClosed
	}
	h.clients[c.id] = c
	h.joinLocked(c, models.UserGroup(c.userID))
	total := len(h.clients)
	h.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), registryTimeout)
	h.registry.AddConnection(ctx, c.id, c.userID)
	cancel()

	c.setState(models.StateConnected)
	activeConnections.Inc()
	h.logger.Info("Client connected",
		zap.String("connection_id", c.id),
		zap.Int64("user_id", c.userID),
		zap.Int("total_clients", total))

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		c.writePump()
	}()
	go func() {
		defer h.wg.Done()
		c.readPump()
	}()
	return nil
}

// unregister moves a client to Disconnected. It runs once per client and
// always completes; registry failures are logged.
func (h *Hub) unregister(c *Client) {
	c.unregisterOnce.Do(func() {
		h.mu.Lock()
		if _, ok := h.clients[c.id]; ok {
			delete(h.clients, c.id)
			for group := range c.groups {
				h.leaveLocked(c, group)
			}
			close(c.send)
			activeConnections.Dec()
		}
		total := len(h.clients)
		h.mu.Unlock()

		c.setState(models.StateDisconnected)
		h.removeFromRegistry(c)

		h.logger.Info("Client disconnected",
			zap.String("connection_id", c.id),
			zap.Int64("user_id", c.userID),
			zap.Duration("connected_for", time.Since(c.connectedAt)),
			zap.Int("total_clients", total))
	})
}

func (h *Hub) removeFromRegistry(c *Client) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("Recovered from panic while removing connection",
				zap.String("connection_id", c.id),
				zap.Any("panic", r))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), registryTimeout)
	defer cancel()
	h.registry.RemoveConnection(ctx, c.id)
}

// refresh re-registers a live connection so its registry TTL keeps sliding.
// A client that has been unregistered is never written back.
func (h *Hub) refresh(c *Client) {
	if !h.isLive(c) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), registryTimeout)
	defer cancel()
	h.registry.AddConnection(ctx, c.id, c.userID)

	// unregister may have run while AddConnection was in flight
	if !h.isLive(c) {
		h.registry.RemoveConnection(ctx, c.id)
	}
}

func (h *Hub) isLive(c *Client) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.clients[c.id] == c && c.State() == models.StateConnected
}

func (h *Hub) JoinGroup(c *Client, group string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.id]; ok {
		h.joinLocked(c, group)
	}
}

func (h *Hub) LeaveGroup(c *Client, group string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(c, group)
}

func (h *Hub) joinLocked(c *Client, group string) {
	members, ok := h.groups[group]
	if !ok {
		members = make(map[string]*Client)
		h.groups[group] = members
	}
	members[c.id] = c
	c.groups[group] = struct{}{}
}

func (h *Hub) leaveLocked(c *Client, group string) {
	delete(c.groups, group)
	members, ok := h.groups[group]
	if !ok {
		return
	}
	delete(members, c.id)
	if len(members) == 0 {
		delete(h.groups, group)
	}
}

// PushToGroups is a single multicast: the frame is encoded once and queued
// once for every client in the union of groups. Clients whose buffer is full
// are disconnected.
func (h *Hub) PushToGroups(groups []string, event string, payload any) {
	message, err := json.Marshal(Frame{Event: event, Data: payload})
	if err != nil {
		h.logger.Error("Failed to encode frame", zap.String("event", event), zap.Error(err))
		return
	}

	var slow []*Client
	delivered := 0

	h.mu.RLock()
	seen := make(map[string]struct{})
	for _, group := range groups {
		for id, c := range h.groups[group] {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			select {
			case c.send <- message:
				delivered++
			default:
				slow = append(slow, c)
			}
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		framesDropped.Inc()
		h.logger.Warn("Client send buffer full, disconnecting",
			zap.String("connection_id", c.id),
			zap.Int64("user_id", c.userID))
		c.close()
	}

	h.logger.Debug("Pushed frame",
		zap.String("event", event),
		zap.Strings("groups", groups),
		zap.Int("delivered", delivered))
}

// sendTo queues a frame for one client only.
func (h *Hub) sendTo(c *Client, event string, payload any) {
	message, err := json.Marshal(Frame{Event: event, Data: payload})
	if err != nil {
		h.logger.Error("Failed to encode frame", zap.String("event", event), zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c.id]; !ok {
		return
	}
	select {
	case c.send <- message:
	default:
		framesDropped.Inc()
	}
}

func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// GroupSize returns the number of local connections in a group.
func (h *Hub) GroupSize(group string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[group])
}

// Shutdown closes every client and waits for their pumps to finish.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.mu.Lock()
	h.closed = true
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	h.logger.Info("Shutting down realtime hub", zap.Int("clients", len(clients)))
	for _, c := range clients {
		c.close()
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.logger.Info("Realtime hub shutdown completed")
		return nil
	case <-time.After(timeout):
		h.logger.Warn("Realtime hub shutdown timeout reached")
		return context.DeadlineExceeded
	}
}
