package repositories

import (
	"context"
	"hash/fnv"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	shardCount           = 32
	DefaultConnectionTTL = 24 * time.Hour
)

type userEntry struct {
	conns     map[string]struct{}
	expiresAt time.Time
}

type userShard struct {
	mu    sync.RWMutex
	users map[int64]*userEntry
}

type connEntry struct {
	userID    int64
	expiresAt time.Time
}

type connShard struct {
	mu    sync.RWMutex
	conns map[string]connEntry
}

// MemoryConnectionRegistry keeps presence in process memory. The per-user
// index is sharded by user id and the reverse index by connection id; no
// method ever holds more than one shard lock at a time.
//
// Entries expire after ttl without writes. Expiry is the fallback for
// disconnects that were never observed; Cleanup reaps what has expired.
type MemoryConnectionRegistry struct {
	users  [shardCount]*userShard
	conns  [shardCount]*connShard
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger
}

func NewMemoryConnectionRegistry(ttl time.Duration, logger *zap.Logger) *MemoryConnectionRegistry {
	if ttl <= 0 {
		ttl = DefaultConnectionTTL
	}
	r := &MemoryConnectionRegistry{
		ttl:    ttl,
		now:    time.Now,
		logger: logger,
	}
	for i := 0; i < shardCount; i++ {
		r.users[i] = &userShard{users: make(map[int64]*userEntry)}
		r.conns[i] = &connShard{conns: make(map[string]connEntry)}
	}
	return r
}

func (r *MemoryConnectionRegistry) userShardFor(userID int64) *userShard {
	return r.users[uint64(userID)%shardCount]
}

func (r *MemoryConnectionRegistry) connShardFor(connectionID string) *connShard {
	h := fnv.New32a()
	h.Write([]byte(connectionID))
	return r.conns[h.Sum32()%shardCount]
}

func (r *MemoryConnectionRegistry) AddConnection(ctx context.Context, connectionID string, userID int64) {
	now := r.now()
	expiresAt := now.Add(r.ttl)

	cs := r.connShardFor(connectionID)
	cs.mu.Lock()
	prev, existed := cs.conns[connectionID]
	cs.conns[connectionID] = connEntry{userID: userID, expiresAt: expiresAt}
	cs.mu.Unlock()

	// A connection id re-registered for another user moves to that user.
	if existed && prev.userID != userID {
		r.removeFromUser(prev.userID, connectionID, now)
	}

	us := r.userShardFor(userID)
	us.mu.Lock()
	entry, ok := us.users[userID]
	if !ok || !entry.expiresAt.After(now) {
		entry = &userEntry{conns: make(map[string]struct{})}
		us.users[userID] = entry
	}
	entry.conns[connectionID] = struct{}{}
	entry.expiresAt = expiresAt
	total := len(entry.conns)
	us.mu.Unlock()

	r.logger.Debug("Added connection",
		zap.String("connection_id", connectionID),
		zap.Int64("user_id", userID),
		zap.Int("user_connections", total))
}

func (r *MemoryConnectionRegistry) RemoveConnection(ctx context.Context, connectionID string) {
	cs := r.connShardFor(connectionID)
	cs.mu.Lock()
	entry, ok := cs.conns[connectionID]
	if ok {
		delete(cs.conns, connectionID)
	}
	cs.mu.Unlock()

	if !ok {
		return
	}

	r.removeFromUser(entry.userID, connectionID, r.now())
	r.logger.Debug("Removed connection",
		zap.String("connection_id", connectionID),
		zap.Int64("user_id", entry.userID))
}

func (r *MemoryConnectionRegistry) removeFromUser(userID int64, connectionID string, now time.Time) {
	us := r.userShardFor(userID)
	us.mu.Lock()
	defer us.mu.Unlock()

	entry, ok := us.users[userID]
	if !ok {
		return
	}
	delete(entry.conns, connectionID)
	if len(entry.conns) == 0 {
		delete(us.users, userID)
		return
	}
	entry.expiresAt = now.Add(r.ttl)
}

func (r *MemoryConnectionRegistry) GetConnections(ctx context.Context, userID int64) []string {
	now := r.now()
	us := r.userShardFor(userID)
	us.mu.RLock()
	defer us.mu.RUnlock()

	entry, ok := us.users[userID]
	if !ok || !entry.expiresAt.After(now) {
		return []string{}
	}
	ids := make([]string, 0, len(entry.conns))
	for id := range entry.conns {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r *MemoryConnectionRegistry) GetConnectionsForUsers(ctx context.Context, userIDs []int64) []string {
	seen := make(map[string]struct{})
	ids := []string{}
	for _, userID := range userIDs {
		for _, id := range r.GetConnections(ctx, userID) {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}

func (r *MemoryConnectionRegistry) IsOnline(ctx context.Context, userID int64) bool {
	now := r.now()
	us := r.userShardFor(userID)
	us.mu.RLock()
	defer us.mu.RUnlock()

	entry, ok := us.users[userID]
	return ok && entry.expiresAt.After(now) && len(entry.conns) > 0
}

// Cleanup drops expired connection and user entries from both indexes and
// returns how many connections were reaped.
func (r *MemoryConnectionRegistry) Cleanup(ctx context.Context) (int, error) {
	now := r.now()
	reaped := 0

	type stale struct {
		connectionID string
		userID       int64
	}

	var expiredConns []stale
	for _, cs := range r.conns {
		cs.mu.Lock()
		for id, entry := range cs.conns {
			if !entry.expiresAt.After(now) {
				delete(cs.conns, id)
				expiredConns = append(expiredConns, stale{id, entry.userID})
			}
		}
		cs.mu.Unlock()
	}
	for _, s := range expiredConns {
		r.removeFromUser(s.userID, s.connectionID, now)
		reaped++
	}

	var expiredUsers []stale
	for _, us := range r.users {
		us.mu.Lock()
		for userID, entry := range us.users {
			if entry.expiresAt.After(now) {
				continue
			}
			for id := range entry.conns {
				expiredUsers = append(expiredUsers, stale{id, userID})
			}
			delete(us.users, userID)
		}
		us.mu.Unlock()
	}
	for _, s := range expiredUsers {
		cs := r.connShardFor(s.connectionID)
		cs.mu.Lock()
		if entry, ok := cs.conns[s.connectionID]; ok && entry.userID == s.userID {
			delete(cs.conns, s.connectionID)
		}
		cs.mu.Unlock()
		reaped++
	}

	if err := ctx.Err(); err != nil {
		return reaped, err
	}
	return reaped, nil
}

// Count returns the number of tracked connections.
func (r *MemoryConnectionRegistry) Count() int {
	total := 0
	for _, cs := range r.conns {
		cs.mu.RLock()
		total += len(cs.conns)
		cs.mu.RUnlock()
	}
	return total
}
