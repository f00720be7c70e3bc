package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prudhvinik1/chatnotify/internal/repositories"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type countingRegistry struct {
	repositories.ConnectionRegistry
	calls atomic.Int32
	err   error
}

func (r *countingRegistry) Cleanup(ctx context.Context) (int, error) {
	r.calls.Add(1)
	return 1, r.err
}

func TestCleanupService_RunsUntilCancelled(t *testing.T) {
	registry := &countingRegistry{err: errors.New("store unavailable")}
	svc := NewCleanupService(registry, 10*time.Millisecond, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		svc.Start(ctx)
		close(done)
	}()

	// Errors do not stop the loop
	assert.Eventually(t, func() bool { return registry.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup service did not stop on cancellation")
	}
}

func TestCleanupService_Stop(t *testing.T) {
	registry := &countingRegistry{}
	svc := NewCleanupService(registry, time.Hour, zap.NewNop())

	done := make(chan struct{})
	go func() {
		svc.Start(context.Background())
		close(done)
	}()

	svc.Stop()
	svc.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup service did not stop")
	}
	assert.Zero(t, registry.calls.Load())
}

func TestCleanupService_ReapsExpiredConnections(t *testing.T) {
	registry := repositories.NewMemoryConnectionRegistry(time.Millisecond, zap.NewNop())
	ctx := context.Background()
	registry.AddConnection(ctx, "ghost", 5)
	time.Sleep(5 * time.Millisecond)

	NewCleanupService(registry, time.Minute, zap.NewNop()).RunOnce(ctx)

	assert.Zero(t, registry.Count())
}
