package services

import (
	"context"
	"sync"
	"time"

	"github.com/prudhvinik1/chatnotify/internal/repositories"
	"go.uber.org/zap"
)

const DefaultCleanupInterval = 5 * time.Minute

// CleanupService periodically reaps stale connection registry entries.
type CleanupService struct {
	registry repositories.ConnectionRegistry
	interval time.Duration
	logger   *zap.Logger
	stopChan chan struct{}
	stopOnce sync.Once
}

func NewCleanupService(registry repositories.ConnectionRegistry, interval time.Duration, logger *zap.Logger) *CleanupService {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	return &CleanupService{
		registry: registry,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start blocks until ctx is cancelled or Stop is called.
func (c *CleanupService) Start(ctx context.Context) {
	c.logger.Info("Starting connection cleanup service", zap.Duration("interval", c.interval))

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.RunOnce(ctx)

		case <-c.stopChan:
			c.logger.Info("Stopping connection cleanup service")
			return

		case <-ctx.Done():
			c.logger.Info("Context cancelled, stopping connection cleanup service")
			return
		}
	}
}

// RunOnce performs a single sweep. Errors are logged, never returned.
func (c *CleanupService) RunOnce(ctx context.Context) {
	reaped, err := c.registry.Cleanup(ctx)
	if reaped > 0 {
		registryCleanupReaped.Add(float64(reaped))
	}
	if err != nil {
		c.logger.Error("Connection cleanup failed", zap.Int("reaped", reaped), zap.Error(err))
		return
	}
	c.logger.Debug("Connection cleanup completed", zap.Int("reaped", reaped))
}

func (c *CleanupService) Stop() {
	c.stopOnce.Do(func() { close(c.stopChan) })
}
