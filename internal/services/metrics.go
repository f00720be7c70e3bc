package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Delivery paths recorded per dispatched notification.
const (
	pathPush    = "push"
	pathStored  = "stored"
	pathDropped = "dropped"
)

var (
	notificationsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_dispatched_total",
			Help: "Notifications dispatched, by type and delivery path",
		},
		[]string{"type", "path"},
	)

	broadcastTargets = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "notifications_broadcast_targets",
			Help:    "Number of target users per system broadcast",
			Buckets: []float64{1, 10, 50, 100, 250, 500, 1000},
		},
	)

	registryCleanupReaped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "connection_registry_reaped_total",
			Help: "Stale connections removed by the cleanup task",
		},
	)
)
