package events

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var eventsConsumed = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "chat_events_consumed_total",
	Help: "Chat domain events consumed, by type and outcome.",
}, []string{"type", "result"})
