package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricMessagesRouted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "botwatch",
		Name:      "messages_routed_total",
		Help:      "Inbound frames dispatched, by message type.",
	}, []string{"type"})

	metricMalformedFrames = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "botwatch",
		Name:      "malformed_frames_total",
		Help:      "Inbound frames dropped because they could not be decoded.",
	})

	metricUnhandledMessages = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "botwatch",
		Name:      "unhandled_messages_total",
		Help:      "Inbound frames with a type no handler claims.",
	})

	metricAlertsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "botwatch",
		Name:      "alerts_ingested_total",
		Help:      "Alerts accepted into the alert center, by priority.",
	}, []string{"priority"})

	metricAlertsCoalesced = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "botwatch",
		Name:      "alerts_coalesced_total",
		Help:      "Duplicate alerts merged into a recent identical one.",
	})

	metricOutboxDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "botwatch",
		Name:      "outbox_depth",
		Help:      "Commands currently queued for the bot.",
	})

	metricOutboxDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "botwatch",
		Name:      "outbox_dropped_total",
		Help:      "Queued commands discarded because the outbox was full.",
	})

	metricConnectionState = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "botwatch",
		Name:      "stream_connected",
		Help:      "1 while the bot stream is connected, 0 otherwise.",
	})

	metricDisconnects = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "botwatch",
		Name:      "stream_disconnects_total",
		Help:      "Times the bot stream connection dropped.",
	})
)
