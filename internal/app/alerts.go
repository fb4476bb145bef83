package app

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"botwatch/clients/notifier"
	"botwatch/config"
)

type dedupKey struct {
	typ     string
	message string
}

// AlertCenter keeps a bounded history of alerts, tracks the unread count,
// coalesces duplicates, and fans accepted alerts out to the notifier.
type AlertCenter struct {
	logger   *zap.Logger
	notifier notifier.Notifier
	window   time.Duration
	now      func() time.Time

	mu       sync.Mutex
	alerts   *ring[Alert]
	unread   int
	lastSeen map[dedupKey]time.Time
}

func NewAlertCenter(logger *zap.Logger, cfg config.AlertsConfig, n notifier.Notifier) *AlertCenter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AlertCenter{
		logger:   logger,
		notifier: n,
		window:   cfg.DedupWindow,
		now:      time.Now,
		alerts:   newRing[Alert](cfg.Capacity),
		lastSeen: make(map[dedupKey]time.Time),
	}
}

// Ingest records an alert, returning false when it was coalesced into a
// recent duplicate. Accepted alerts are forwarded to the notifier.
func (ac *AlertCenter) Ingest(a Alert) bool {
	now := ac.now()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Priority == "" {
		a.Priority = notifier.PriorityMedium
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = now
	}
	a.Read = false

	key := dedupKey{typ: a.Type, message: a.Message}

	ac.mu.Lock()
	ac.pruneLocked(now)
	if last, ok := ac.lastSeen[key]; ok && now.Sub(last) < ac.window {
		ac.lastSeen[key] = now
		ac.mu.Unlock()
		metricAlertsCoalesced.Inc()
		ac.logger.Debug("alert coalesced",
			zap.String("type", a.Type),
			zap.String("message", a.Message))
		return false
	}
	ac.lastSeen[key] = now
	if evicted, ok := ac.alerts.push(a); ok && !evicted.Read {
		ac.unread--
	}
	ac.unread++
	ac.mu.Unlock()

	metricAlertsIngested.WithLabelValues(string(a.Priority)).Inc()
	ac.logger.Info("alert",
		zap.String("id", a.ID),
		zap.String("type", a.Type),
		zap.String("priority", string(a.Priority)),
		zap.String("message", a.Message))

	if ac.notifier != nil {
		ac.notifier.Notify(a)
	}
	return true
}

// pruneLocked drops dedup entries past the window. Risk messages embed
// formatted numbers, so without pruning the map grows one key per distinct
// reading for the life of the process.
func (ac *AlertCenter) pruneLocked(now time.Time) {
	for key, last := range ac.lastSeen {
		if now.Sub(last) >= ac.window {
			delete(ac.lastSeen, key)
		}
	}
}

// MarkRead marks one alert read. Repeated calls for the same ID are no-ops.
func (ac *AlertCenter) MarkRead(id string) bool {
	ac.mu.Lock()
	defer ac.mu.Unlock()
	found := false
	ac.alerts.each(func(a *Alert) bool {
		if a.ID != id {
			return true
		}
		found = true
		if !a.Read {
			a.Read = true
			ac.unread--
		}
		return false
	})
	return found
}

func (ac *AlertCenter) MarkAllRead() {
	ac.mu.Lock()
	defer ac.mu.Unlock()
	ac.alerts.each(func(a *Alert) bool {
		a.Read = true
		return true
	})
	ac.unread = 0
}

func (ac *AlertCenter) ClearAll() {
	ac.mu.Lock()
	defer ac.mu.Unlock()
	ac.alerts.clear()
	ac.unread = 0
}

// Alerts returns the retained alerts, newest first.
func (ac *AlertCenter) Alerts() []Alert {
	ac.mu.Lock()
	defer ac.mu.Unlock()
	return ac.alerts.newestFirst(0)
}

func (ac *AlertCenter) UnreadCount() int {
	ac.mu.Lock()
	defer ac.mu.Unlock()
	return ac.unread
}

// A single position holding more than this share of total margin in use
// raises a concentration warning.
const concentrationAbovePct = 30.0

// CheckRisk raises alerts for dangerous account conditions. The dedup window
// keeps a persisting condition from flooding the list on every update.
func (ac *AlertCenter) CheckRisk(p Performance, positions []Position) {
	if p.MarginLevel < marginLevelHighBelow {
		ac.Ingest(Alert{
			Message:  fmt.Sprintf("Low margin level: %.1f%%", p.MarginLevel),
			Type:     notifier.TypeWarning,
			Priority: notifier.PriorityHigh,
		})
	}
	if p.CurrentDrawdown > drawdownMediumAbove {
		ac.Ingest(Alert{
			Message:  fmt.Sprintf("High drawdown: %.1f%%", p.CurrentDrawdown),
			Type:     notifier.TypeDanger,
			Priority: notifier.PriorityHigh,
		})
	}

	var totalMargin float64
	for i := range positions {
		totalMargin += positions[i].MarginUsed
	}
	if totalMargin <= 0 {
		return
	}
	for i := range positions {
		concentration := positions[i].MarginUsed / totalMargin * 100
		if concentration > concentrationAbovePct {
			ac.Ingest(Alert{
				Message: fmt.Sprintf("High position concentration in %s: %.1f%%",
					positions[i].Symbol, concentration),
				Type:     notifier.TypeWarning,
				Priority: notifier.PriorityMedium,
			})
		}
	}
}
