package notifier

import (
	"time"
)

// Priority ranks how urgently an alert should be surfaced.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Alert type categories as emitted by the bot. The set is open-ended;
// these are the ones with dedicated handling.
const (
	TypeInfo    = "info"
	TypeSignal  = "signal"
	TypeWarning = "warning"
	TypeDanger  = "danger"
	TypeSuccess = "success"
	TypeTrade   = "trade"
)

// Alert is a single notification record.
type Alert struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	Priority  Priority  `json:"priority"`
	Timestamp time.Time `json:"timestamp"`
	Read      bool      `json:"read"`
}

// Notifier is the interface for surfacing alerts to a user-facing channel.
type Notifier interface {
	// Notify surfaces a single alert. Implementations must not panic on
	// delivery failure; a failed delivery is logged and dropped.
	Notify(alert Alert)

	// Close cleans up any resources.
	Close() error
}

// MultiNotifier broadcasts alerts to multiple notifiers.
type MultiNotifier struct {
	notifiers []Notifier
}

// NewMultiNotifier creates a new MultiNotifier with the given notifiers.
func NewMultiNotifier(notifiers ...Notifier) *MultiNotifier {
	// Filter out nil notifiers
	var active []Notifier
	for _, n := range notifiers {
		if n != nil {
			active = append(active, n)
		}
	}
	return &MultiNotifier{notifiers: active}
}

// Notify sends the alert to all registered notifiers.
func (m *MultiNotifier) Notify(alert Alert) {
	for _, n := range m.notifiers {
		n.Notify(alert)
	}
}

// Close closes all registered notifiers.
func (m *MultiNotifier) Close() error {
	var lastErr error
	for _, n := range m.notifiers {
		if err := n.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// Count returns the number of active notifiers.
func (m *MultiNotifier) Count() int {
	return len(m.notifiers)
}
