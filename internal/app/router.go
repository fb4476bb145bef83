package app

import (
	"encoding/json"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"botwatch/clients/notifier"
)

var frameJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// liveness is how the router reports inbound traffic back to the stream
// client, so heartbeat replies count as activity.
type liveness interface {
	TouchActivity()
}

type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type errorFrame struct {
	Message string `json:"message"`
}

// Router decodes inbound frames and dispatches them by type. Malformed input
// is logged and dropped; the router never panics on bad frames.
type Router struct {
	logger *zap.Logger
	store  *Store
	alerts *AlertCenter
	stream liveness
}

func NewRouter(logger *zap.Logger, store *Store, alerts *AlertCenter, stream liveness) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{logger: logger, store: store, alerts: alerts, stream: stream}
}

// HandleFrame processes one raw frame from the bot stream.
func (r *Router) HandleFrame(raw []byte) {
	var env envelope
	if err := frameJSON.Unmarshal(raw, &env); err != nil || env.Type == "" {
		metricMalformedFrames.Inc()
		r.logger.Warn("dropping malformed frame",
			zap.Int("bytes", len(raw)), zap.Error(err))
		return
	}
	metricMessagesRouted.WithLabelValues(env.Type).Inc()

	switch env.Type {
	case "dashboard_update":
		r.handleDashboardUpdate(env.Data)
	case "alert":
		r.handleAlert(env.Data)
	case "trade_executed":
		r.handleTrade(env.Data)
	case "position_update":
		r.handlePositionDelta(env.Data)
	case "pong":
		if r.stream != nil {
			r.stream.TouchActivity()
		}
	case "error":
		r.handleError(env.Data)
	default:
		metricUnhandledMessages.Inc()
		r.logger.Warn("unhandled message type", zap.String("type", env.Type))
	}
}

func (r *Router) handleDashboardUpdate(data json.RawMessage) {
	var u DashboardUpdate
	if err := frameJSON.Unmarshal(data, &u); err != nil {
		metricMalformedFrames.Inc()
		r.logger.Warn("bad dashboard_update payload", zap.Error(err))
		return
	}
	r.store.ApplyUpdate(u)
	r.alerts.CheckRisk(r.store.Performance(), r.store.Positions())
}

func (r *Router) handleAlert(data json.RawMessage) {
	var a Alert
	if err := frameJSON.Unmarshal(data, &a); err != nil {
		metricMalformedFrames.Inc()
		r.logger.Warn("bad alert payload", zap.Error(err))
		return
	}
	r.alerts.Ingest(a)
}

func (r *Router) handleTrade(data json.RawMessage) {
	var t Trade
	if err := frameJSON.Unmarshal(data, &t); err != nil {
		metricMalformedFrames.Inc()
		r.logger.Warn("bad trade_executed payload", zap.Error(err))
		return
	}
	r.store.AppendTrade(t)
	r.alerts.Ingest(Alert{
		Message: fmt.Sprintf("Trade executed: %s %s PnL %+.2f",
			strings.ToUpper(t.Side), t.Symbol, t.PnL),
		Type:     notifier.TypeTrade,
		Priority: notifier.PriorityHigh,
	})
}

func (r *Router) handlePositionDelta(data json.RawMessage) {
	var d PositionDelta
	if err := frameJSON.Unmarshal(data, &d); err != nil || d.ID == "" {
		metricMalformedFrames.Inc()
		r.logger.Warn("bad position_update payload", zap.Error(err))
		return
	}
	r.store.ApplyPositionDelta(d)
}

func (r *Router) handleError(data json.RawMessage) {
	var e errorFrame
	if err := frameJSON.Unmarshal(data, &e); err != nil || e.Message == "" {
		e.Message = "Bot reported an error"
	}
	r.alerts.Ingest(Alert{
		Message:  e.Message,
		Type:     notifier.TypeDanger,
		Priority: notifier.PriorityCritical,
	})
}
