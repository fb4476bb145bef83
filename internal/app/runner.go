package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"botwatch/clients"
	"botwatch/clients/notifier"
	"botwatch/config"
)

const dashboardStream = "dashboard"

// Runner owns the application wiring and lifecycle. It connects the bot
// stream, routes inbound frames into the store and alert center, and serves
// the HTTP API until the context is cancelled.
type Runner struct {
	logger *zap.Logger
	cfg    *config.Config
	cl     *clients.Clients

	store  *Store
	alerts *AlertCenter
	outbox *Outbox
	router *Router
	prefs  *PrefStore
	api    *APIServer
}

func NewRunner(logger *zap.Logger, cfg *config.Config, cl *clients.Clients, prefs *PrefStore) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Runner{logger: logger, cfg: cfg, cl: cl, prefs: prefs}

	r.store = NewStore(logger)
	r.alerts = NewAlertCenter(logger, cfg.Alerts, cl.Notifier)
	r.outbox = NewOutbox(logger, cfg.Outbox, cl.Stream)
	r.router = NewRouter(logger, r.store, r.alerts, cl.Stream)
	if cfg.APIServer.Enabled {
		r.api = NewAPIServer(logger, cfg.APIServer, r.store, r.alerts, r.outbox, prefs, cl.Stream)
	}

	cl.Stream.SetOnMessage(r.router.HandleFrame)
	cl.Stream.SetOnConnect(r.onConnect)
	cl.Stream.SetOnDisconnect(r.onDisconnect)
	return r
}

func (r *Runner) onConnect() {
	metricConnectionState.Set(1)
	r.logger.Info("bot stream connected")
	// Queued commands go out before the subscription so nothing the user
	// did while offline is reordered behind fresh traffic.
	r.outbox.Drain()
	r.outbox.SendSubscribe(dashboardStream)
}

func (r *Runner) onDisconnect(err error) {
	metricConnectionState.Set(0)
	metricDisconnects.Inc()
	r.logger.Warn("bot stream disconnected", zap.Error(err))
	r.alerts.Ingest(Alert{
		Message:  "Connection to trading bot lost",
		Type:     notifier.TypeWarning,
		Priority: notifier.PriorityMedium,
	})
}

// Run blocks until ctx is cancelled or the API server fails.
func (r *Runner) Run(ctx context.Context) error {
	var apiErr <-chan error
	if r.api != nil {
		apiErr = r.api.Start()
	}

	if err := r.cl.Stream.Connect(ctx); err != nil {
		// The stream client retries on its own; a failed first dial is
		// not fatal for the dashboard.
		r.logger.Warn("initial connect failed, retrying in background", zap.Error(err))
	}

	var err error
	select {
	case <-ctx.Done():
	case err = <-apiErr:
		if err != nil {
			r.logger.Error("api server failed", zap.Error(err))
		}
	}

	r.shutdown()
	return err
}

func (r *Runner) shutdown() {
	r.logger.Info("shutting down")
	r.cl.Stream.Disconnect()

	if r.api != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.api.Shutdown(ctx); err != nil {
			r.logger.Warn("api shutdown", zap.Error(err))
		}
	}
	if r.cl.Notifier != nil {
		if err := r.cl.Notifier.Close(); err != nil {
			r.logger.Warn("notifier close", zap.Error(err))
		}
	}
}

// Store exposes the read model, mainly for tests.
func (r *Runner) Store() *Store { return r.store }

// Alerts exposes the alert center, mainly for tests.
func (r *Runner) Alerts() *AlertCenter { return r.alerts }

// Outbox exposes the command queue, mainly for tests.
func (r *Runner) Outbox() *Outbox { return r.outbox }
