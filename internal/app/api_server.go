package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"botwatch/clients/botstream"
	"botwatch/config"
)

// streamStatus is what the API server needs to know about the bot stream.
type streamStatus interface {
	Stats() botstream.Stats
	IsConnected() bool
	Kick()
}

// APIServer exposes the dashboard's read model and command surface over HTTP.
type APIServer struct {
	logger *zap.Logger
	cfg    config.APIServerConfig
	store  *Store
	alerts *AlertCenter
	outbox *Outbox
	prefs  *PrefStore
	stream streamStatus
	srv    *http.Server
}

func NewAPIServer(logger *zap.Logger, cfg config.APIServerConfig, store *Store, alerts *AlertCenter, outbox *Outbox, prefs *PrefStore, stream streamStatus) *APIServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &APIServer{
		logger: logger,
		cfg:    cfg,
		store:  store,
		alerts: alerts,
		outbox: outbox,
		prefs:  prefs,
		stream: stream,
	}
	s.srv = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

func (s *APIServer) routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	api.HandleFunc("/positions", s.handlePositions).Methods(http.MethodGet)
	api.HandleFunc("/performance", s.handlePerformance).Methods(http.MethodGet)
	api.HandleFunc("/trades", s.handleTrades).Methods(http.MethodGet)
	api.HandleFunc("/signals", s.handleSignals).Methods(http.MethodGet)
	api.HandleFunc("/volatility", s.handleVolatility).Methods(http.MethodGet)
	api.HandleFunc("/prices", s.handlePrices).Methods(http.MethodGet)
	api.HandleFunc("/alerts", s.handleAlerts).Methods(http.MethodGet)
	api.HandleFunc("/alerts/read_all", s.handleAlertsReadAll).Methods(http.MethodPost)
	api.HandleFunc("/alerts/clear", s.handleAlertsClear).Methods(http.MethodPost)
	api.HandleFunc("/alerts/{id}/read", s.handleAlertRead).Methods(http.MethodPost)
	api.HandleFunc("/prefs", s.handleGetPrefs).Methods(http.MethodGet)
	api.HandleFunc("/prefs", s.handlePutPrefs).Methods(http.MethodPut)
	api.HandleFunc("/command", s.handleCommand).Methods(http.MethodPost)
	api.HandleFunc("/subscribe", s.handleSubscribe).Methods(http.MethodPost)
	return r
}

// Start runs the listener in the background. A failed listen is fatal for the
// process, so it is logged at that level by the caller.
func (s *APIServer) Start() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api server listening", zap.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()
	return errCh
}

func (s *APIServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *APIServer) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("write response", zap.Error(err))
	}
}

func (s *APIServer) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

func (s *APIServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"connected": s.stream.IsConnected(),
	})
}

func (s *APIServer) handleStatus(w http.ResponseWriter, _ *http.Request) {
	st := s.stream.Stats()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"connection":    st.State.String(),
		"messages":      st.MessageCount,
		"last_activity": st.LastActivity,
		"last_update":   s.store.LastUpdate(),
		"outbox_depth":  s.outbox.Len(),
		"unread_alerts": s.alerts.UnreadCount(),
		"risk_level":    s.store.Risk(),
	})
}

func (s *APIServer) handlePositions(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"positions":      s.store.Positions(),
		"total_pnl":      s.store.TotalUnrealizedPnL(),
		"portfolio_heat": s.store.PortfolioHeat(),
	})
}

func (s *APIServer) handlePerformance(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"performance":  s.store.Performance(),
		"equity_curve": s.store.EquityCurve(),
		"risk_level":   s.store.Risk(),
	})
}

func (s *APIServer) handleTrades(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"trades": s.store.Trades(limit),
		"total":  s.store.TradeCount(),
	})
}

func (s *APIServer) handleSignals(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"signals": s.store.Signals()})
}

func (s *APIServer) handleVolatility(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"volatility": s.store.Volatility()})
}

func (s *APIServer) handlePrices(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"prices": s.store.Prices()})
}

func (s *APIServer) handleAlerts(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"alerts": s.alerts.Alerts(),
		"unread": s.alerts.UnreadCount(),
	})
}

func (s *APIServer) handleAlertRead(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if !s.alerts.MarkRead(id) {
		s.writeError(w, http.StatusNotFound, "unknown alert id")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"unread": s.alerts.UnreadCount()})
}

func (s *APIServer) handleAlertsReadAll(w http.ResponseWriter, _ *http.Request) {
	s.alerts.MarkAllRead()
	s.writeJSON(w, http.StatusOK, map[string]any{"unread": 0})
}

func (s *APIServer) handleAlertsClear(w http.ResponseWriter, _ *http.Request) {
	s.alerts.ClearAll()
	s.writeJSON(w, http.StatusOK, map[string]any{"alerts": []Alert{}, "unread": 0})
}

type prefsPayload struct {
	SoundEnabled *bool           `json:"sound_enabled"`
	Layout       json.RawMessage `json:"layout"`
}

func (s *APIServer) handleGetPrefs(w http.ResponseWriter, _ *http.Request) {
	enabled := s.prefs.SoundEnabled()
	s.writeJSON(w, http.StatusOK, prefsPayload{
		SoundEnabled: &enabled,
		Layout:       s.prefs.Layout(),
	})
}

func (s *APIServer) handlePutPrefs(w http.ResponseWriter, r *http.Request) {
	var p prefsPayload
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&p); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid prefs payload")
		return
	}
	if p.SoundEnabled != nil {
		if err := s.prefs.SetSoundEnabled(*p.SoundEnabled); err != nil {
			s.logger.Error("persist sound preference", zap.Error(err))
			s.writeError(w, http.StatusInternalServerError, "could not save preferences")
			return
		}
	}
	if p.Layout != nil {
		if err := s.prefs.SetLayout(p.Layout); err != nil {
			s.logger.Error("persist layout", zap.Error(err))
			s.writeError(w, http.StatusInternalServerError, "could not save preferences")
			return
		}
	}
	s.handleGetPrefs(w, r)
}

type commandPayload struct {
	Command string         `json:"command"`
	Params  map[string]any `json:"params"`
}

func (s *APIServer) handleCommand(w http.ResponseWriter, r *http.Request) {
	var p commandPayload
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&p); err != nil || p.Command == "" {
		s.writeError(w, http.StatusBadRequest, "command required")
		return
	}
	s.outbox.SendCommand(p.Command, p.Params)
	if !s.stream.IsConnected() {
		s.stream.Kick()
	}
	s.writeJSON(w, http.StatusAccepted, map[string]any{
		"queued":    !s.stream.IsConnected(),
		"command":   p.Command,
		"outbox":    s.outbox.Len(),
		"connected": s.stream.IsConnected(),
	})
}

type subscribePayload struct {
	Stream string `json:"stream"`
}

func (s *APIServer) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	var p subscribePayload
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&p); err != nil || p.Stream == "" {
		s.writeError(w, http.StatusBadRequest, "stream required")
		return
	}
	s.outbox.SendSubscribe(p.Stream)
	s.writeJSON(w, http.StatusAccepted, map[string]any{"stream": p.Stream})
}
