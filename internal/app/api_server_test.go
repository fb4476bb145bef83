package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"botwatch/clients/botstream"
	"botwatch/clients/notifier"
	"botwatch/config"
)

type fakeStream struct {
	connected bool
	kicked    int
}

func (f *fakeStream) Stats() botstream.Stats {
	state := botstream.StateDisconnected
	if f.connected {
		state = botstream.StateConnected
	}
	return botstream.Stats{State: state, MessageCount: 7}
}

func (f *fakeStream) IsConnected() bool { return f.connected }
func (f *fakeStream) Kick()             { f.kicked++ }

type apiFixture struct {
	srv    *httptest.Server
	store  *Store
	alerts *AlertCenter
	outbox *Outbox
	stream *fakeStream
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	store := NewStore(nil)
	alerts := NewAlertCenter(nil, config.AlertsConfig{Capacity: 10, DedupWindow: time.Second}, nil)
	stream := &fakeStream{}
	outbox := NewOutbox(nil, config.OutboxConfig{Capacity: 10}, &fakeTransport{})

	prefs, err := OpenPrefStore(nil, filepath.Join(t.TempDir(), "prefs.db"), true)
	if err != nil {
		t.Fatalf("OpenPrefStore: %v", err)
	}
	t.Cleanup(func() { prefs.Close() })

	api := NewAPIServer(nil, config.APIServerConfig{Enabled: true, Port: 0},
		store, alerts, outbox, prefs, stream)
	srv := httptest.NewServer(api.routes())
	t.Cleanup(srv.Close)

	return &apiFixture{srv: srv, store: store, alerts: alerts, outbox: outbox, stream: stream}
}

func (f *apiFixture) get(t *testing.T, path string) map[string]any {
	t.Helper()
	resp, err := http.Get(f.srv.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET %s status = %d", path, resp.StatusCode)
	}
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return out
}

func (f *apiFixture) do(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, f.srv.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	return resp
}

func TestHealthEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	out := f.get(t, "/health")
	if out["status"] != "ok" {
		t.Fatalf("health = %v", out)
	}
	if out["connected"] != false {
		t.Fatalf("connected = %v, want false", out["connected"])
	}
}

func TestStatusEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	f.stream.connected = true
	out := f.get(t, "/api/status")
	if out["connection"] != "connected" {
		t.Fatalf("connection = %v, want connected", out["connection"])
	}
	if out["risk_level"] != "low" {
		t.Fatalf("risk_level = %v, want low", out["risk_level"])
	}
}

func TestPositionsEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	f.store.ApplyUpdate(DashboardUpdate{
		Positions: []Position{{ID: "p1", PnL: 3}, {ID: "p2", PnL: 4}},
	})
	out := f.get(t, "/api/positions")
	if out["total_pnl"].(float64) != 7 {
		t.Fatalf("total_pnl = %v, want 7", out["total_pnl"])
	}
	if n := len(out["positions"].([]any)); n != 2 {
		t.Fatalf("positions = %d, want 2", n)
	}
}

func TestTradesEndpointLimit(t *testing.T) {
	f := newAPIFixture(t)
	for n := 0; n < 5; n++ {
		f.store.AppendTrade(Trade{ID: "t"})
	}
	out := f.get(t, "/api/trades?limit=2")
	if n := len(out["trades"].([]any)); n != 2 {
		t.Fatalf("trades = %d, want 2", n)
	}
	if out["total"].(float64) != 5 {
		t.Fatalf("total = %v, want 5", out["total"])
	}

	resp := f.do(t, http.MethodGet, "/api/trades?limit=-1", "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("negative limit status = %d, want 400", resp.StatusCode)
	}
}

func TestAlertLifecycleOverHTTP(t *testing.T) {
	f := newAPIFixture(t)
	f.alerts.Ingest(Alert{ID: "a1", Message: "m1", Type: notifier.TypeInfo})
	f.alerts.Ingest(Alert{ID: "a2", Message: "m2", Type: notifier.TypeInfo})

	out := f.get(t, "/api/alerts")
	if out["unread"].(float64) != 2 {
		t.Fatalf("unread = %v, want 2", out["unread"])
	}

	resp := f.do(t, http.MethodPost, "/api/alerts/a1/read", "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("mark read status = %d", resp.StatusCode)
	}
	if f.alerts.UnreadCount() != 1 {
		t.Fatalf("UnreadCount = %d, want 1", f.alerts.UnreadCount())
	}

	resp = f.do(t, http.MethodPost, "/api/alerts/unknown/read", "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown alert status = %d, want 404", resp.StatusCode)
	}

	resp = f.do(t, http.MethodPost, "/api/alerts/read_all", "")
	resp.Body.Close()
	if f.alerts.UnreadCount() != 0 {
		t.Fatal("read_all left unread alerts")
	}

	resp = f.do(t, http.MethodPost, "/api/alerts/clear", "")
	resp.Body.Close()
	if len(f.alerts.Alerts()) != 0 {
		t.Fatal("clear left alerts behind")
	}
}

func TestPrefsOverHTTP(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.do(t, http.MethodPut, "/api/prefs",
		`{"sound_enabled": false, "layout": {"panels": ["alerts"]}}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("PUT prefs status = %d", resp.StatusCode)
	}

	out := f.get(t, "/api/prefs")
	if out["sound_enabled"] != false {
		t.Fatalf("sound_enabled = %v, want false", out["sound_enabled"])
	}
	layout := out["layout"].(map[string]any)
	if len(layout["panels"].([]any)) != 1 {
		t.Fatalf("layout = %v", layout)
	}
}

func TestCommandQueuesWhenDisconnected(t *testing.T) {
	f := newAPIFixture(t)

	resp := f.do(t, http.MethodPost, "/api/command", `{"command": "force_update"}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("command status = %d, want 202", resp.StatusCode)
	}
	if f.outbox.Len() != 1 {
		t.Fatalf("outbox Len = %d, want 1", f.outbox.Len())
	}
	if f.stream.kicked != 1 {
		t.Fatal("a command while disconnected should kick the stream")
	}

	resp = f.do(t, http.MethodPost, "/api/command", `{}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty command status = %d, want 400", resp.StatusCode)
	}
}

func TestSubscribeEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	resp := f.do(t, http.MethodPost, "/api/subscribe", `{"stream": "trades"}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("subscribe status = %d, want 202", resp.StatusCode)
	}
	if f.outbox.Len() != 1 {
		t.Fatalf("outbox Len = %d, want 1", f.outbox.Len())
	}
}
