package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"

	"pointer-relay/internal/config"
	"pointer-relay/internal/connection"
	"pointer-relay/internal/dispatch"
	"pointer-relay/internal/model"
)

// nopSender accepts every send and reports SENT.
type nopSender struct {
	mu    sync.Mutex
	sends int
}

func (n *nopSender) Send(target connection.Endpoint, payload json.RawMessage, status connection.StatusFunc) error {
	n.mu.Lock()
	n.sends++
	n.mu.Unlock()
	status(connection.StatusSent, "")
	return nil
}

type fixedState struct {
	state  connection.State
	target connection.Endpoint
}

func (f fixedState) State() (connection.State, connection.Endpoint) {
	return f.state, f.target
}

func newTestServer(t *testing.T) (*Server, *dispatch.Tracker) {
	t.Helper()

	cfg := &config.RoutingConfig{
		Enabled:     true,
		AutoRouting: true,
		DefaultEndpoint: config.EndpointConfig{
			Host: "localhost",
			Port: 7007,
		},
		Routes: []config.Rule{
			{ID: "r-dev", Name: "Dev", Pattern: "3000", PatternType: config.PatternPort, MCPPort: 7010, Enabled: true},
		},
	}

	tracker := dispatch.NewTracker()
	d := dispatch.NewDispatcher(cfg, &nopSender{}, tracker, nil, slog.Default())
	state := fixedState{state: connection.StateOpen, target: connection.Endpoint{Host: "localhost", Port: 7010}}

	return New("127.0.0.1:0", d, state, slog.Default()), tracker
}

func TestServer_Dispatch(t *testing.T) {
	s, _ := newTestServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	body := `{"type":"DOM_ELEMENT_POINTED","data":{"x":1},"sourceUrl":"http://localhost:3000/app","tabId":9}`
	resp, err := http.Post(ts.URL+"/dispatch", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /dispatch: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var ack model.Ack
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		t.Fatalf("decoding ack: %v", err)
	}
	if !ack.Accepted || ack.RouteName != "Dev" || ack.Endpoint != "localhost:7010" {
		t.Errorf("ack = %+v", ack)
	}
}

func TestServer_DispatchRejectsBadInput(t *testing.T) {
	s, _ := newTestServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{"type":`},
		{"wrong type", `{"type":"HEARTBEAT","sourceUrl":"http://localhost:3000/"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(ts.URL+"/dispatch", "application/json", strings.NewReader(tt.body))
			if err != nil {
				t.Fatalf("POST /dispatch: %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
		})
	}
}

func TestServer_ActiveRoute(t *testing.T) {
	s, tracker := newTestServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	tracker.Set(4, &config.Rule{ID: "r-dev", Name: "Dev", MCPPort: 7010})

	resp, err := http.Get(ts.URL + "/routes/active?tab_id=4")
	if err != nil {
		t.Fatalf("GET /routes/active: %v", err)
	}
	defer resp.Body.Close()

	var out model.ActiveRoute
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if out.Route == nil || out.Route.Name != "Dev" || out.Route.Port != 7010 {
		t.Errorf("route = %+v, want Dev:7010", out.Route)
	}
	if out.Config.RouteCount != 1 {
		t.Errorf("config summary = %+v", out.Config)
	}

	resp, err = http.Get(ts.URL + "/routes/active?tab_id=bogus")
	if err != nil {
		t.Fatalf("GET /routes/active: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status for bad tab_id = %d, want 400", resp.StatusCode)
	}
}

func TestServer_TestRoute(t *testing.T) {
	s, _ := newTestServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/routes/test", "application/json",
		strings.NewReader(`{"url":"http://localhost:3000/app"}`))
	if err != nil {
		t.Fatalf("POST /routes/test: %v", err)
	}
	defer resp.Body.Close()

	var out model.TestedRoute
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !out.Matched || out.Route == nil || out.Route.Name != "Dev" {
		t.Errorf("tested route = %+v", out)
	}
	if out.Endpoint.Host != "localhost" || out.Endpoint.Port != 7010 {
		t.Errorf("endpoint = %+v, want localhost:7010", out.Endpoint)
	}

	resp, err = http.Post(ts.URL+"/routes/test", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("POST /routes/test: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status for missing url = %d, want 400", resp.StatusCode)
	}
}

func TestServer_TabClosed(t *testing.T) {
	s, tracker := newTestServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	tracker.Set(8, nil)

	resp, err := http.Post(ts.URL+"/tabs/closed", "application/json", strings.NewReader(`{"tabId":8}`))
	if err != nil {
		t.Fatalf("POST /tabs/closed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if _, ok := tracker.Get(8); ok {
		t.Error("tab 8 still tracked after /tabs/closed")
	}
}

func TestServer_Health(t *testing.T) {
	s, _ := newTestServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()

	var out struct {
		Status     string `json:"status"`
		Components struct {
			Connection struct {
				State  string `json:"state"`
				Target string `json:"target"`
			} `json:"connection"`
		} `json:"components"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if out.Status != "healthy" {
		t.Errorf("status = %q, want healthy", out.Status)
	}
	if out.Components.Connection.State != "open" {
		t.Errorf("connection state = %q, want open", out.Components.Connection.State)
	}
	if out.Components.Connection.Target != "localhost:7010" {
		t.Errorf("connection target = %q", out.Components.Connection.Target)
	}
}

func TestServer_WebSocket(t *testing.T) {
	s, _ := newTestServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dialing /ws: %v", err)
	}
	defer conn.Close()

	msg := `{"type":"DOM_ELEMENT_POINTED","data":{"x":1},"sourceUrl":"http://localhost:3000/app"}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		t.Fatalf("writing message: %v", err)
	}

	var ack model.Ack
	if err := conn.ReadJSON(&ack); err != nil {
		t.Fatalf("reading ack: %v", err)
	}
	if !ack.Accepted || ack.RouteName != "Dev" {
		t.Errorf("ack = %+v", ack)
	}

	// A malformed frame gets a rejection ack, not a closed socket.
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`not json`)); err != nil {
		t.Fatalf("writing malformed frame: %v", err)
	}
	if err := conn.ReadJSON(&ack); err != nil {
		t.Fatalf("reading rejection ack: %v", err)
	}
	if ack.Accepted {
		t.Error("malformed frame was accepted")
	}
}
