package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"pointer-relay/internal/connection"
	"pointer-relay/internal/dispatch"
	"pointer-relay/internal/model"
)

// ConnState exposes the lifecycle manager's current state for health
// reporting.
type ConnState interface {
	State() (connection.State, connection.Endpoint)
}

// Server is the local ingress for the capture side: dispatch messages
// arrive over plain HTTP or a held WebSocket, introspection queries
// over HTTP.
type Server struct {
	addr       string
	dispatcher *dispatch.Dispatcher
	conn       ConnState
	logger     *slog.Logger

	upgrader websocket.Upgrader
	http     *http.Server
}

// New creates the ingress server.
func New(addr string, dispatcher *dispatch.Dispatcher, conn ConnState, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		addr:       addr,
		dispatcher: dispatcher,
		conn:       conn,
		logger:     logger,
		upgrader: websocket.Upgrader{
			// The ingress binds to loopback; the capture side connects
			// from extension origins.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /dispatch", s.handleDispatch)
	mux.HandleFunc("GET /routes/active", s.handleActiveRoute)
	mux.HandleFunc("POST /routes/test", s.handleTestRoute)
	mux.HandleFunc("POST /tabs/closed", s.handleTabClosed)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ws", s.handleWS)

	s.http = &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	return s
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("ingress listening", "addr", s.addr)
		if err := s.http.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.http.Shutdown(shutdownCtx)
}

// Handler returns the HTTP handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	var msg model.PointerMessage
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}

	if msg.Type != model.MessageTypePointed {
		writeError(w, http.StatusBadRequest, "unsupported message type: "+msg.Type)
		return
	}

	writeJSON(w, http.StatusOK, s.dispatcher.Dispatch(msg))
}

func (s *Server) handleActiveRoute(w http.ResponseWriter, r *http.Request) {
	tabID, err := strconv.Atoi(r.URL.Query().Get("tab_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "tab_id must be an integer")
		return
	}

	writeJSON(w, http.StatusOK, s.dispatcher.ActiveRoute(tabID))
}

func (s *Server) handleTestRoute(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	writeJSON(w, http.StatusOK, s.dispatcher.TestRoute(req.URL))
}

func (s *Server) handleTabClosed(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TabID int `json:"tabId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}

	s.dispatcher.TabClosed(req.TabID)
	writeJSON(w, http.StatusOK, map[string]bool{"removed": true})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	state, target := s.conn.State()

	health := struct {
		Status     string         `json:"status"`
		Components map[string]any `json:"components"`
	}{
		Status: "healthy",
		Components: map[string]any{
			"connection": map[string]string{
				"state":  state.String(),
				"target": target.String(),
			},
		},
	}

	writeJSON(w, http.StatusOK, health)
}

// handleWS lets the capture side hold a socket instead of POSTing.
// Each text frame is one dispatch message; the ack is written back on
// the same socket.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	s.logger.Debug("capture socket connected", "remote", r.RemoteAddr)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.logger.Debug("capture socket closed", "error", err)
			return
		}

		var msg model.PointerMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			conn.WriteJSON(model.Ack{Accepted: false, RouteName: model.DefaultRouteName})
			continue
		}
		if msg.Type != model.MessageTypePointed {
			conn.WriteJSON(model.Ack{Accepted: false, RouteName: model.DefaultRouteName})
			continue
		}

		ack := s.dispatcher.Dispatch(msg)
		if err := conn.WriteJSON(ack); err != nil {
			s.logger.Debug("ack write failed", "error", err)
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
