package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/benmeehan/bus-tracker/internal/services"
	"github.com/benmeehan/bus-tracker/internal/state_managers"
	"github.com/benmeehan/bus-tracker/pkg/identity"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

const (
	shutdownTimeout = 5 * time.Second
	writeTimeout    = 5 * time.Second
	clientBuffer    = 8
)

// Controller is the part of the tracker the HTTP view drives.
type Controller interface {
	Toggle() (bool, error)
	Tracking() bool
}

// StateResponse is the JSON view of the tracker.
type StateResponse struct {
	state_managers.Snapshot
	Tracking bool              `json:"tracking"`
	Bus      identity.Identity `json:"bus"`
}

// Server exposes the tracker state over HTTP and pushes every change to websocket clients.
type Server struct {
	addr       string
	router     *mux.Router
	httpServer *http.Server
	controller Controller
	state      *state_managers.TrackerState
	bus        identity.Identity
	upgrader   websocket.Upgrader
	logger     zerolog.Logger

	mu          sync.Mutex
	clients     map[*wsClient]struct{}
	unsubscribe func()
}

type wsClient struct {
	conn *websocket.Conn
	send chan StateResponse
}

// NewServer builds the router. gatherer backs the /metrics endpoint and
// deviceInfo names the bus in every state response.
func NewServer(addr string, controller Controller, state *state_managers.TrackerState,
	deviceInfo identity.DeviceInfoInterface, gatherer prometheus.Gatherer, logger zerolog.Logger) *Server {
	s := &Server{
		addr:       addr,
		controller: controller,
		state:      state,
		bus:        *deviceInfo.GetDeviceIdentity(),
		logger:     logger,
		clients:    make(map[*wsClient]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/api/state", s.handleState).Methods(http.MethodGet)
	r.HandleFunc("/api/tracking/toggle", s.handleToggle).Methods(http.MethodPost)
	r.HandleFunc("/ws", s.handleWebSocket).Methods(http.MethodGet)
	s.router = r

	s.unsubscribe = state.OnChange(func(state_managers.Snapshot) { s.broadcast() })
	return s
}

// Handler returns the HTTP handler serving all routes.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("HTTP server stopped unexpectedly")
		}
	}()

	s.logger.Info().Str("addr", listener.Addr().String()).Msg("HTTP server started")
	return nil
}

// Stop shuts the server down and disconnects websocket clients.
func (s *Server) Stop() error {
	s.unsubscribe()

	s.mu.Lock()
	for client := range s.clients {
		_ = client.conn.Close()
	}
	s.mu.Unlock()

	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}

	s.logger.Info().Msg("HTTP server stopped")
	return nil
}

func (s *Server) snapshot() StateResponse {
	return StateResponse{
		Snapshot: s.state.Snapshot(),
		Tracking: s.controller.Tracking(),
		Bus:      s.bus,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.snapshot())
}

func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	_, err := s.controller.Toggle()
	switch {
	case errors.Is(err, services.ErrPermissionDenied):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": err.Error()})
	case errors.Is(err, services.ErrTrackerNotRunning):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
	case err != nil:
		s.logger.Error().Err(err).Msg("Failed to toggle tracking")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusOK, s.snapshot())
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := &wsClient{conn: conn, send: make(chan StateResponse, clientBuffer)}
	client.send <- s.snapshot()

	s.mu.Lock()
	s.clients[client] = struct{}{}
	s.mu.Unlock()
	s.logger.Debug().Int("clients", s.clientCount()).Msg("WebSocket client connected")

	done := make(chan struct{})
	go s.writePump(client, done)

	// Block until the client goes away; incoming messages are ignored.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.mu.Lock()
	delete(s.clients, client)
	s.mu.Unlock()
	close(done)
	_ = conn.Close()
	s.logger.Debug().Msg("WebSocket client disconnected")
}

func (s *Server) writePump(client *wsClient, done <-chan struct{}) {
	for {
		select {
		case msg := <-client.send:
			_ = client.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := client.conn.WriteJSON(msg); err != nil {
				_ = client.conn.Close()
				return
			}
		case <-done:
			return
		}
	}
}

func (s *Server) clientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// broadcast queues the current state for every client, skipping clients that are not keeping up.
func (s *Server) broadcast() {
	msg := s.snapshot()

	s.mu.Lock()
	defer s.mu.Unlock()
	for client := range s.clients {
		select {
		case client.send <- msg:
		default:
			s.logger.Debug().Msg("WebSocket client too slow, update skipped")
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
