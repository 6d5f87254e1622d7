package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/hatsuboshi/lesson-engine/internal/engine"
	"github.com/hatsuboshi/lesson-engine/internal/sessions"
)

var errUnknownSession = errors.New("unknown session")

type createRequest struct {
	Seed   int64          `json:"seed"`
	Config *engine.Config `json:"config,omitempty"`
}

// createSession builds a session from the request payload, falling back to
// the hub's default setup when the client supplies none.
func (h *Hub) createSession(data []byte) (*sessions.Session, error) {
	req := createRequest{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, err
		}
	}
	cfg := h.defaults
	if req.Config != nil {
		cfg = *req.Config
	}
	if req.Seed != 0 {
		cfg.Seed = req.Seed
	}
	return h.sessions.Create(cfg)
}

// Server is the http front for the websocket hub.
type Server struct {
	http   *http.Server
	hub    *Hub
	logger *zap.Logger
}

// New wires the hub into an http server.
func New(addr string, hub *Hub, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.ServeWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return &Server{
		http: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		hub:    hub,
		logger: logger,
	}
}

// Start runs the hub and serves until Shutdown.
func (s *Server) Start() error {
	go s.hub.Run()
	s.logger.Info("listening", zap.String("address", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
