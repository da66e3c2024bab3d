package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/earshot-ai/earshot/internal/health"
	"github.com/earshot-ai/earshot/internal/observe"
	"github.com/earshot-ai/earshot/internal/session"
)

// Config wires a [Server].
type Config struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string

	// Hub broadcasts runner events to WebSocket clients. Required.
	Hub *Hub

	// Sessions backs the session listing and switching endpoints. Required.
	Sessions *session.Manager

	// Runner receives switch requests. Required.
	Runner *session.Runner

	// Health serves /healthz and /readyz. Optional.
	Health *health.Handler

	// Metrics instruments HTTP requests. Optional.
	Metrics *observe.Metrics

	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// Server is the HTTP front of the gateway: the /ws event feed, the session
// API, and the operational endpoints.
type Server struct {
	cfg    Config
	logger *slog.Logger
	http   *http.Server
}

// NewServer builds the server and its routes.
func NewServer(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	s := &Server{cfg: cfg, logger: cfg.Logger}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.HandleFunc("GET /sessions", s.handleListSessions)
	mux.HandleFunc("POST /sessions", s.handleCreateSession)
	mux.HandleFunc("GET /sessions/{id}", s.handleGetSession)
	mux.HandleFunc("POST /sessions/{id}/activate", s.handleActivateSession)
	mux.Handle("GET /metrics", promhttp.Handler())
	if cfg.Health != nil {
		cfg.Health.Register(mux)
	}

	var handler http.Handler = mux
	if cfg.Metrics != nil {
		handler = observe.Middleware(cfg.Metrics)(handler)
	}

	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// ListenAndServe blocks serving requests until Shutdown or a listener error.
func (s *Server) ListenAndServe() error {
	s.logger.Info("gateway listening", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and detaches WebSocket clients.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cfg.Hub.Close()
	return s.http.Shutdown(ctx)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket accept failed", "error", err)
		return
	}
	s.cfg.Hub.serve(r.Context(), conn)
}

// sessionView is the wire shape of a session.
type sessionView struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	Turns     int       `json:"turns"`
	Active    bool      `json:"active"`
}

func (s *Server) viewOf(sess *session.Session) sessionView {
	return sessionView{
		ID:        sess.ID,
		Title:     sess.Title,
		CreatedAt: sess.CreatedAt,
		Turns:     sess.History.Len(),
		Active:    s.cfg.Runner.Session() == sess,
	}
}

func (s *Server) handleListSessions(w http.ResponseWriter, _ *http.Request) {
	all := s.cfg.Sessions.List()
	views := make([]sessionView, len(all))
	for i, sess := range all {
		views[i] = s.viewOf(sess)
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Title == "" {
		http.Error(w, "title is required", http.StatusBadRequest)
		return
	}

	sess := s.cfg.Sessions.Create(req.Title)
	s.logger.Info("session created", "session_id", sess.ID, "title", sess.Title)
	writeJSON(w, http.StatusCreated, s.viewOf(sess))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.cfg.Sessions.Get(r.PathValue("id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, s.viewOf(sess))
}

func (s *Server) handleActivateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.cfg.Sessions.Get(r.PathValue("id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if err := s.cfg.Runner.Switch(ctx, sess); err != nil {
		http.Error(w, "switch timed out", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, s.viewOf(sess))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Error("encoding response", "error", err)
	}
}
