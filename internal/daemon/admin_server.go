package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"sync"
	"time"

	"git.home.luguber.info/inful/daytrack/internal/eventstore"
	"git.home.luguber.info/inful/daytrack/internal/foundation/errors"
	"git.home.luguber.info/inful/daytrack/internal/metrics"
	"git.home.luguber.info/inful/daytrack/internal/tracker"
)

// AdminServer serves health, metrics and read-only tracker endpoints.
type AdminServer struct {
	addr    string
	daemon  *Daemon
	errors  *errors.HTTPErrorAdapter
	mu      sync.Mutex
	server  *http.Server
	ln      net.Listener
	running bool
}

// NewAdminServer creates the admin server for d listening on addr.
func NewAdminServer(addr string, d *Daemon) *AdminServer {
	return &AdminServer{addr: addr, daemon: d, errors: errors.NewHTTPErrorAdapter(slog.Default())}
}

func (s *AdminServer) Name() string           { return "admin_http" }
func (s *AdminServer) Dependencies() []string { return nil }

// Addr returns the bound address once started, otherwise the configured one.
func (s *AdminServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln != nil {
		return s.ln.Addr().String()
	}
	return s.addr
}

// Handler builds the admin routes.
func (s *AdminServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReadiness)
	if s.daemon.registry != nil {
		mux.Handle("GET /metrics", metrics.HTTPHandler(s.daemon.registry))
	}
	mux.HandleFunc("GET /users/{user}/state", s.handleState)
	mux.HandleFunc("GET /users/{user}/series/{metric}", s.handleSeries)
	mux.HandleFunc("GET /users/{user}/history", s.handleHistory)
	mux.HandleFunc("GET /users/{user}/activity", s.handleActivity)
	mux.HandleFunc("POST /materialize", s.handleMaterialize)
	return mux
}

// Start binds the listener before serving so address errors surface here.
func (s *AdminServer) Start(_ context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("admin listen %s: %w", s.addr, err)
	}
	srv := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.mu.Lock()
	s.server, s.ln, s.running = srv, ln, true
	s.mu.Unlock()

	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("Admin server stopped", "error", err)
		}
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()
	slog.Info("Admin server listening", "addr", ln.Addr().String())
	return nil
}

// Stop gracefully shuts the server down.
func (s *AdminServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func (s *AdminServer) Health() HealthCheck {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return HealthCheck{Name: s.Name(), Status: HealthStatusUnhealthy, Message: "admin server not running", LastChecked: time.Now()}
	}
	return HealthCheck{Name: s.Name(), Status: HealthStatusHealthy, Message: s.ln.Addr().String(), LastChecked: time.Now()}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func (s *AdminServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.daemon.HealthReport(r.Context())
	status := http.StatusOK
	if report.Status == HealthStatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

// handleReadiness reports ready once a materialization pass has completed.
func (s *AdminServer) handleReadiness(w http.ResponseWriter, _ *http.Request) {
	if s.daemon.LastPass() == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready: no materialization pass yet"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// knownUser rejects ids that are neither configured nor stored.
func (s *AdminServer) knownUser(ctx context.Context, user string) error {
	users, err := s.daemon.Tracker().Users(ctx)
	if err != nil {
		return err
	}
	if !slices.Contains(users, user) {
		return errors.NotFoundError("unknown user").ForUser(user).Build()
	}
	return nil
}

func (s *AdminServer) snapshot(r *http.Request) (*tracker.State, error) {
	user := r.PathValue("user")
	if err := s.knownUser(r.Context(), user); err != nil {
		return nil, err
	}
	return s.daemon.Tracker().Snapshot(r.Context(), user)
}

func (s *AdminServer) handleState(w http.ResponseWriter, r *http.Request) {
	st, err := s.snapshot(r)
	if err != nil {
		s.errors.WriteErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *AdminServer) handleSeries(w http.ResponseWriter, r *http.Request) {
	st, err := s.snapshot(r)
	if err != nil {
		s.errors.WriteErrorResponse(w, r, err)
		return
	}
	metric := r.PathValue("metric")
	resp := map[string]any{"metric": metric, "entries": st.Series(metric)}
	if d, ok := st.ActiveDefault(metric); ok {
		resp["default"] = d
	}
	writeJSON(w, http.StatusOK, resp)
}

// eventView is the JSON form of a journaled event.
type eventView struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	Timestamp time.Time         `json:"timestamp"`
	Payload   json.RawMessage   `json:"payload"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

func viewEvents(events []eventstore.Event) []eventView {
	out := make([]eventView, 0, len(events))
	for _, e := range events {
		out = append(out, eventView{ID: e.EventID(), Type: e.Type(), Timestamp: e.Timestamp(), Payload: e.Payload(), Metadata: e.Metadata()})
	}
	return out
}

func (s *AdminServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")
	if err := s.knownUser(r.Context(), user); err != nil {
		s.errors.WriteErrorResponse(w, r, err)
		return
	}
	events, err := s.daemon.Tracker().History(r.Context(), user)
	if err != nil {
		s.errors.WriteErrorResponse(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewEvents(events))
}

func (s *AdminServer) handleActivity(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")
	activity, ok := s.daemon.Activity(user)
	if !ok {
		s.errors.WriteErrorResponse(w, r, errors.NotFoundError("no recorded activity").ForUser(user).Build())
		return
	}
	writeJSON(w, http.StatusOK, activity)
}

func (s *AdminServer) handleMaterialize(w http.ResponseWriter, r *http.Request) {
	sum, err := s.daemon.RunPass(r.Context())
	if err != nil && sum.Users == 0 {
		s.errors.WriteErrorResponse(w, r, err)
		return
	}
	resp := map[string]any{"summary": sum}
	if err != nil {
		resp["error"] = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}
