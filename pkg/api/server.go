// Package api exposes the clarification state machine over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"clarifier/pkg/clarify"
	"clarifier/pkg/logx"
)

// maxBodyBytes limits request bodies.
const maxBodyBytes = 1 << 20

// SessionService is the session surface served over HTTP. *clarify.Machine implements it.
type SessionService interface {
	Start(ctx context.Context, ownerID, originalInput, documentText string) (*clarify.StartResult, error)
	Clarify(ctx context.Context, sessionID, answer string) (*clarify.ClarifyResult, error)
	GetStatus(ctx context.Context, sessionID string) (*clarify.StatusResult, error)
	Advance(ctx context.Context, sessionID string, to clarify.Status) (*clarify.StatusResult, error)
	Conversation(ctx context.Context, sessionID string) ([]clarify.ConversationEntry, error)
}

// StatusCounter reports session counts for the health endpoint.
type StatusCounter interface {
	CountByStatus(ctx context.Context) (map[clarify.Status]int, error)
}

// Server is the HTTP front end.
type Server struct {
	sessions        SessionService
	counter         StatusCounter
	metricsHandler  http.Handler
	logger          *logx.Logger
	shutdownTimeout time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithStatusCounter adds session counts to /health.
func WithStatusCounter(c StatusCounter) Option {
	return func(s *Server) { s.counter = c }
}

// WithMetricsHandler replaces the default promhttp handler on /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		if h != nil {
			s.metricsHandler = h
		}
	}
}

// WithShutdownTimeout bounds graceful shutdown.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.shutdownTimeout = d
		}
	}
}

// NewServer creates a server for sessions.
func NewServer(sessions SessionService, opts ...Option) *Server {
	s := &Server{
		sessions:        sessions,
		metricsHandler:  promhttp.Handler(),
		logger:          logx.NewLogger("api"),
		shutdownTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterRoutes sets up HTTP routes for the API.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", s.metricsHandler)
	mux.HandleFunc("GET /api/logs", s.handleLogs)

	// Session routes need a bearer token.
	mux.HandleFunc("POST /sessions/start", s.requireOwner(s.handleStart))
	mux.HandleFunc("POST /sessions/clarify", s.requireOwner(s.handleClarify))
	mux.HandleFunc("GET /sessions/{id}/status", s.requireOwner(s.handleStatus))
	mux.HandleFunc("GET /sessions/{id}/conversation", s.requireOwner(s.handleConversation))
	mux.HandleFunc("POST /sessions/{id}/advance", s.requireOwner(s.handleAdvance))
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return mux
}

// StartServer serves until ctx is canceled, then shuts down gracefully.
func (s *Server) StartServer(ctx context.Context, host string, port int) error {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("Starting API server on %s", addr)

	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err, ok := <-serveErr:
		if ok {
			return fmt.Errorf("api server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	//nolint:contextcheck // parent context is canceled; shutdown needs a fresh one
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api server shutdown failed: %w", err)
	}
	return nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Failed to encode response: %v", err)
	}
}

// decodeBody reads a size-limited JSON body into v.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Detail: "request body too large", Code: "BODY_TOO_LARGE"})
			return false
		}
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "invalid JSON body", Code: "INVALID_INPUT"})
		return false
	}
	return true
}
