// Package api serves the HTTP chat endpoint.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/pachico/pachico/pkg/agent"
)

// Failures surface to clients as a generic apology; the cause stays in the
// logs.
const apologyMessage = "Sorry, something went wrong. Please try again."

// Invoker processes one user turn. The service implements it.
type Invoker interface {
	Invoke(ctx context.Context, sessionID, userText string) (agent.TurnResult, error)
}

// ServerOptions configures the API server.
type ServerOptions struct {
	Host string
	Port int
}

// Server is the HTTP API server.
type Server struct {
	options ServerOptions
	server  *http.Server
	invoker Invoker
	logger  zerolog.Logger
}

// NewServer creates an API server.
func NewServer(options ServerOptions, invoker Invoker, logger zerolog.Logger) (*Server, error) {
	if invoker == nil {
		return nil, fmt.Errorf("invoker is required")
	}
	if options.Host == "" {
		options.Host = "127.0.0.1"
	}
	if options.Port == 0 {
		options.Port = 8000
	}

	return &Server{
		options: options,
		invoker: invoker,
		logger:  logger,
	}, nil
}

// Start starts the server and blocks until it stops.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.options.Host, s.options.Port),
		Handler: s.Handler(),
	}

	s.logger.Info().
		Str("host", s.options.Host).
		Int("port", s.options.Port).
		Msg("Starting API server")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start API server: %w", err)
	}

	return nil
}

// Stop gracefully stops the server.
func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

// Handler returns the server's HTTP handler for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/chat", s.handleChat)
	return mux
}

type chatRequest struct {
	Message  string `json:"message"`
	ThreadID string `json:"thread_id"`
}

type chatResponse struct {
	Text      string   `json:"text"`
	FilePaths []string `json:"file_paths"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.Message == "" {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "message is required"})
		return
	}
	if req.ThreadID == "" {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "thread_id is required"})
		return
	}

	result, err := s.invoker.Invoke(r.Context(), req.ThreadID, req.Message)
	if err != nil {
		s.logger.Error().
			Str("thread_id", req.ThreadID).
			Err(err).
			Msg("Chat turn failed")
		s.writeJSON(w, http.StatusInternalServerError, chatResponse{
			Text:      apologyMessage,
			FilePaths: []string{},
		})
		return
	}

	paths := result.ArtifactPaths
	if paths == nil {
		paths = []string{}
	}

	s.writeJSON(w, http.StatusOK, chatResponse{
		Text:      result.Text,
		FilePaths: paths,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Debug().Err(err).Msg("Failed to write response")
	}
}
