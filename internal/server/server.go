// Package server provides the HTTP API over the advisory workflow.
package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/jonathan/application-advisor/internal/advisor"
	"github.com/jonathan/application-advisor/internal/ingestion"
	"github.com/jonathan/application-advisor/internal/llm"
	"github.com/jonathan/application-advisor/internal/session"
)

// Advisor is the slice of the orchestrator the HTTP layer needs.
type Advisor interface {
	SubmitTurn(ctx context.Context, sessionID string, input advisor.TurnInput, onDelta llm.StreamFunc) (*advisor.TurnResult, error)
	SessionState(ctx context.Context, sessionID string) (*session.Session, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	advisor    Advisor
	logger     *zap.Logger
	validate   *validator.Validate
}

// Config holds server configuration
type Config struct {
	Port    int
	Advisor Advisor
	Logger  *zap.Logger
}

// New creates a new server instance
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	s := &Server{
		advisor:  cfg.Advisor,
		logger:   cfg.Logger,
		validate: validator.New(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /sessions/{id}/turns", s.handleTurn)
	mux.HandleFunc("POST /sessions/{id}/turns/stream", s.handleTurnStream)
	mux.HandleFunc("GET /sessions/{id}", s.handleGetSession)
	mux.HandleFunc("DELETE /sessions/{id}", s.handleDeleteSession)
	mux.HandleFunc("GET /health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.withLogging(s.withCORS(mux)),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second, // LLM turns can be slow
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening for requests and blocks until shutdown.
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		s.logger.Info("server starting", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-stop
	s.logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("elapsed", time.Since(start)))
	})
}

// turnRequest is the POST /sessions/{id}/turns body.
type turnRequest struct {
	Text     string           `json:"text" validate:"required_without=Document"`
	Document *documentPayload `json:"document,omitempty"`
}

type documentPayload struct {
	ContentBase64 string `json:"content_base64" validate:"required"`
	MimeType      string `json:"mime_type"`
}

type turnResponse struct {
	Reply        string   `json:"reply"`
	Phase        string   `json:"phase"`
	QuickReplies []string `json:"quick_replies,omitempty"`
}

// parseTurnRequest decodes and validates the request body.
func (s *Server) parseTurnRequest(r *http.Request) (advisor.TurnInput, error) {
	var req turnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return advisor.TurnInput{}, fmt.Errorf("invalid JSON body: %w", err)
	}
	if err := s.validate.Struct(req); err != nil {
		return advisor.TurnInput{}, fmt.Errorf("invalid request: %w", err)
	}

	input := advisor.TurnInput{Text: req.Text}
	if req.Document != nil {
		content, err := base64.StdEncoding.DecodeString(req.Document.ContentBase64)
		if err != nil {
			return advisor.TurnInput{}, fmt.Errorf("invalid document encoding: %w", err)
		}
		input.Documents = append(input.Documents, ingestion.Document{
			Bytes:    content,
			MimeType: req.Document.MimeType,
		})
	}
	return input, nil
}

func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")

	input, err := s.parseTurnRequest(r)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.advisor.SubmitTurn(r.Context(), sessionID, input, nil)
	if err != nil {
		s.advisorErrorResponse(w, err)
		return
	}

	s.jsonResponse(w, http.StatusOK, turnResponse{
		Reply:        result.Reply,
		Phase:        string(result.Phase),
		QuickReplies: result.QuickReplies,
	})
}

// handleTurnStream processes a turn, delivering conversational reply text as
// SSE delta events before the final result event.
func (s *Server) handleTurnStream(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")

	input, err := s.parseTurnRequest(r)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	result, err := s.advisor.SubmitTurn(r.Context(), sessionID, input, func(chunk string) {
		sse.WriteDelta(chunk)
	})
	if err != nil {
		sse.WriteError(guidanceMessage(err))
		return
	}

	sse.WriteResult(turnResponse{
		Reply:        result.Reply,
		Phase:        string(result.Phase),
		QuickReplies: result.QuickReplies,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.advisor.SessionState(r.Context(), r.PathValue("id"))
	if errors.Is(err, session.ErrNotFound) {
		s.errorResponse(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "failed to load session")
		return
	}
	s.jsonResponse(w, http.StatusOK, sess)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	err := s.advisor.DeleteSession(r.Context(), r.PathValue("id"))
	if errors.Is(err, session.ErrNotFound) {
		s.errorResponse(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "failed to delete session")
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("failed to encode JSON response", zap.Error(err))
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// advisorErrorResponse maps orchestrator errors onto HTTP statuses.
func (s *Server) advisorErrorResponse(w http.ResponseWriter, err error) {
	s.errorResponse(w, statusForError(err), guidanceMessage(err))
}
