// Package httpapi exposes the assistant's conversation, task list,
// credential and speech controls over a small JSON HTTP API.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/valter-silva-au/kiya/internal/core"
	"github.com/valter-silva-au/kiya/pkg/models"
)

// Deps holds the services the API serves.
type Deps struct {
	Conversation   *core.Conversation
	Tasks          core.TaskStore
	Credentials    core.CredentialStore
	AllowedOrigins []string
	Logger         zerolog.Logger
}

// Server routes HTTP requests to the assistant.
type Server struct {
	router *chi.Mux
	deps   Deps
	log    zerolog.Logger
}

// NewServer builds the router and registers every route.
func NewServer(deps Deps) *Server {
	if len(deps.AllowedOrigins) == 0 {
		deps.AllowedOrigins = []string{"*"}
	}
	s := &Server{
		router: chi.NewRouter(),
		deps:   deps,
		log:    deps.Logger.With().Str("component", "httpapi").Logger(),
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.requestLogger)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: deps.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Requested-With"},
		MaxAge:         300,
	}))
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Route("/api", func(r chi.Router) {
		r.Get("/messages", s.handleListMessages)
		r.Post("/messages", s.handleSendMessage)
		r.Delete("/messages", s.handleClearMessages)
		r.Delete("/messages/{id}", s.handleDeleteMessage)
		r.Get("/tasks", s.handleListTasks)
		r.Get("/credential", s.handleCredentialStatus)
		r.Put("/credential", s.handleSetCredential)
		r.Delete("/credential", s.handleClearCredential)
		r.Post("/speech/stop", s.handleSpeechStop)
		r.Post("/speech/mute", s.handleSpeechMute)
	})
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("http api listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving http: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down http server: %w", err)
		}
		return nil
	}
}

type sendMessageRequest struct {
	Message string `json:"message"`
}

type historyResponse struct {
	ConversationID string           `json:"conversation_id"`
	Messages       []models.Message `json:"messages"`
}

type credentialRequest struct {
	APIKey string `json:"api_key"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListMessages(w http.ResponseWriter, _ *http.Request) {
	h := s.deps.Conversation.History()
	msgs := h.Messages()
	if msgs == nil {
		msgs = []models.Message{}
	}
	writeJSON(w, http.StatusOK, historyResponse{ConversationID: h.ConversationID(), Messages: msgs})
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	ex, err := s.deps.Conversation.Submit(r.Context(), req.Message)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ex)
}

func (s *Server) handleClearMessages(w http.ResponseWriter, _ *http.Request) {
	id := s.deps.Conversation.StartNew()
	writeJSON(w, http.StatusOK, map[string]string{"conversation_id": id})
}

func (s *Server) handleDeleteMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.deps.Conversation.History().Delete(id) {
		s.log.Debug().Str("id", id).Msg("delete of unknown message ignored")
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListTasks(w http.ResponseWriter, _ *http.Request) {
	tasks := s.deps.Tasks.ListTasks()
	if tasks == nil {
		tasks = []models.Task{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

// handleCredentialStatus reports only whether a key is present; the key
// itself never leaves the process.
func (s *Server) handleCredentialStatus(w http.ResponseWriter, _ *http.Request) {
	_, ok := s.deps.Credentials.Get()
	writeJSON(w, http.StatusOK, map[string]bool{"configured": ok})
}

func (s *Server) handleSetCredential(w http.ResponseWriter, r *http.Request) {
	var req credentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.deps.Credentials.Set(req.APIKey); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearCredential(w http.ResponseWriter, _ *http.Request) {
	if err := s.deps.Credentials.Clear(); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSpeechStop(w http.ResponseWriter, _ *http.Request) {
	sp := s.deps.Conversation.Speech()
	if sp == nil {
		writeError(w, http.StatusNotFound, "speech output is disabled")
		return
	}
	sp.Stop()
	writeJSON(w, http.StatusOK, map[string]any{"state": sp.State().String(), "muted": sp.IsMuted()})
}

func (s *Server) handleSpeechMute(w http.ResponseWriter, _ *http.Request) {
	sp := s.deps.Conversation.Speech()
	if sp == nil {
		writeError(w, http.StatusNotFound, "speech output is disabled")
		return
	}
	muted := sp.ToggleMute()
	writeJSON(w, http.StatusOK, map[string]any{"state": sp.State().String(), "muted": muted})
}

func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, core.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		s.log.Error().Err(err).Msg("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
