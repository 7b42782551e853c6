// Package server is the HTTP boundary: request parsing, date validation,
// routing to the conversation service, and error-to-status mapping. It
// holds no conversation state of its own.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wayfarer-ai/wayfarer/internal/conversation"
	"github.com/wayfarer-ai/wayfarer/internal/events"
	"github.com/wayfarer-ai/wayfarer/internal/resolve"
	"github.com/wayfarer-ai/wayfarer/internal/router"
	"github.com/wayfarer-ai/wayfarer/internal/sessions"
	"github.com/wayfarer-ai/wayfarer/internal/travel"
)

// Server is the Wayfarer HTTP server.
type Server struct {
	httpServer *http.Server
	svc        *conversation.Service
	bus        *events.Bus
}

// NewServer wires the routes. The conversation service and event bus are
// injected; the server owns nothing but the listener.
func NewServer(svc *conversation.Service, bus *events.Bus, host string, port int) *Server {
	s := &Server{svc: svc, bus: bus}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Post("/api/chat", s.handleChat)
	r.Post("/api/plan", s.handlePlan)
	r.Get("/api/conversations/{id}", s.handleGetConversation)
	r.Delete("/api/conversations/{id}", s.handleDeleteConversation)
	r.Get("/api/events", s.handleEvents)
	r.Get("/api/health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", host, port),
		Handler: r,
	}
	return s
}

// Handler exposes the route tree, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening. It blocks until the server is stopped.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	slog.Info("wayfarer listening", "addr", ln.Addr().String())
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeTurn(w, r)
	if !ok {
		return
	}

	result, err := s.svc.Chat(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeTurn(w, r)
	if !ok {
		return
	}

	result, err := s.svc.Plan(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	sess, err := s.svc.Context(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	removed, err := s.svc.Delete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"removed": removed})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		fmt.Sscanf(v, "%d", &limit)
	}
	writeJSON(w, http.StatusOK, s.bus.History(limit))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decodeTurn parses and validates the request body. A request-supplied
// date range is validated here, before the core runs; a stored one
// already passed this gate on the turn that stored it.
func (s *Server) decodeTurn(w http.ResponseWriter, r *http.Request) (conversation.TurnRequest, bool) {
	var body turnBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body: " + err.Error()})
		return conversation.TurnRequest{}, false
	}

	req, err := body.toRequest()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return conversation.TurnRequest{}, false
	}

	if req.DateRange != nil {
		if err := req.DateRange.Validate(time.Now()); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
			return conversation.TurnRequest{}, false
		}
	}
	return req, true
}

type errorBody struct {
	Error string `json:"error"`
}

// writeError maps the core error taxonomy onto HTTP statuses: resolution
// and routing problems are the client's to fix, handler and store
// failures are ours.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var missing *resolve.MissingFieldError
	var badTopic *router.InvalidTopicError
	var unavailable *sessions.UnavailableError

	switch {
	case errors.As(err, &missing), errors.As(err, &badTopic):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.Is(err, conversation.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	case errors.As(err, &unavailable):
		slog.Error("session store unavailable", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "session store unavailable"})
	default:
		slog.Error("turn failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "failed to process travel request"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// turnBody is the wire shape of a turn. Dates come in as strings so both
// RFC 3339 timestamps and plain YYYY-MM-DD dates are accepted.
type turnBody struct {
	Topic          string           `json:"topic"`
	ConversationID string           `json:"conversationId"`
	Preferences    []string         `json:"preferences"`
	Budget         *float64         `json:"budget"`
	Location       *travel.Location `json:"location"`
	Activities     []string         `json:"activities"`
	DateRange      *dateRangeBody   `json:"dateRange"`
}

type dateRangeBody struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func (b turnBody) toRequest() (conversation.TurnRequest, error) {
	req := conversation.TurnRequest{
		ConversationID: b.ConversationID,
		Topic:          b.Topic,
		Preferences:    b.Preferences,
		Budget:         b.Budget,
		Location:       b.Location,
		Activities:     b.Activities,
	}

	if b.DateRange != nil {
		start, err := parseDate(b.DateRange.Start)
		if err != nil {
			return req, fmt.Errorf("dateRange.start: %w", err)
		}
		end, err := parseDate(b.DateRange.End)
		if err != nil {
			return req, fmt.Errorf("dateRange.end: %w", err)
		}
		req.DateRange = &travel.DateRange{Start: start, End: end}
	}
	return req, nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("must not be empty")
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected RFC 3339 or YYYY-MM-DD, got %q", s)
	}
	return t, nil
}
