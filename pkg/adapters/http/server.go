// Package http exposes a ports.FlowExecutor over HTTP with chi.
//
// Two surfaces are offered: a JSON API addressing flows and executions by path,
// and a form entry point (POST /) extracting _flowId, _flowExecutionId, _eventId
// and _stateId from request parameters, the way browser forms drive a flow.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/aretw0/webflow"
	"github.com/aretw0/webflow/internal/logging"
	"github.com/aretw0/webflow/pkg/domain"
	"github.com/aretw0/webflow/pkg/flow"
	"github.com/aretw0/webflow/pkg/ports"
)

// Server handles HTTP requests against an engine.
type Server struct {
	Engine  ports.FlowExecutor
	Streams *StreamManager

	application *domain.AttributeMap
	sessions    *gocache.Cache
	sessionMu   sync.Mutex
	sessionTTL  time.Duration
	metrics     http.Handler
	logger      *slog.Logger
}

// SessionCookie names the cookie that keys the external session map.
const SessionCookie = "webflow_session"

// DefaultSessionTTL is how long an idle session map is kept.
const DefaultSessionTTL = 30 * time.Minute

// Option configures the handler.
type Option func(*Server)

// WithMetricsHandler mounts h on GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithSessionTTL sets how long an idle session map survives.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Server) {
		s.sessionTTL = ttl
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine ports.FlowExecutor, opts ...Option) http.Handler {
	s := &Server{
		Engine:      engine,
		application: domain.NewAttributeMap(),
		sessionTTL:  DefaultSessionTTL,
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Streams = NewStreamManager(s.logger)
	s.sessions = gocache.New(s.sessionTTL, 2*s.sessionTTL)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Post("/", s.SubmitForm)
	r.Post("/flows/{flowId}", s.Launch)
	r.Get("/executions", s.List)
	r.Route("/executions/{executionId}", func(r chi.Router) {
		r.Get("/", s.Refresh)
		r.Delete("/", s.Remove)
		r.Get("/snapshot", s.Inspect)
		r.Get("/stream", s.SubscribeEvents)
		r.Post("/events/{eventId}", s.Signal)
	})

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Custom-Header")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// LaunchRequest is the optional JSON body of POST /flows/{flowId}.
type LaunchRequest struct {
	Input map[string]any `json:"input,omitempty"`
}

// SignalRequest is the optional JSON body of POST /executions/{id}/events/{eventId}.
type SignalRequest struct {
	StateID string         `json:"stateId,omitempty"`
	Params  map[string]any `json:"params,omitempty"`
}

// Launch handles POST /flows/{flowId}.
func (s *Server) Launch(w http.ResponseWriter, r *http.Request) {
	var body LaunchRequest
	if !s.decodeOptional(w, r, &body) {
		return
	}
	resp, err := s.Engine.Launch(r.Context(), chi.URLParam(r, "flowId"), body.Input, s.external(w, r, nil))
	if err != nil {
		s.writeError(w, "Launch", err)
		return
	}
	s.writeResponse(w, resp)
}

// Signal handles POST /executions/{executionId}/events/{eventId}.
func (s *Server) Signal(w http.ResponseWriter, r *http.Request) {
	var body SignalRequest
	if !s.decodeOptional(w, r, &body) {
		return
	}
	id := chi.URLParam(r, "executionId")
	resp, err := s.Engine.Resume(r.Context(), ports.ResumeRequest{
		ExecutionID: id,
		EventID:     chi.URLParam(r, "eventId"),
		StateID:     body.StateID,
		Params:      body.Params,
	}, s.external(w, r, nil))
	if err != nil {
		s.writeError(w, "Signal", err)
		return
	}
	s.broadcast(id, resp)
	s.writeResponse(w, resp)
}

// Refresh handles GET /executions/{executionId}.
func (s *Server) Refresh(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "executionId")
	resp, err := s.Engine.Refresh(r.Context(), id, s.external(w, r, nil))
	if err != nil {
		s.writeError(w, "Refresh", err)
		return
	}
	s.writeResponse(w, resp)
}

// Remove handles DELETE /executions/{executionId}.
func (s *Server) Remove(w http.ResponseWriter, r *http.Request) {
	if err := s.Engine.Remove(r.Context(), chi.URLParam(r, "executionId")); err != nil {
		s.writeError(w, "Remove", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Inspect handles GET /executions/{executionId}/snapshot.
func (s *Server) Inspect(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Engine.Inspect(r.Context(), chi.URLParam(r, "executionId"))
	if err != nil {
		s.writeError(w, "Inspect", err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

// List handles GET /executions.
func (s *Server) List(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Engine.List(r.Context())
	if err != nil {
		s.writeError(w, "List", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string][]string{"executions": ids})
}

// SubmitForm handles POST / with form-encoded flow arguments:
// an execution id with an event resumes, an execution id alone refreshes and
// a flow id alone launches.
func (s *Server) SubmitForm(w http.ResponseWriter, r *http.Request) {
	args, err := ExtractArguments(r)
	if err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		s.logger.Warn("SubmitForm: Invalid form", "error", err)
		return
	}
	ext := s.external(w, r, args.Params)

	var resp *ports.Response
	switch {
	case args.ExecutionID != "" && args.EventID != "":
		resp, err = s.Engine.Resume(r.Context(), ports.ResumeRequest{
			ExecutionID: args.ExecutionID,
			EventID:     args.EventID,
			StateID:     args.StateID,
			Params:      args.EventParams(),
		}, ext)
		if err == nil {
			s.broadcast(args.ExecutionID, resp)
		}
	case args.ExecutionID != "":
		resp, err = s.Engine.Refresh(r.Context(), args.ExecutionID, ext)
	case args.FlowID != "":
		input := make(map[string]any, len(args.Params))
		for k, v := range args.Params {
			input[k] = v
		}
		resp, err = s.Engine.Launch(r.Context(), args.FlowID, input, ext)
	default:
		s.writeJSON(w, http.StatusBadRequest, errorBody{Error: fmt.Sprintf("one of %s or %s is required", FlowIDParameter, ExecutionIDParameter)})
		return
	}
	if err != nil {
		s.writeError(w, "SubmitForm", err)
		return
	}
	s.writeResponse(w, resp)
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "webflow-http",
		"version": webflow.Version,
	})
}

func (s *Server) external(w http.ResponseWriter, r *http.Request, params map[string]string) domain.ExternalContext {
	if params == nil {
		params = make(map[string]string)
		for k, v := range r.URL.Query() {
			if len(v) > 0 {
				params[k] = v[0]
			}
		}
	}
	return &externalContext{
		params:      params,
		session:     s.session(w, r),
		application: s.application,
	}
}

// session returns the map keyed by the session cookie, issuing a new cookie when
// the request carries none or an expired one.
func (s *Server) session(w http.ResponseWriter, r *http.Request) *domain.AttributeMap {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()

	if c, err := r.Cookie(SessionCookie); err == nil {
		if m, ok := s.sessions.Get(c.Value); ok {
			s.sessions.SetDefault(c.Value, m)
			return m.(*domain.AttributeMap)
		}
	}
	id := uuid.NewString()
	m := domain.NewAttributeMap()
	s.sessions.SetDefault(id, m)
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return m
}

// decodeOptional decodes a JSON body when one is present.
func (s *Server) decodeOptional(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("Invalid request body", "path", r.URL.Path, "error", err)
		return false
	}
	return true
}

func (s *Server) broadcast(id string, resp *ports.Response) {
	if data, err := json.Marshal(resp); err == nil {
		s.Streams.Broadcast(id, string(data))
	}
}

type errorBody struct {
	Error string `json:"error"`
}

// statusFor maps engine errors onto HTTP status codes.
func statusFor(err error) int {
	var noMatch *flow.NoMatchingTransitionError
	switch {
	case errors.Is(err, domain.ErrExecutionNotFound), errors.Is(err, domain.ErrNoSuchFlow):
		return http.StatusNotFound
	case errors.Is(err, webflow.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrStateMismatch),
		errors.Is(err, domain.ErrExecutionEnded),
		errors.Is(err, domain.ErrExecutionNotActive):
		return http.StatusConflict
	case errors.As(err, &noMatch):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(op+" failed", "error", err)
	} else {
		s.logger.Warn(op+" rejected", "error", err, "status", status)
	}
	s.writeJSON(w, status, errorBody{Error: err.Error()})
}

func (s *Server) writeResponse(w http.ResponseWriter, resp *ports.Response) {
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Response encode failed", "error", err)
	}
}
