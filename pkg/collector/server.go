package collector

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vlhsmylv/standlog-script/pkg/log"
	"github.com/vlhsmylv/standlog-script/pkg/metrics"
	"github.com/vlhsmylv/standlog-script/pkg/types"
)

// session is what idempotence requires the dev collector to remember about
// one anonymous id. Nothing else is stored.
type session struct {
	ID          string
	AnonymousID string
	CreatedAt   time.Time
	Events      int
}

// Server is the reference collector for local development and integration
// tests. It implements the /session and /events interface the tracker
// speaks, with session creation idempotent on the anonymous id.
type Server struct {
	mu       sync.Mutex
	byAnon   map[string]*session // anonymous id -> session
	sessions map[string]*session // session id -> session

	logger zerolog.Logger
}

// NewServer creates an empty dev collector
func NewServer() *Server {
	return &Server{
		byAnon:   make(map[string]*session),
		sessions: make(map[string]*session),
		logger:   log.WithComponent("collector"),
	}
}

// Router builds the HTTP surface: /session, /events, /healthz, /metrics.
// Browsers call the collector cross-origin, so CORS is wide open.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Post("/session", s.handleSession)
	r.Post("/events", s.handleEvents)
	r.Get("/healthz", metrics.HealthHandler())
	r.Handle("/metrics", metrics.Handler())
	return r
}

// handleSession creates or returns the session for an anonymous id.
// Calling it again with the same anonymous id returns the existing
// session; it never creates a duplicate.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	var req types.SessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AnonymousID == "" {
		metrics.CollectorRequests.WithLabelValues("session", "error").Inc()
		writeJSON(w, http.StatusBadRequest, types.SessionResponse{Success: false})
		return
	}

	s.mu.Lock()
	sess, ok := s.byAnon[req.AnonymousID]
	if !ok {
		sess = &session{
			ID:          "session_" + uuid.NewString(),
			AnonymousID: req.AnonymousID,
			CreatedAt:   time.Now(),
		}
		s.byAnon[req.AnonymousID] = sess
		s.sessions[sess.ID] = sess
	}
	s.mu.Unlock()

	if !ok {
		s.logger.Debug().Str("session_id", sess.ID).Msg("session created")
	}
	metrics.CollectorRequests.WithLabelValues("session", "ok").Inc()
	writeJSON(w, http.StatusOK, types.SessionResponse{
		ID:          sess.ID,
		AnonymousID: sess.AnonymousID,
		Success:     true,
	})
}

// inboundEvent decodes one wire event without binding the payload to a
// concrete type; the dev collector only counts events.
type inboundEvent struct {
	Type     string              `json:"type"`
	Metadata types.EventMetadata `json:"metadata"`
	Data     json.RawMessage     `json:"data"`
}

type inboundBatch struct {
	SessionID string         `json:"sessionId"`
	Events    []inboundEvent `json:"events"`
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	var req inboundBatch
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == "" {
		metrics.CollectorRequests.WithLabelValues("events", "error").Inc()
		writeJSON(w, http.StatusBadRequest, types.EventsResponse{Success: false})
		return
	}

	s.mu.Lock()
	if sess, ok := s.sessions[req.SessionID]; ok {
		sess.Events += len(req.Events)
	}
	s.mu.Unlock()

	metrics.CollectorRequests.WithLabelValues("events", "ok").Inc()
	metrics.CollectorEventsReceived.Add(float64(len(req.Events)))
	writeJSON(w, http.StatusOK, types.EventsResponse{
		Success:         true,
		EventsProcessed: len(req.Events),
		SessionID:       req.SessionID,
	})
}

// SessionCount returns the number of distinct sessions seen
func (s *Server) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// EventCount returns total events received for one session id
func (s *Server) EventCount(sessionID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[sessionID]; ok {
		return sess.Events
	}
	return 0
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
