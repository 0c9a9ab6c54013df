package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/lazypower/rapport/internal/auth"
	"github.com/lazypower/rapport/internal/engine"
	"github.com/lazypower/rapport/internal/metrics"
	"github.com/lazypower/rapport/internal/store"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// maxBodySize caps JSON request bodies.
const maxBodySize = 64 * 1024

// Options configures a Server beyond its store and engine.
type Options struct {
	// Validator enables bearer-token auth. Nil runs single-user.
	Validator *auth.Validator
	// DevOwner is the owner used without a token or X-Rapport-User header.
	DevOwner string
	// CORSOrigins enables CORS for the listed origins.
	CORSOrigins []string
	Logger      zerolog.Logger
}

// Server is the rapport HTTP API server.
type Server struct {
	store   store.Store
	engine  *engine.Engine
	router  chi.Router
	log     zerolog.Logger
	opts    Options
	version string
	started time.Time
}

// New creates a new Server over st and eng.
func New(st store.Store, eng *engine.Engine, version string, opts Options) *Server {
	s := &Server{
		store:   st,
		engine:  eng,
		log:     opts.Logger.With().Str("component", "http").Logger(),
		opts:    opts,
		version: version,
		started: time.Now(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.instrument)
	r.Use(middleware.Recoverer)
	if len(s.opts.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.opts.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", auth.UserHeader},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(s.opts.Validator, s.opts.DevOwner))

			r.Post("/bootstrap", s.handleBootstrap)

			r.Get("/people", s.handleListPeople)
			r.Post("/people", s.handleCreatePerson)
			r.Get("/people/{personID}", s.handleGetPerson)
			r.Delete("/people/{personID}", s.handleDeletePerson)
			r.Put("/people/{personID}/routine", s.handleSetRoutine)
			r.Get("/people/{personID}/report", s.handleReport)

			r.Get("/interactions", s.handleListInteractions)
			r.Post("/interactions", s.handleAddInteraction)

			r.Get("/radar", s.handleRadar)
			r.Get("/ideas", s.handleIdeas)
		})
	})

	s.router = r
}

// instrument records request metrics and logs each request.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		elapsed := time.Since(start)

		metrics.HTTPRequests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		metrics.HTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())

		ev := s.log.Debug()
		if status >= 500 {
			ev = s.log.Error()
		}
		ev.Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Dur("duration", elapsed).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := true
	if err := s.store.Ping(r.Context()); err != nil {
		dbOK = false
		s.log.Warn().Err(err).Msg("store ping failed")
	}

	body := map[string]any{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.started).Seconds(),
		"db":      dbOK,
		"store":   s.store.Describe(),
	}
	if b, ok := s.store.(breakerStore); ok {
		body["breaker"] = b.State()
	}
	writeJSON(w, http.StatusOK, body)
}

// breakerStore is a store that guards its backend with a circuit breaker.
type breakerStore interface {
	State() string
}

// handleBootstrap records the caller's profile on first sign-in.
func (s *Server) handleBootstrap(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFrom(r.Context())
	if err := s.store.UpsertProfile(r.Context(), id.OwnerID, id.Email); err != nil {
		s.internalError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "owner": id.OwnerID})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	s.log.Error().Err(err).
		Str("path", r.URL.Path).
		Str("request_id", middleware.GetReqID(r.Context())).
		Msg("request failed")
	writeError(w, http.StatusInternalServerError, "internal error")
}

// decodeJSON reads a bounded JSON body into dst and validates it.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, engine.FieldError(err).Error())
		return false
	}
	return true
}
