package server

import (
	"log/slog"
	"net/http"

	"github.com/claude/nextrep/internal/ingest/alpha"
	"github.com/claude/nextrep/internal/pipeline"
	"github.com/go-chi/chi/v5"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	pipe   *pipeline.Pipeline
	alpha  *alpha.Provider
	log    *slog.Logger
	apiKey string
	whois  WhoIser
	router chi.Router
}

// New creates a new Server with all routes configured.
func New(pipe *pipeline.Pipeline, alphaProvider *alpha.Provider, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		pipe:   pipe,
		alpha:  alphaProvider,
		log:    log,
		apiKey: apiKey,
		router: chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// SetTailscale resolves request identities through the tailnet. Without it
// every caller is the local dev user.
func (s *Server) SetTailscale(whois WhoIser) {
	s.whois = whois
}

// Mount attaches an extra handler, such as the MCP endpoint or /metrics.
func (s *Server) Mount(pattern string, h http.Handler) {
	s.router.Mount(pattern, h)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	// Import endpoints (API key required)
	s.router.Route("/api/v1/import", func(r chi.Router) {
		r.Use(APIKeyAuth(s.apiKey))
		r.Post("/alpha", s.handleAlphaImport)
	})

	// App endpoints (no API key; tsnet handles access)
	s.router.Group(func(r chi.Router) {
		r.Use(s.identity)

		r.Get("/api/v1/me", s.handleMe)

		r.Get("/api/v1/plans", s.handlePlans)
		r.Post("/api/v1/plans", s.handleSavePlan)
		r.Delete("/api/v1/plans/{id}", s.handleRemovePlan)
		r.Patch("/api/v1/plans/{id}/exercises/{exerciseID}/sets/{setID}", s.handleUpdateSet)
		r.Post("/api/v1/plans/{id}/exercises/{exerciseID}/toggle", s.handleToggleExercise)
		r.Post("/api/v1/plans/{id}/finish", s.handleFinish)

		r.Get("/api/v1/streak", s.handleStreak)
		r.Get("/api/v1/progress/cards", s.handleCards)
		r.Get("/api/v1/progress/weekly", s.handleWeekly)
		r.Get("/api/v1/progress/best", s.handleBestVolume)
		r.Get("/api/v1/today", s.handleToday)
		r.Get("/api/v1/workouts/{id}/summary", s.handleSummary)

		r.Get("/api/v1/events", s.handleEvents)
	})
}
