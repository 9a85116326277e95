// Package server exposes the trace engine over HTTP.
package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/serenqa/serentrace/internal/alignment"
	"github.com/serenqa/serentrace/internal/leaderboard"
	"github.com/serenqa/serentrace/internal/memory"
	"github.com/serenqa/serentrace/internal/storage"
)

type Server struct {
	Router *chi.Mux
	Port   int

	logger   *slog.Logger
	registry *Registry
	aligner  *alignment.Engine
	folder   *memory.Folder
	board    *leaderboard.Leaderboard
	store    storage.Store
}

// New assembles the router and middleware chain around the engine
// components. store may be nil for memory-only operation.
func New(port int, logger *slog.Logger, registry *Registry, aligner *alignment.Engine, folder *memory.Folder, board *leaderboard.Leaderboard, store storage.Store) *Server {
	r := chi.NewRouter()

	// Apply middleware in order
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))
	r.Use(TimeoutMiddleware(30 * time.Second))
	r.Use(middleware.Recoverer)

	// Wrap with OpenTelemetry HTTP instrumentation
	r.Use(func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, "serentrace")
	})

	s := &Server{
		Router:   r,
		Port:     port,
		logger:   logger,
		registry: registry,
		aligner:  aligner,
		folder:   folder,
		board:    board,
		store:    store,
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/traces", s.handleCreateTrace)
		r.Get("/traces/{id}", s.handleGetTrace)
		r.Post("/traces/{id}/events", s.handleAppendEvent)
		r.Get("/traces/{id}/provenance", s.handleProvenance)
		r.Get("/traces/{id}/fold", s.handleFold)

		r.Post("/align", s.handleAlign)
		r.Get("/alignment/average", s.handleAlignmentAverage)
		r.Get("/alignment/stats", s.handleAlignmentStats)

		r.Post("/leaderboard/contributors", s.handleSubmitContribution)
		r.Get("/leaderboard", s.handleLeaderboard)
		r.Get("/leaderboard/render", s.handleLeaderboardRender)
	})

	return s
}

func (s *Server) Start() error {
	s.logger.Info("starting server", slog.Int("port", s.Port))
	return http.ListenAndServe(fmt.Sprintf(":%d", s.Port), s.Router)
}
