package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/regulaworks/corpagent/internal/api"
	"github.com/regulaworks/corpagent/internal/api/handlers"
	"github.com/regulaworks/corpagent/internal/api/middleware"
)

type RouterConfig struct {
	// APIToken enables static bearer auth when non-empty.
	APIToken         string
	AnalysisHandler  *handlers.AnalysisHandler
	KnowledgeHandler *handlers.KnowledgeHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 25 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.TokenAuth(cfg.APIToken))

		r.Post("/analysis", cfg.AnalysisHandler.Create)

		r.Route("/knowledge", func(r chi.Router) {
			r.Post("/reindex", cfg.KnowledgeHandler.Reindex)
			r.Get("/sources", cfg.KnowledgeHandler.ListSources)
		})
	})

	return r
}
