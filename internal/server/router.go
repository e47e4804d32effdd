package server

import (
	"net/http"

	"github.com/cloo-solutions/lexidx/internal/api"
	"github.com/cloo-solutions/lexidx/internal/api/handlers"
	"github.com/cloo-solutions/lexidx/internal/api/middleware"
	"github.com/go-chi/chi/v5"
)

type RouterConfig struct {
	DocumentHandler *handlers.DocumentHandler
	SearchHandler   *handlers.SearchHandler
	AskHandler      *handlers.AskHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 64 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/documents", func(r chi.Router) {
		r.Post("/", cfg.DocumentHandler.Upload)
		r.Get("/", cfg.DocumentHandler.List)
		r.Get("/{id}", cfg.DocumentHandler.Get)
		r.Get("/{id}/chunks", cfg.DocumentHandler.GetChunks)
		r.Delete("/{id}", cfg.DocumentHandler.Delete)
	})

	r.Route("/search", func(r chi.Router) {
		r.Post("/", cfg.SearchHandler.Search)
		r.Post("/advanced", cfg.SearchHandler.SearchAdvanced)
		r.Get("/suggestions", cfg.SearchHandler.Suggestions)
	})

	r.Post("/ask", cfg.AskHandler.Ask)

	return r
}
