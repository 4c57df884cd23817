package server

import (
	"net/http"

	"github.com/cloo-solutions/knowbase/internal/api"
	"github.com/cloo-solutions/knowbase/internal/api/handlers"
	"github.com/cloo-solutions/knowbase/internal/api/middleware"
	"github.com/go-chi/chi/v5"
)

type RouterConfig struct {
	KnowledgeHandler *handlers.KnowledgeHandler
	StatusHandler    *handlers.StatusHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 5 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/items", func(r chi.Router) {
		r.Post("/", cfg.KnowledgeHandler.Add)
		r.Put("/{id}", cfg.KnowledgeHandler.Update)
		r.Delete("/{id}", cfg.KnowledgeHandler.Delete)
	})

	r.Post("/search", cfg.KnowledgeHandler.Search)
	r.Get("/export", cfg.KnowledgeHandler.Export)
	r.Get("/domains", cfg.KnowledgeHandler.Domains)
	r.Get("/categories", cfg.KnowledgeHandler.Categories)
	r.Get("/tags", cfg.KnowledgeHandler.Tags)
	r.Get("/status", cfg.StatusHandler.Get)

	return r
}
