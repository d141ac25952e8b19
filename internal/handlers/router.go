package handlers

import (
	"net/http"

	"github.com/diewo77/go-devis/httpx"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// NewRouter mounts the local JSON API.
func NewRouter(h *QuoteHandler, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(httpx.Logging(log))
	r.Use(httpx.Recover(log))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/form", func(r chi.Router) {
			r.Get("/", h.Form)
			r.Put("/", h.UpdateForm)
			r.Post("/lines", h.AddLine)
			r.Put("/lines/{index}", h.UpdateLine)
			r.Delete("/lines/{index}", h.RemoveLine)
			r.Post("/new", h.New)
			r.Post("/generate", h.Generate)
			r.Post("/validate", h.Validate)
			r.Post("/save", h.Save)
			r.Get("/pdf", h.PDF)
		})

		r.Get("/quotes", h.List)
		r.Delete("/quotes", h.Clear)
		r.Post("/quotes/{id}/load", h.Load)
		r.Delete("/quotes/{id}", h.Delete)

		r.Get("/ai/status", h.AIStatus)
		r.Get("/notifications", h.Notifications)
	})

	return r
}
