package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func (c controller) GetMux() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(c.requestIdMw)
	r.Use(c.requestLoggingMw)
	r.Use(cors.AllowAll().Handler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("OK"))
		})
		r.Get("/state", c.getState)
		r.Route("/player", func(r chi.Router) {
			r.Post("/play", c.play)
			r.Post("/pause", c.pause)
			r.Post("/seek", c.seek)
			r.Post("/pointer-down", c.pointerDown)
			r.Post("/pointer-up", c.pointerUp)
			r.Post("/progress", c.progress)
			r.Post("/playing", c.playing)
			r.Post("/paused", c.paused)
		})
		r.Post("/media", c.selectMedia)
		r.Post("/search", c.search)
	})

	return r
}
