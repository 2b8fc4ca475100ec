// Package httpapi assembles the chi router for the service.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/khshakilahamed/ads-generator/internal/http/handlers"
	"github.com/khshakilahamed/ads-generator/internal/infra"
	"github.com/khshakilahamed/ads-generator/internal/middleware"
)

// NewRouter wires the HTTP surface.
func NewRouter(app *handlers.App, cfg *infra.Config, staticDir string) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(app.Logger),
		middleware.CORS([]string{"http://localhost:3000"}),
	)

	r.Get("/v1/healthz", app.Health)

	if staticDir != "" {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))
	}

	r.Route("/v1/ads", func(r chi.Router) {
		r.Use(middleware.Owner)
		r.With(middleware.RateLimit(cfg.RateLimitPerMin, time.Minute)).Post("/", app.CreateAd)
		r.Get("/", app.ListAds)
		r.Get("/watch", app.Watch)
		r.Get("/{ad_id}", app.GetAd)
		r.With(middleware.RateLimit(cfg.RateLimitPerMin, time.Minute)).Post("/{ad_id}/video", app.AnimateAd)
	})

	return r
}
