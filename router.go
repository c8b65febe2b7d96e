package main

import (
	"net/http"

	"herbtrace/models"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	httpSwagger "github.com/swaggo/http-swagger"
)

// routes wires middlewares and endpoints. Adjust CORS for your frontend hosts.
func (a *App) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID, middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://127.0.0.1:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/api/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=60")
		_, _ = w.Write(openapiYAML)
	})

	r.Mount("/swagger", httpSwagger.Handler(
		httpSwagger.URL("/api/openapi.yaml"),
	))

	r.Route("/api", func(api chi.Router) {
		api.Post("/auth/register", a.handleRegister)
		api.Post("/auth/login", a.handleLogin)

		// consumers reach these from a scanned QR code without an account
		api.Get("/track", a.handleTrack)
		api.Get("/track/qr", a.handleTrackQR)
		api.Get("/track/stream", a.handleTrackStream)
		api.Get("/herbs", a.handleHerbs)
		api.Get("/zones", a.handleZones)

		api.Group(func(pr chi.Router) {
			pr.Use(a.authMiddleware)
			pr.Get("/me", a.handleMe)
			pr.Get("/weather", a.handleWeather)

			pr.Route("/batches", func(br chi.Router) {
				br.Get("/", a.handleListBatches)
				br.Get("/{id}/qr", a.handleBatchQR)
				br.Post("/{id}/events", a.handleAppendEvent)
			})

			pr.With(requireRoles(models.RoleCollector, models.RoleAdmin)).
				Post("/collections", a.handleCreateCollection)

			pr.Route("/ratings", func(rr chi.Router) {
				rr.Get("/stats", a.handleRatingStats)
				rr.Post("/", a.handleSubmitRating)
				rr.Post("/reset", a.handleResetRating)
			})
		})
	})

	return r
}
