package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/simongrossi/maptoposter-web/internal/api"
	apiMiddleware "github.com/simongrossi/maptoposter-web/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(app.logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		ExposedHeaders: []string{apiMiddleware.TraceHeader, "Content-Disposition"},
		MaxAge:         300,
	}))

	var authMiddleware *apiMiddleware.AuthMiddleware
	if app.jwtService != nil {
		authMiddleware = apiMiddleware.NewAuthMiddleware(app.jwtService)
	}

	posterHandler := api.NewPosterHandler(app.posterService, app.posters, app.healthChecks(), app.logger)
	posterHandler.Routes(r, apiMiddleware.Optional(authMiddleware))

	return r
}
