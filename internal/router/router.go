package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"qr-lost-found/internal/config"
	"qr-lost-found/internal/handler"
	"qr-lost-found/internal/middleware"
	"qr-lost-found/internal/websocket"
)

func New(
	cfg *config.Config,
	authMiddleware *middleware.AuthMiddleware,
	authHandler *handler.AuthHandler,
	itemHandler *handler.ItemHandler,
	publicHandler *handler.PublicHandler,
	healthHandler *handler.HealthHandler,
	metricsHandler http.Handler,
	hub *websocket.Hub,
) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(rateLimitMiddleware.Handler)

	r.Get("/health", healthHandler.Check)
	r.Handle("/metrics", metricsHandler)
	r.Get("/ws", func(w http.ResponseWriter, req *http.Request) {
		websocket.ServeWS(hub, w, req)
	})

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.Timeout(cfg.RequestTimeout))

		api.Route("/auth", func(auth chi.Router) {
			auth.Post("/signup", authHandler.Signup)
			auth.Post("/login", authHandler.Login)
			auth.Post("/refresh", authHandler.Refresh)
			auth.With(authMiddleware.RequireAuth).Post("/logout", authHandler.Logout)
			auth.With(authMiddleware.RequireAuth).Get("/me", authHandler.Me)
		})

		// Owner endpoints. Ownership itself is checked in the service layer;
		// the middleware only establishes who is acting.
		api.With(authMiddleware.RequireAuth).Post("/items", itemHandler.Register)
		api.With(authMiddleware.RequireAuth).Get("/items", itemHandler.List)
		api.With(authMiddleware.RequireAuth).Delete("/items/{qr_code}", itemHandler.Unlink)
		api.With(authMiddleware.RequireAuth).Post("/items/{qr_code}/pickup", itemHandler.Pickup)
		api.With(authMiddleware.RequireAuth).Post("/items/{qr_code}/reset", itemHandler.Reset)

		// Finder endpoints are anonymous on purpose: a finder should never
		// need an account to return an item.
		api.Get("/public/items/{qr_code}", publicHandler.GetItem)
		api.Post("/public/items/{qr_code}/report-found", publicHandler.ReportFound)
		api.Post("/public/items/{qr_code}/drop-off", publicHandler.DropOff)
		api.Get("/locations", publicHandler.Locations)
	})

	return r
}
