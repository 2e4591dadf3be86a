package internal

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/karloscodes/cartridge"
	cartridgemiddleware "github.com/karloscodes/cartridge/middleware"

	v1 "hsrelay/api/v1"
	"hsrelay/internal/config"
	"hsrelay/internal/http"
)

// Handlers groups the HTTP handlers mounted by MountAppRoutes.
type Handlers struct {
	Events  *v1.EventsHandler
	Visitor *v1.VisitorHandler
	SDK     *v1.SDKHandler
	Health  *http.HealthHandler
}

// publicCORSConfig returns the CORS setup shared by the public endpoints.
// Tracking cookies need credentialed requests, so the caller's origin is
// echoed back instead of a wildcard, and only when it passes the same host
// check the handlers apply.
func publicCORSConfig(cfg *config.Config) *cors.Config {
	allowed := cfg.AllowedOriginList()
	return &cors.Config{
		AllowOriginsFunc: func(origin string) bool {
			return v1.OriginAllowed(origin, allowed)
		},
		AllowMethods:     "POST,GET,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Referrer, User-Agent",
		AllowCredentials: true,
	}
}

// MountAppRoutes mounts all application routes using cartridge's route API
func MountAppRoutes(srv *cartridge.Server, cfg *config.Config, h Handlers) {
	// Rate limiter for the public API (70 requests per minute per IP).
	// WithEnv turns it off in development and test.
	publicRateLimiter := cartridgemiddleware.RateLimiter(
		cartridgemiddleware.WithMax(70),
		cartridgemiddleware.WithDuration(time.Minute),
		cartridgemiddleware.WithEnv(cfg),
	)

	corsConfig := publicCORSConfig(cfg)

	// Event ingestion: CORS, rate limiting and the global Sec-Fetch-Site check
	publicAPIConfig := &cartridge.RouteConfig{
		EnableCORS:       true,
		CORSConfig:       corsConfig,
		CustomMiddleware: []fiber.Handler{publicRateLimiter},
	}

	// SDK delivery is loaded by <script> tags, no Sec-Fetch-Site needed for GET
	sdkConfig := &cartridge.RouteConfig{
		EnableCORS:       true,
		CORSConfig:       corsConfig,
		CustomMiddleware: []fiber.Handler{publicRateLimiter},
	}

	noContent := func(ctx *cartridge.Context) error {
		return ctx.SendStatus(fiber.StatusNoContent)
	}

	// === ROOT ROUTES ===
	srv.Get("/_health", h.Health.Show)
	srv.Head("/_health", h.Health.Show)

	// === PUBLIC API ROUTES ===
	srv.Post("/x/api/v1/events", h.Events.Create, publicAPIConfig)
	srv.Options("/x/api/v1/events", noContent, publicAPIConfig)
	srv.Post("/x/api/v1/events/beacon", h.Events.Beacon, publicAPIConfig)
	srv.Options("/x/api/v1/events/beacon", noContent, publicAPIConfig)
	srv.Get("/x/api/v1/me", h.Visitor.Show, publicAPIConfig)
	srv.Options("/x/api/v1/me", noContent, publicAPIConfig)

	// === SDK ROUTES ===
	srv.Get("/y/api/v1/sdk.js", h.SDK.Show, sdkConfig)
}
