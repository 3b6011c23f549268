package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/Xurify/flags.games-server/internal/middleware"
)

// RouterOptions allows customization of router setup for tests.
type RouterOptions struct {
	DisableRateLimiting  bool
	DisableRequestLogger bool
}

// SetupRouter creates the application router with all routes and middleware.
func SetupRouter(h *Handler, opts *RouterOptions) *chi.Mux {
	if opts == nil {
		opts = &RouterOptions{}
	}

	r := chi.NewRouter()

	if !opts.DisableRequestLogger {
		r.Use(chimiddleware.Logger)
	}
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)

	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(h.cfg.Server.AllowedOrigins))
	r.Use(middleware.RequestSizeLimiter(h.cfg.Server.MaxRequestSize))

	if !opts.DisableRateLimiting {
		rateLimiter := middleware.NewRateLimiter(h.cfg.Server.RateLimit, h.cfg.Server.RateLimitBurst)
		r.Use(rateLimiter.Middleware())
	}

	// The upgrade route sits outside the timeout middleware; sessions are
	// long-lived by design.
	r.Get("/ws", h.WebSocket)

	r.Route("/api", func(r chi.Router) {
		r.Use(chimiddleware.Timeout(30 * time.Second))

		r.Get("/status", h.Status)
		r.Get("/healthz", h.Healthz)
		r.Get("/stats", h.Stats)
		r.Get("/rooms/{inviteCode}", h.RoomByInviteCode)
		r.Post("/auth/session", h.CreateSession)

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.AdminAuth(h.cfg.Server.AdminAPIKey))
			r.Get("/rooms", h.AdminRooms)
			r.Get("/users", h.AdminUsers)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})

	return r
}
