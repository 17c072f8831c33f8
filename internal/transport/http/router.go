package http

import (
	"net/http"

	"github.com/garage-notify/internal/config"
	"github.com/garage-notify/internal/domain"
	"github.com/garage-notify/internal/transport/http/handler"
	appmiddleware "github.com/garage-notify/internal/transport/http/middleware"
	"github.com/garage-notify/internal/transport/ws"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	if cfg.TrustProxyHeaders {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authMw := appmiddleware.Auth(deps.Verifier)

	healthH := handler.NewHealthHandler(deps.Hub)
	notifH := handler.NewNotificationHandler(deps.Notifications)
	deviceH := handler.NewDeviceHandler(deps.Devices, deps.Push)
	accountH := handler.NewAccountHandler(deps.Accounts)
	gateway := ws.NewGateway(deps.Hub, deps.Verifier, ws.SettingsFrom(cfg))

	// The handshake authenticates itself; browsers cannot send headers on upgrade.
	var wsHandler http.Handler = gateway
	if deps.WSLimiter != nil {
		wsHandler = deps.WSLimiter.Limit(wsHandler)
	}
	r.Method(http.MethodGet, "/ws", wsHandler)

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)
		r.Post("/health-check/{action}", healthH.Ping)

		// ── Authenticated routes ─────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/notifications/my", notifH.My)
			r.Get("/notifications/unread-count", notifH.UnreadCount)
			r.Put("/notifications/mark-all-read", notifH.MarkAllRead)
			r.Get("/notifications/{id}", notifH.Get)
			r.Put("/notifications/{id}/read", notifH.MarkRead)
			r.Post("/notifications/register-token", deviceH.RegisterToken)
			r.Delete("/notifications/remove-token", deviceH.RemoveToken)
			r.Post("/notifications/test-push", deviceH.TestPush)
			r.Post("/notifications/test-push-custom", deviceH.TestPushCustom)

			// Admin-only routes
			r.Group(func(r chi.Router) {
				r.Use(appmiddleware.RequireRole(domain.RoleAdmin))

				r.Post("/notifications/send", notifH.Send)
				r.Delete("/users/{id}/notification-data", accountH.DeleteUserData)
			})
		})
	})

	return r
}
