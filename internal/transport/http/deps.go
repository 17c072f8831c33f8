package http

import (
	"github.com/garage-notify/internal/application/account"
	"github.com/garage-notify/internal/application/device"
	"github.com/garage-notify/internal/application/notification"
	"github.com/garage-notify/internal/application/push"
	"github.com/garage-notify/internal/transport/http/middleware"
	"github.com/garage-notify/internal/transport/ws"
)

// Deps holds the services the router exposes. cmd/api owns their lifecycle.
type Deps struct {
	Verifier      middleware.TokenVerifier
	Notifications notification.Service
	Devices       device.Service
	Push          push.Service
	Accounts      account.Service
	Hub           *ws.Hub
	// WSLimiter throttles /ws handshakes per client; nil disables it.
	WSLimiter *middleware.RateLimiter
}
