package ws

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/garage-notify/internal/config"
	jwtinfra "github.com/garage-notify/internal/infrastructure/jwt"
	"github.com/garage-notify/internal/pkg/id"
	"github.com/garage-notify/internal/pkg/token"
	"github.com/gorilla/websocket"
)

// Settings tunes sessions opened by a Gateway.
type Settings struct {
	SendBuffer     int
	PingInterval   time.Duration
	PongWait       time.Duration
	AllowedOrigins []string
}

// SettingsFrom maps the WS_* configuration.
func SettingsFrom(cfg *config.Config) Settings {
	return Settings{
		SendBuffer:     cfg.WS.SendBuffer,
		PingInterval:   cfg.WS.PingInterval,
		PongWait:       cfg.WS.PongWait,
		AllowedOrigins: cfg.AllowedOrigins,
	}
}

func (s Settings) withDefaults() Settings {
	if s.SendBuffer <= 0 {
		s.SendBuffer = 32
	}
	if s.PingInterval <= 0 {
		s.PingInterval = 25 * time.Second
	}
	if s.PongWait <= s.PingInterval {
		s.PongWait = s.PingInterval * 2
	}
	return s
}

// TokenVerifier validates access tokens presented at the handshake.
type TokenVerifier interface {
	Verify(tokenStr string, want jwtinfra.Kind) (*jwtinfra.Claims, error)
}

// Gateway upgrades authenticated HTTP requests to STOMP-over-WebSocket sessions.
type Gateway struct {
	hub      *Hub
	verifier TokenVerifier
	cfg      Settings
	upgrader websocket.Upgrader
}

func NewGateway(hub *Hub, verifier TokenVerifier, cfg Settings) *Gateway {
	cfg = cfg.withDefaults()
	g := &Gateway{hub: hub, verifier: verifier, cfg: cfg}
	g.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		Subprotocols:    []string{"v12.stomp", "v11.stomp", "v10.stomp"},
		CheckOrigin:     g.checkOrigin,
	}
	return g
}

// ServeHTTP authenticates, upgrades and then blocks for the life of the session.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw, ok := token.FromRequest(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing access token")
		return
	}
	claims, err := g.verifier.Verify(raw, jwtinfra.KindAccess)
	if err != nil {
		slog.Info("realtime: handshake rejected", "remote", r.RemoteAddr, "err", err)
		writeError(w, http.StatusUnauthorized, "invalid or expired token")
		return
	}
	userID, err := claims.UserID()
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid or expired token")
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		slog.Warn("realtime: upgrade failed", "user_id", userID, "err", err)
		return
	}

	s := newSession(id.New(), userID, g.hub, conn, g.cfg)
	if !g.hub.register(s) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}
	slog.Info("realtime: session opened", "session_id", s.ID, "user_id", userID)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writeLoop()
	}()

	err = s.readLoop()
	g.hub.remove(s)
	s.shutdown()
	<-writerDone

	if err != nil && !errors.Is(err, errDisconnect) && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		slog.Debug("realtime: session read ended", "session_id", s.ID, "err", err)
	}
	slog.Info("realtime: session closed", "session_id", s.ID, "user_id", userID)
}

func (g *Gateway) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(g.cfg.AllowedOrigins) == 0 {
		return true
	}
	for _, allowed := range g.cfg.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	u, err := url.Parse(origin)
	return err == nil && strings.EqualFold(u.Host, r.Host)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
