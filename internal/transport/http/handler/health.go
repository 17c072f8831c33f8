package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// SessionCounter reports open realtime sessions.
type SessionCounter interface {
	SessionCount() int
}

// HealthHandler handles health-check endpoints.
type HealthHandler struct {
	sessions SessionCounter
}

func NewHealthHandler(sessions SessionCounter) *HealthHandler {
	return &HealthHandler{sessions: sessions}
}

func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	switch chi.URLParam(r, "action") {
	case "ping":
		writeJSON(w, http.StatusOK, MessageEnvelope{Message: "pong"})
	case "realtime":
		n := 0
		if h.sessions != nil {
			n = h.sessions.SessionCount()
		}
		writeJSON(w, http.StatusOK, map[string]int{"sessions": n})
	default:
		writeError(w, http.StatusBadRequest, "unknown action")
	}
}
