package handler

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"

	"github.com/garage-notify/internal/application/device"
	"github.com/garage-notify/internal/application/push"
	"github.com/garage-notify/internal/domain"
	"github.com/garage-notify/internal/transport/http/middleware"
)

// DeviceHandler handles device token endpoints and test pushes.
type DeviceHandler struct {
	devices device.Service
	push    push.Service
}

func NewDeviceHandler(devices device.Service, pushSvc push.Service) *DeviceHandler {
	return &DeviceHandler{devices: devices, push: pushSvc}
}

func (h *DeviceHandler) RegisterToken(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.RegisterDeviceRequest
	if !decodeValid(w, r, &req) {
		return
	}
	if _, err := h.devices.Register(r.Context(), userID, req.DeviceToken, req.Platform); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusEnvelope{Status: "ok"})
}

func (h *DeviceHandler) RemoveToken(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	deviceToken := strings.TrimSpace(r.URL.Query().Get("deviceToken"))
	if deviceToken == "" {
		writeError(w, http.StatusBadRequest, "deviceToken is required")
		return
	}
	if err := h.devices.Unregister(r.Context(), deviceToken, userID); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StatusEnvelope{Status: "ok"})
}

func (h *DeviceHandler) TestPush(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	sent := h.push.SendToUser(r.Context(), userID, "Test Notification", "Hello from backend",
		map[string]string{"type": "TEST"}, push.Options{})
	writeJSON(w, http.StatusOK, SentEnvelope{Sent: sent})
}

// customPushRequest accepts urgent as a JSON bool or as "true"/"false".
type customPushRequest struct {
	Title     string   `json:"title" validate:"max=255"`
	Message   string   `json:"message" validate:"max=4000"`
	ChannelID string   `json:"channelId" validate:"max=128"`
	Sound     string   `json:"sound" validate:"max=128"`
	Urgent    flexBool `json:"urgent"`
}

type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	v, err := strconv.ParseBool(string(bytes.Trim(data, `"`)))
	if err != nil {
		v = false
	}
	*b = flexBool(v)
	return nil
}

func (h *DeviceHandler) TestPushCustom(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req customPushRequest
	if !decodeValid(w, r, &req) {
		return
	}
	if req.Title == "" {
		req.Title = "Custom Test"
	}
	if req.Message == "" {
		req.Message = "Hello with custom sound/channel"
	}
	sent := h.push.SendToUser(r.Context(), userID, req.Title, req.Message,
		map[string]string{"type": "TEST"},
		push.Options{ChannelID: req.ChannelID, Sound: req.Sound, Urgent: bool(req.Urgent)})
	writeJSON(w, http.StatusOK, SentEnvelope{Sent: sent})
}
