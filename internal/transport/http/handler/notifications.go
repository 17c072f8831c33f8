package handler

import (
	"net/http"
	"strconv"

	"github.com/garage-notify/internal/application/notification"
	"github.com/garage-notify/internal/domain"
	"github.com/garage-notify/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
)

// NotificationHandler handles notification endpoints.
type NotificationHandler struct {
	svc notification.Service
}

func NewNotificationHandler(svc notification.Service) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

// My lists the caller's notifications, newest first.
func (h *NotificationHandler) My(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	list, err := h.svc.List(r.Context(), userID)
	if err != nil {
		httpError(w, err)
		return
	}
	out := make([]domain.NotificationDTO, 0, len(list))
	for i := range list {
		out = append(out, list[i].DTO())
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	n, err := h.svc.UnreadCount(r.Context(), userID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, UnreadEnvelope{Unread: n})
}

// Get returns a single notification of the caller.
func (h *NotificationHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	notificationID, ok := notificationIDParam(w, r)
	if !ok {
		return
	}
	n, err := h.svc.Get(r.Context(), notificationID, userID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, n.DTO())
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	notificationID, ok := notificationIDParam(w, r)
	if !ok {
		return
	}
	n, err := h.svc.MarkRead(r.Context(), notificationID, userID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, n.DTO())
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	updated, err := h.svc.MarkAllRead(r.Context(), userID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, UpdatedEnvelope{Updated: updated})
}

// Send lets an admin or a backend collaborator raise a notification for any user.
func (h *NotificationHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req domain.SendNotificationRequest
	if !decodeValid(w, r, &req) {
		return
	}
	n, err := h.svc.Notify(r.Context(), req.UserID, req.Title, req.Body)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, n.DTO())
}

func notificationIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid notification id")
		return 0, false
	}
	return id, true
}
