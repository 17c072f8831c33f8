package handler

import (
	"net/http"
	"strconv"

	"github.com/garage-notify/internal/application/account"
	"github.com/go-chi/chi/v5"
)

// AccountHandler exposes the account-deletion cascade to admins.
type AccountHandler struct {
	svc account.Service
}

func NewAccountHandler(svc account.Service) *AccountHandler { return &AccountHandler{svc: svc} }

func (h *AccountHandler) DeleteUserData(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || userID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	res, err := h.svc.DeleteUserData(r.Context(), userID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
