package token

import (
	"net/http"
	"strings"
)

const bearerPrefix = "bearer "

// FromHeader returns the token of an "Authorization: Bearer <t>" value. The
// scheme is matched case-insensitively.
func FromHeader(value string) (string, bool) {
	if len(value) <= len(bearerPrefix) || !strings.EqualFold(value[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}
	t := strings.TrimSpace(value[len(bearerPrefix):])
	return t, t != ""
}

// FromRequest finds a bearer token for a handshake request. Browsers cannot set
// headers on WebSocket upgrades, so the query is consulted next: access_token
// holds the bare token, authorization holds "Bearer <t>".
func FromRequest(r *http.Request) (string, bool) {
	if t, ok := FromHeader(r.Header.Get("Authorization")); ok {
		return t, true
	}
	q := r.URL.Query()
	if t := strings.TrimSpace(q.Get("access_token")); t != "" {
		return t, true
	}
	return FromHeader(q.Get("authorization"))
}
