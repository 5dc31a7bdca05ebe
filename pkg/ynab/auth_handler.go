package ynab

import (
	"encoding/json"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"
)

// SessionStore is a TokenStore that can also be written to.
type SessionStore interface {
	TokenStore
	Set(key, value string)
}

// AuthHandler lets the browser hand over the access token it got from the YNAB OAuth flow, and
// drop it again on logout.
type AuthHandler struct {
	session SessionStore
}

func NewAuthHandler(session SessionStore) *AuthHandler {
	return &AuthHandler{session: session}
}

type sessionDTO struct {
	Authenticated bool `json:"authenticated"`
}

type tokenDTO struct {
	AccessToken string `json:"accessToken"`
}

func (h *AuthHandler) IsAuthenticated(w http.ResponseWriter, r *http.Request) {
	_, ok := h.session.Get(AccessTokenKey)
	writeJSON(w, http.StatusOK, sessionDTO{Authenticated: ok})
}

func (h *AuthHandler) StoreToken(w http.ResponseWriter, r *http.Request) {
	var body tokenDTO
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body format", http.StatusBadRequest)
		return
	}
	token := strings.TrimSpace(body.AccessToken)
	if token == "" {
		http.Error(w, "accessToken is required", http.StatusBadRequest)
		return
	}

	h.session.Set(AccessTokenKey, token)
	log.Debug("YNAB access token stored in session")
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.session.Remove(AccessTokenKey)
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Errorf("failed to encode response: %v", err)
	}
}
