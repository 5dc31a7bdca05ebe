package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/billsforynab/bills/pkg/store"
	"github.com/billsforynab/bills/pkg/ynab"
	log "github.com/sirupsen/logrus"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// WriteJSON encodes body with the given status. A nil body only writes the status.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Errorf("failed to encode response: %v", err)
	}
}

func WriteError(w http.ResponseWriter, status int, message, details string) {
	WriteJSON(w, status, ErrorResponse{Error: message, Details: details})
}

// WriteServiceError maps errors coming from the services to a status code.
func WriteServiceError(w http.ResponseWriter, err error) {
	var rejected *ynab.RemoteRejectedError
	switch {
	case errors.Is(err, ynab.ErrUnauthenticated), errors.Is(err, ynab.ErrUnauthorized):
		WriteError(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	case errors.As(err, &rejected):
		WriteError(w, http.StatusBadGateway, "YNAB rejected the request", err.Error())
	case errors.Is(err, ynab.ErrNetwork):
		WriteError(w, http.StatusServiceUnavailable, "YNAB is unreachable", err.Error())
	case errors.Is(err, store.ErrNotFound):
		WriteError(w, http.StatusNotFound, "Not found", err.Error())
	default:
		log.Errorf("request failed: %v", err)
		WriteError(w, http.StatusInternalServerError, "Internal server error", err.Error())
	}
}
