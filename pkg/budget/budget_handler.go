package budget

import (
	"net/http"

	"github.com/billsforynab/bills/internal/rest"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type Handler struct {
	budgetService Service
}

func NewHandler(budgetService Service) *Handler {
	return &Handler{budgetService}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	budgets, err := h.budgetService.List(r.Context())
	if err != nil {
		rest.WriteServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, budgets)
}

func (h *Handler) SetDefault(w http.ResponseWriter, r *http.Request) {
	budgetID := mux.Vars(r)["budgetId"]
	log.Debugf("setting default budget to %s", budgetID)

	if err := h.budgetService.SetDefault(r.Context(), budgetID); err != nil {
		rest.WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	budgetID := mux.Vars(r)["budgetId"]

	if err := h.budgetService.Delete(r.Context(), budgetID); err != nil {
		rest.WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
