package refresh

import (
	"net/http"

	"github.com/billsforynab/bills/internal/rest"
	"github.com/gorilla/mux"
)

type Handler struct {
	refreshService *Service
}

func NewHandler(refreshService *Service) *Handler {
	return &Handler{refreshService: refreshService}
}

func (h *Handler) RefreshBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := h.refreshService.RefreshBudgets(r.Context())
	if err != nil {
		rest.WriteServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, budgets)
}

func (h *Handler) RefreshBudget(w http.ResponseWriter, r *http.Request) {
	result, err := h.refreshService.RefreshBudget(r.Context(), mux.Vars(r)["budgetId"])
	if err != nil {
		rest.WriteServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, result)
}
