package category

import (
	"net/http"

	"github.com/billsforynab/bills/internal/rest"
	"github.com/gorilla/mux"
)

type Handler struct {
	categoryService Service
}

func NewHandler(categoryService Service) *Handler {
	return &Handler{categoryService: categoryService}
}

// List returns the category groups of a budget, or with ?flat=true the visible categories only.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	budgetID := mux.Vars(r)["budgetId"]

	if r.URL.Query().Get("flat") == "true" {
		categories, err := h.categoryService.Categories(r.Context(), budgetID)
		if err != nil {
			rest.WriteServiceError(w, err)
			return
		}
		rest.WriteJSON(w, http.StatusOK, categories)
		return
	}

	groups, err := h.categoryService.List(r.Context(), budgetID)
	if err != nil {
		rest.WriteServiceError(w, err)
		return
	}
	rest.WriteJSON(w, http.StatusOK, groups)
}
