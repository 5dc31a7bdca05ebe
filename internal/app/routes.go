package app

import (
	"github.com/gorilla/mux"
)

// RegisterRoutes registers all API endpoints.
func RegisterRoutes(r *mux.Router, deps *Dependencies) {

	// Session
	r.HandleFunc("/api/session", deps.AuthHandler.IsAuthenticated).Methods("GET")
	r.HandleFunc("/api/session/token", deps.AuthHandler.StoreToken).Methods("PUT")
	r.HandleFunc("/api/session/token", deps.AuthHandler.Logout).Methods("DELETE")

	// Budgets
	r.HandleFunc("/api/budgets", deps.BudgetHandler.List).Methods("GET")
	r.HandleFunc("/api/budgets/refresh", deps.RefreshHandler.RefreshBudgets).Methods("POST")
	r.HandleFunc("/api/budgets/{budgetId}/default", deps.BudgetHandler.SetDefault).Methods("PUT")
	r.HandleFunc("/api/budgets/{budgetId}", deps.BudgetHandler.Delete).Methods("DELETE")
	r.HandleFunc("/api/budgets/{budgetId}/refresh", deps.RefreshHandler.RefreshBudget).Methods("POST")

	// Bills
	r.HandleFunc("/api/budgets/{budgetId}/bills", deps.BillHandler.List).Methods("GET")
	r.HandleFunc("/api/budgets/{budgetId}/bills/summary", deps.BillHandler.Summary).Methods("GET")
	r.HandleFunc("/api/budgets/{budgetId}/bills", deps.BillHandler.Create).Methods("POST")
	r.HandleFunc("/api/budgets/{budgetId}/bills/{billId}", deps.BillHandler.Update).Methods("PUT")
	r.HandleFunc("/api/budgets/{budgetId}/bills/{billId}/excluded", deps.BillHandler.SetExcluded).Methods("PUT")
	r.HandleFunc("/api/budgets/{budgetId}/bills/{billId}/publish", deps.BillHandler.Publish).Methods("POST")
	r.HandleFunc("/api/budgets/{budgetId}/bills/{billId}", deps.BillHandler.Delete).Methods("DELETE")

	// Categories
	r.HandleFunc("/api/budgets/{budgetId}/categories", deps.CategoryHandler.List).Methods("GET")
}
