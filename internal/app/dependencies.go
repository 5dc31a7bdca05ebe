package app

import (
	"database/sql"
	"net/http"

	"github.com/billsforynab/bills/internal/config"
	"github.com/billsforynab/bills/internal/event_bus"
	"github.com/billsforynab/bills/internal/session"
	"github.com/billsforynab/bills/internal/utils"
	"github.com/billsforynab/bills/pkg/bill"
	"github.com/billsforynab/bills/pkg/budget"
	"github.com/billsforynab/bills/pkg/category"
	"github.com/billsforynab/bills/pkg/refresh"
	"github.com/billsforynab/bills/pkg/store"
	"github.com/billsforynab/bills/pkg/ynab"
)

// Dependencies holds all services and handlers for the application.
type Dependencies struct {
	Session  *session.Store
	EventBus *event_bus.EventBus
	Store    *store.Store
	Clock    utils.Clock

	YnabClient  ynab.Client
	AuthHandler *ynab.AuthHandler

	BudgetService *budget.ServiceImpl
	BudgetHandler *budget.Handler

	BillService *bill.ServiceImpl
	BillHandler *bill.Handler

	CategoryService *category.ServiceImpl
	CategoryHandler *category.Handler

	RefreshService *refresh.Service
	RefreshHandler *refresh.Handler
}

// BuildDependencies initializes and wires all application services and handlers.
func BuildDependencies(db *sql.DB, cfg config.Application) *Dependencies {
	deps := &Dependencies{}

	deps.Session = session.NewStore()
	deps.EventBus = event_bus.NewEventBus()
	deps.Store = store.New(db)
	deps.Clock = &utils.SystemClock{}

	deps.YnabClient = ynab.NewClient(ynab.Config{
		BaseURL:    cfg.YNAB.BaseURL,
		Session:    deps.Session,
		HTTPClient: &http.Client{Timeout: cfg.YNAB.Timeout},
	})
	deps.AuthHandler = ynab.NewAuthHandler(deps.Session)

	return wireServices(deps, cfg.Demo.Enabled)
}

func wireServices(deps *Dependencies, demo bool) *Dependencies {
	deps.BudgetService = budget.NewService(deps.Store, deps.EventBus)
	deps.BudgetHandler = budget.NewHandler(deps.BudgetService)

	deps.BillService = bill.NewService(deps.Store, deps.YnabClient, deps.EventBus, demo)
	deps.BillHandler = bill.NewHandler(deps.BillService)

	deps.CategoryService = category.NewService(deps.Store, deps.EventBus)
	deps.CategoryHandler = category.NewHandler(deps.CategoryService)

	deps.RefreshService = refresh.NewService(deps.YnabClient, deps.BudgetService, deps.BillService, deps.CategoryService, deps.Clock, demo)
	deps.RefreshHandler = refresh.NewHandler(deps.RefreshService)

	return deps
}
