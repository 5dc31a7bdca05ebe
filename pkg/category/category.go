package category

import "github.com/billsforynab/bills/pkg/ynab"

// Group is a YNAB category group, with its categories, owned by one budget.
type Group struct {
	ynab.CategoryGroupWithCategories
	BudgetID string `json:"budget_id"`
}

func (g Group) RecordID() string {
	return g.ID
}

type SyncResult struct {
	Upserted int `json:"upserted"`
	Deleted  int `json:"deleted"`
}
