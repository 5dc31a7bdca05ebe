package budget

import (
	"time"

	"github.com/billsforynab/bills/pkg/ynab"
)

// ServerKnowledge keeps, per resource, the YNAB change marker of the last successful fetch.
type ServerKnowledge struct {
	ScheduledTransactions *int64 `json:"scheduled_transactions,omitempty"`
	CategoryGroups        *int64 `json:"category_groups,omitempty"`
}

// Budget is a YNAB budget summary plus the local bookkeeping fields.
type Budget struct {
	ynab.BudgetSummary
	IsDefault       *bool            `json:"is_default,omitempty"`
	LastFetched     *time.Time       `json:"last_fetched,omitempty"`
	ServerKnowledge *ServerKnowledge `json:"server_knowledge,omitempty"`
}

func (b Budget) RecordID() string {
	return b.ID
}

func (b Budget) IsDefaultBudget() bool {
	return b.IsDefault != nil && *b.IsDefault
}
