// Package refresh pulls budgets, scheduled transactions and category groups from YNAB into the
// local store. Scheduled transactions and category groups are fetched incrementally using the
// server knowledge remembered on each budget.
package refresh

import (
	"context"
	"fmt"

	"github.com/billsforynab/bills/internal/utils"
	"github.com/billsforynab/bills/pkg/bill"
	"github.com/billsforynab/bills/pkg/budget"
	"github.com/billsforynab/bills/pkg/category"
	"github.com/billsforynab/bills/pkg/ynab"
	log "github.com/sirupsen/logrus"
)

type Result struct {
	Budget         budget.Budget       `json:"budget"`
	Bills          bill.SyncResult     `json:"bills"`
	CategoryGroups category.SyncResult `json:"categoryGroups"`
}

type Service struct {
	client     ynab.Client
	budgets    budget.Service
	bills      bill.Service
	categories category.Service
	clock      utils.Clock
	offline    bool
}

// NewService wires the refresh service. An offline service never calls YNAB and only returns
// what is stored.
func NewService(client ynab.Client, budgets budget.Service, bills bill.Service, categories category.Service, clock utils.Clock, offline bool) *Service {
	return &Service{
		client:     client,
		budgets:    budgets,
		bills:      bills,
		categories: categories,
		clock:      clock,
		offline:    offline,
	}
}

// RefreshBudgets mirrors the budget list of YNAB. Local fields of known budgets are kept, budgets
// YNAB no longer returns are deleted, and YNAB's default budget becomes the local default when
// none is set yet.
func (s *Service) RefreshBudgets(ctx context.Context) ([]budget.Budget, error) {
	if s.offline {
		log.Debug("offline mode, skipping budget refresh")
		return s.budgets.List(ctx)
	}

	remote, defaultID, err := s.client.GetBudgets(ctx)
	if err != nil {
		return nil, err
	}
	local, err := s.budgets.List(ctx)
	if err != nil {
		return nil, err
	}

	known := make(map[string]budget.Budget, len(local))
	for _, b := range local {
		known[b.ID] = b
	}

	merged := make([]budget.Budget, 0, len(remote))
	hasDefault := false
	returned := make(map[string]bool, len(remote))
	for _, summary := range remote {
		b := budget.Budget{BudgetSummary: summary}
		if existing, ok := known[summary.ID]; ok {
			b.IsDefault = existing.IsDefault
			b.LastFetched = existing.LastFetched
			b.ServerKnowledge = existing.ServerKnowledge
		}
		hasDefault = hasDefault || b.IsDefaultBudget()
		returned[summary.ID] = true
		merged = append(merged, b)
	}

	if !hasDefault {
		for i := range merged {
			if merged[i].ID == defaultID {
				isDefault := true
				merged[i].IsDefault = &isDefault
			}
		}
	}

	if err := s.budgets.Save(ctx, merged); err != nil {
		return nil, err
	}
	for _, b := range local {
		if !returned[b.ID] {
			log.Infof("budget %s is gone from YNAB, removing it", b.ID)
			if err := s.budgets.Delete(ctx, b.ID); err != nil {
				return nil, err
			}
		}
	}
	return s.budgets.List(ctx)
}

// RefreshBudget fetches what changed in a budget since its last refresh. The new server knowledge
// is stored only after both collections were written; a failure in between means the next refresh
// fetches the same changes again.
func (s *Service) RefreshBudget(ctx context.Context, budgetID string) (Result, error) {
	b, err := s.budgets.Get(ctx, budgetID)
	if err != nil {
		return Result{}, err
	}
	if s.offline {
		log.Debugf("offline mode, skipping refresh of budget %s", budgetID)
		return Result{Budget: b}, nil
	}

	var knowledge budget.ServerKnowledge
	if b.ServerKnowledge != nil {
		knowledge = *b.ServerKnowledge
	}

	scheduled, err := s.client.GetScheduledTransactions(ctx, budgetID, knowledge.ScheduledTransactions)
	if err != nil {
		return Result{}, err
	}
	billsResult, err := s.bills.Sync(ctx, budgetID, scheduled.ScheduledTransactions)
	if err != nil {
		return Result{}, fmt.Errorf("storing scheduled transactions of budget %s: %w", budgetID, err)
	}

	groups, err := s.client.GetCategoryGroups(ctx, budgetID, knowledge.CategoryGroups)
	if err != nil {
		return Result{}, err
	}
	groupsResult, err := s.categories.Sync(ctx, budgetID, groups.CategoryGroups)
	if err != nil {
		return Result{}, fmt.Errorf("storing category groups of budget %s: %w", budgetID, err)
	}

	next := budget.ServerKnowledge{
		ScheduledTransactions: &scheduled.ServerKnowledge,
		CategoryGroups:        &groups.ServerKnowledge,
	}
	if err := s.budgets.RecordFetch(ctx, budgetID, next, s.clock.Now()); err != nil {
		return Result{}, err
	}
	log.Infof("refreshed budget %s: %d bill(s) and %d category group(s) updated", budgetID,
		billsResult.Upserted+billsResult.Deleted, groupsResult.Upserted+groupsResult.Deleted)

	refreshed, err := s.budgets.Get(ctx, budgetID)
	if err != nil {
		return Result{}, err
	}
	return Result{Budget: refreshed, Bills: billsResult, CategoryGroups: groupsResult}, nil
}
