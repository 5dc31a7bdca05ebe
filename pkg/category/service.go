package category

import (
	"context"
	"fmt"

	"github.com/billsforynab/bills/internal/event_bus"
	"github.com/billsforynab/bills/pkg/store"
	"github.com/billsforynab/bills/pkg/ynab"
	log "github.com/sirupsen/logrus"
)

type Service interface {
	List(ctx context.Context, budgetID string) ([]Group, error)
	// Categories flattens the visible categories of visible groups, in group order.
	Categories(ctx context.Context, budgetID string) ([]ynab.Category, error)
	Sync(ctx context.Context, budgetID string, remote []ynab.CategoryGroupWithCategories) (SyncResult, error)
}

type ServiceImpl struct {
	groups *store.Table[Group]
}

func NewService(s *store.Store, eventBus *event_bus.EventBus) *ServiceImpl {
	service := &ServiceImpl{groups: store.NewTable[Group](s, store.CategoryGroups)}
	event_bus.SubscribeTyped(eventBus, event_bus.BudgetDeletedEvent, service.handleBudgetDeleted)
	return service
}

func (s *ServiceImpl) List(ctx context.Context, budgetID string) ([]Group, error) {
	groups := make([]Group, 0)
	for group, err := range s.groups.Query(ctx, "budget_id", store.Equals(budgetID)) {
		if err != nil {
			return nil, err
		}
		if !group.Deleted {
			groups = append(groups, group)
		}
	}
	return groups, nil
}

func (s *ServiceImpl) Categories(ctx context.Context, budgetID string) ([]ynab.Category, error) {
	groups, err := s.List(ctx, budgetID)
	if err != nil {
		return nil, err
	}

	categories := make([]ynab.Category, 0)
	for _, group := range groups {
		if group.Hidden {
			continue
		}
		for _, c := range group.Categories {
			if !c.Hidden && !c.Deleted {
				categories = append(categories, c)
			}
		}
	}
	return categories, nil
}

// Sync applies category groups fetched from YNAB: deleted groups are removed, the others replace
// their local copy.
func (s *ServiceImpl) Sync(ctx context.Context, budgetID string, remote []ynab.CategoryGroupWithCategories) (SyncResult, error) {
	var result SyncResult
	upserts := make([]Group, 0, len(remote))
	for _, group := range remote {
		if group.Deleted {
			if err := s.groups.Delete(ctx, group.ID); err != nil {
				return result, err
			}
			result.Deleted++
			continue
		}
		upserts = append(upserts, Group{CategoryGroupWithCategories: group, BudgetID: budgetID})
	}

	if err := s.groups.BulkUpsert(ctx, upserts); err != nil {
		return result, err
	}
	result.Upserted = len(upserts)
	log.Debugf("synced category groups of budget %s: %d upserted, %d deleted", budgetID, result.Upserted, result.Deleted)
	return result, nil
}

func (s *ServiceImpl) handleBudgetDeleted(e event_bus.EventT[event_bus.BudgetDeleted]) error {
	deleted, err := s.groups.DeleteWhere(e.Context(), "budget_id", store.Equals(e.Data.BudgetID))
	if err != nil {
		return fmt.Errorf("removing category groups of budget %s: %w", e.Data.BudgetID, err)
	}
	log.Debugf("removed %d category group(s) of deleted budget %s", deleted, e.Data.BudgetID)
	return nil
}
