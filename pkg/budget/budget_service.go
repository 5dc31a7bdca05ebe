package budget

import (
	"context"
	"fmt"
	"time"

	"github.com/billsforynab/bills/internal/event_bus"
	"github.com/billsforynab/bills/pkg/store"
	log "github.com/sirupsen/logrus"
)

type Service interface {
	List(ctx context.Context) ([]Budget, error)
	Get(ctx context.Context, id string) (Budget, error)
	// Default returns the default budget, or nil when none is marked.
	Default(ctx context.Context) (*Budget, error)
	SetDefault(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	Save(ctx context.Context, budgets []Budget) error
	RecordFetch(ctx context.Context, id string, knowledge ServerKnowledge, fetchedAt time.Time) error
}

type ServiceImpl struct {
	budgets  *store.Table[Budget]
	eventBus *event_bus.EventBus
}

func NewService(s *store.Store, eventBus *event_bus.EventBus) *ServiceImpl {
	return &ServiceImpl{
		budgets:  store.NewTable[Budget](s, store.Budgets),
		eventBus: eventBus,
	}
}

func (s *ServiceImpl) List(ctx context.Context) ([]Budget, error) {
	return store.Collect(s.budgets.All(ctx))
}

func (s *ServiceImpl) Get(ctx context.Context, id string) (Budget, error) {
	budget, err := s.budgets.Get(ctx, id)
	if err != nil {
		return Budget{}, err
	}
	if budget == nil {
		return Budget{}, fmt.Errorf("budget %s: %w", id, store.ErrNotFound)
	}
	return *budget, nil
}

func (s *ServiceImpl) Default(ctx context.Context) (*Budget, error) {
	for budget, err := range s.budgets.All(ctx) {
		if err != nil {
			return nil, err
		}
		if budget.IsDefaultBudget() {
			return &budget, nil
		}
	}
	return nil, nil
}

// SetDefault marks id as the default budget and clears the flag on every other budget, in one write.
func (s *ServiceImpl) SetDefault(ctx context.Context, id string) error {
	budgets, err := s.List(ctx)
	if err != nil {
		return err
	}

	found := false
	changed := make([]Budget, 0, 2)
	for _, budget := range budgets {
		isTarget := budget.ID == id
		found = found || isTarget
		if budget.IsDefaultBudget() != isTarget {
			budget.IsDefault = &isTarget
			changed = append(changed, budget)
		}
	}
	if !found {
		return fmt.Errorf("budget %s: %w", id, store.ErrNotFound)
	}

	if err := s.budgets.BulkUpsert(ctx, changed); err != nil {
		return err
	}
	log.Debugf("budget %s is now the default budget", id)
	return nil
}

// Delete removes the budget and publishes budget.deleted so its bills and category groups go too.
func (s *ServiceImpl) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.budgets.Delete(ctx, id); err != nil {
		return err
	}

	event := event_bus.NewEvent(ctx, event_bus.BudgetDeletedEvent, event_bus.BudgetDeleted{BudgetID: id})
	if err := s.eventBus.Publish(event); err != nil {
		return fmt.Errorf("budget %s deleted, but cleaning up its records failed: %w", id, err)
	}
	log.Infof("budget %s deleted", id)
	return nil
}

// Save replaces the given budgets as a whole. Uniqueness of the default flag is up to the caller.
func (s *ServiceImpl) Save(ctx context.Context, budgets []Budget) error {
	return s.budgets.BulkUpsert(ctx, budgets)
}

// RecordFetch stores the server knowledge reached by a fetch and when it happened.
func (s *ServiceImpl) RecordFetch(ctx context.Context, id string, knowledge ServerKnowledge, fetchedAt time.Time) error {
	return s.budgets.Update(ctx, id, store.Fields{
		"server_knowledge": knowledge,
		"last_fetched":     fetchedAt.UTC(),
	})
}
