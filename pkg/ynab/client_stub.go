package ynab

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
)

var _ Client = (*ClientStub)(nil)

// ClientStub is an in-memory Client. Mutations are recorded, dry runs are not.
type ClientStub struct {
	mu              sync.RWMutex
	budgets         []BudgetSummary
	defaultBudgetID string
	scheduled       map[string]ScheduledTransactionsDelta // budgetId -> delta
	categoryGroups  map[string]CategoryGroupsDelta        // budgetId -> delta
	knowledgeSeen   map[string][]*int64                   // budgetId -> knowledge passed to GetScheduledTransactions
	calls           []StubCall
	nextID          func() string
	getBudgetsErr   error
	getScheduledErr error
	getGroupsErr    error
	createErr       error
	updateErr       error
	deleteErr       error
}

// StubCall records one remote mutation received by the stub.
type StubCall struct {
	Method   string
	BudgetID string
	ID       string
	Draft    ScheduledTransactionDraft
}

func NewClientStub() *ClientStub {
	return &ClientStub{
		scheduled:      make(map[string]ScheduledTransactionsDelta),
		categoryGroups: make(map[string]CategoryGroupsDelta),
		knowledgeSeen:  make(map[string][]*int64),
		nextID:         uuid.NewString,
	}
}

func (c *ClientStub) GetBudgets(ctx context.Context) ([]BudgetSummary, string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.getBudgetsErr != nil {
		return nil, "", c.getBudgetsErr
	}
	return slices.Clone(c.budgets), c.defaultBudgetID, nil
}

func (c *ClientStub) GetScheduledTransactions(ctx context.Context, budgetID string, lastKnowledge *int64) (ScheduledTransactionsDelta, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.knowledgeSeen[budgetID] = append(c.knowledgeSeen[budgetID], lastKnowledge)
	if c.getScheduledErr != nil {
		return ScheduledTransactionsDelta{}, c.getScheduledErr
	}
	delta := c.scheduled[budgetID]
	delta.ScheduledTransactions = slices.Clone(delta.ScheduledTransactions)
	return delta, nil
}

func (c *ClientStub) GetCategoryGroups(ctx context.Context, budgetID string, lastKnowledge *int64) (CategoryGroupsDelta, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.getGroupsErr != nil {
		return CategoryGroupsDelta{}, c.getGroupsErr
	}
	delta := c.categoryGroups[budgetID]
	delta.CategoryGroups = slices.Clone(delta.CategoryGroups)
	return delta, nil
}

func (c *ClientStub) CreateScheduledTransaction(ctx context.Context, budgetID string, draft ScheduledTransactionDraft, opts ...CallOption) (string, error) {
	if applyOptions(opts).dryRun {
		return uuid.NewString(), nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls = append(c.calls, StubCall{Method: "create", BudgetID: budgetID, Draft: draft})
	if c.createErr != nil {
		return "", c.createErr
	}
	return c.nextID(), nil
}

func (c *ClientStub) UpdateScheduledTransaction(ctx context.Context, budgetID, id string, draft ScheduledTransactionDraft, opts ...CallOption) error {
	if applyOptions(opts).dryRun {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls = append(c.calls, StubCall{Method: "update", BudgetID: budgetID, ID: id, Draft: draft})
	return c.updateErr
}

func (c *ClientStub) DeleteScheduledTransaction(ctx context.Context, budgetID, id string, opts ...CallOption) error {
	if applyOptions(opts).dryRun {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls = append(c.calls, StubCall{Method: "delete", BudgetID: budgetID, ID: id})
	return c.deleteErr
}

// Calls returns the recorded remote mutations in order.
func (c *ClientStub) Calls() []StubCall {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.calls)
}

// KnowledgeSeen returns the server knowledge values passed for budgetID, in call order.
func (c *ClientStub) KnowledgeSeen(budgetID string) []*int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.knowledgeSeen[budgetID])
}

func (c *ClientStub) SetBudgets(budgets []BudgetSummary, defaultBudgetID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.budgets = slices.Clone(budgets)
	c.defaultBudgetID = defaultBudgetID
}

func (c *ClientStub) SetScheduledTransactions(budgetID string, delta ScheduledTransactionsDelta) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scheduled[budgetID] = delta
}

func (c *ClientStub) SetCategoryGroups(budgetID string, delta CategoryGroupsDelta) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.categoryGroups[budgetID] = delta
}

// SetNextID replaces the generator of ids returned by create.
func (c *ClientStub) SetNextID(next func() string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID = next
}

func (c *ClientStub) SetGetBudgetsError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.getBudgetsErr = err
}

func (c *ClientStub) SetGetScheduledTransactionsError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.getScheduledErr = err
}

func (c *ClientStub) SetGetCategoryGroupsError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.getGroupsErr = err
}

func (c *ClientStub) SetCreateError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.createErr = err
}

func (c *ClientStub) SetUpdateError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updateErr = err
}

func (c *ClientStub) SetDeleteError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleteErr = err
}

// Reset clears all stubbed data, errors and recorded calls.
func (c *ClientStub) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.budgets = nil
	c.defaultBudgetID = ""
	c.scheduled = make(map[string]ScheduledTransactionsDelta)
	c.categoryGroups = make(map[string]CategoryGroupsDelta)
	c.knowledgeSeen = make(map[string][]*int64)
	c.calls = nil
	c.nextID = uuid.NewString
	c.getBudgetsErr = nil
	c.getScheduledErr = nil
	c.getGroupsErr = nil
	c.createErr = nil
	c.updateErr = nil
	c.deleteErr = nil
}
