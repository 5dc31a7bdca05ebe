package event_bus

const (
	BudgetDeletedEvent EventType = "budget.deleted"
)

// BudgetDeleted is published after a budget was removed from the local store.
// Collections referencing it are expected to drop their orphans.
type BudgetDeleted struct {
	BudgetID string
}
