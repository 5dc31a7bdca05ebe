package bill

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/billsforynab/bills/internal/event_bus"
	"github.com/billsforynab/bills/pkg/store"
	"github.com/billsforynab/bills/pkg/ynab"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

var ErrInvalidBill = errors.New("invalid bill")

type Service interface {
	List(ctx context.Context, budgetID string) ([]Bill, error)
	// ListDue returns the bills whose next occurrence is in [from, to), soonest first.
	ListDue(ctx context.Context, budgetID, from, to string) ([]Bill, error)
	Get(ctx context.Context, budgetID, id string) (Bill, error)
	Create(ctx context.Context, budgetID string, draft ynab.ScheduledTransactionDraft) (Bill, error)
	Update(ctx context.Context, budgetID, id string, draft ynab.ScheduledTransactionDraft) (Bill, error)
	Publish(ctx context.Context, budgetID, id string) (Bill, error)
	Delete(ctx context.Context, budgetID, id string) error
	SetExcluded(ctx context.Context, budgetID, id string, excluded bool) (Bill, error)
	Summary(ctx context.Context, budgetID string) (Summary, error)
	Sync(ctx context.Context, budgetID string, remote []ynab.ScheduledTransactionDetail) (SyncResult, error)
}

type ServiceImpl struct {
	bills  *store.Table[Bill]
	client ynab.Client
	dryRun bool
}

// NewService wires the bill service. With dryRun set, YNAB is never called and drafts are
// published with synthesized ids.
func NewService(s *store.Store, client ynab.Client, eventBus *event_bus.EventBus, dryRun bool) *ServiceImpl {
	service := &ServiceImpl{
		bills:  store.NewTable[Bill](s, store.ScheduledTransactions),
		client: client,
		dryRun: dryRun,
	}
	event_bus.SubscribeTyped(eventBus, event_bus.BudgetDeletedEvent, service.handleBudgetDeleted)
	return service
}

func (s *ServiceImpl) List(ctx context.Context, budgetID string) ([]Bill, error) {
	bills := make([]Bill, 0)
	for b, err := range s.bills.Query(ctx, "budget_id", store.Equals(budgetID)) {
		if err != nil {
			return nil, err
		}
		if !b.Deleted {
			bills = append(bills, b)
		}
	}
	return bills, nil
}

func (s *ServiceImpl) ListDue(ctx context.Context, budgetID, from, to string) ([]Bill, error) {
	if err := validateDate(from); err != nil {
		return nil, err
	}
	if err := validateDate(to); err != nil {
		return nil, err
	}

	bills := make([]Bill, 0)
	for b, err := range s.bills.Query(ctx, "date_next", store.Between(from, to)) {
		if err != nil {
			return nil, err
		}
		if b.BudgetID == budgetID && !b.Deleted {
			bills = append(bills, b)
		}
	}
	return bills, nil
}

func (s *ServiceImpl) Get(ctx context.Context, budgetID, id string) (Bill, error) {
	b, err := s.bills.Get(ctx, id)
	if err != nil {
		return Bill{}, err
	}
	if b == nil || b.BudgetID != budgetID {
		return Bill{}, fmt.Errorf("bill %s in budget %s: %w", id, budgetID, store.ErrNotFound)
	}
	return *b, nil
}

// Create stores the draft locally first, then creates it in YNAB and swaps the draft for the
// published bill under the id YNAB assigned. When YNAB fails the unpublished draft stays.
func (s *ServiceImpl) Create(ctx context.Context, budgetID string, draft ynab.ScheduledTransactionDraft) (Bill, error) {
	if err := validateDraft(draft); err != nil {
		return Bill{}, err
	}

	local := newBill(uuid.NewString(), budgetID, draft, false)
	if err := s.bills.Put(ctx, local); err != nil {
		return Bill{}, err
	}
	log.Debugf("stored draft bill %s", local.ID)

	return s.publish(ctx, local, draft)
}

// Publish retries creating a draft in YNAB. Bills that are already published are returned as is.
func (s *ServiceImpl) Publish(ctx context.Context, budgetID, id string) (Bill, error) {
	b, err := s.Get(ctx, budgetID, id)
	if err != nil {
		return Bill{}, err
	}
	if b.IsPublished() {
		return b, nil
	}
	return s.publish(ctx, b, draftOf(b))
}

// publish creates local in YNAB, then replaces the draft record by the published bill stored under
// the remote id.
func (s *ServiceImpl) publish(ctx context.Context, local Bill, draft ynab.ScheduledTransactionDraft) (Bill, error) {
	remoteID, err := s.client.CreateScheduledTransaction(ctx, local.BudgetID, draft, ynab.DryRun(s.dryRun))
	if err != nil {
		log.Warnf("bill %s stays an unpublished draft: %v", local.ID, err)
		return Bill{}, err
	}

	published := local
	published.ID = remoteID
	published.Published = ptr(true)
	if err := s.bills.Put(ctx, published); err != nil {
		return Bill{}, err
	}
	if err := s.bills.Delete(ctx, local.ID); err != nil {
		return Bill{}, err
	}
	log.Infof("bill %s published as %s", local.ID, remoteID)
	return published, nil
}

// Update changes a published bill in YNAB first and locally afterwards. A draft is changed locally
// and then published, so editing a draft retries its creation in YNAB.
func (s *ServiceImpl) Update(ctx context.Context, budgetID, id string, draft ynab.ScheduledTransactionDraft) (Bill, error) {
	if err := validateDraft(draft); err != nil {
		return Bill{}, err
	}
	b, err := s.Get(ctx, budgetID, id)
	if err != nil {
		return Bill{}, err
	}

	if b.IsPublished() {
		if err := s.client.UpdateScheduledTransaction(ctx, budgetID, id, draft, ynab.DryRun(s.dryRun)); err != nil {
			return Bill{}, err
		}
	}

	applyDraft(&b, draft)
	if err := s.bills.Put(ctx, b); err != nil {
		return Bill{}, err
	}
	if !b.IsPublished() {
		return s.publish(ctx, b, draft)
	}
	return b, nil
}

func (s *ServiceImpl) Delete(ctx context.Context, budgetID, id string) error {
	b, err := s.Get(ctx, budgetID, id)
	if err != nil {
		return err
	}

	if b.IsPublished() {
		if err := s.client.DeleteScheduledTransaction(ctx, budgetID, id, ynab.DryRun(s.dryRun)); err != nil {
			return err
		}
	}
	return s.bills.Delete(ctx, id)
}

// SetExcluded only touches the local record; YNAB knows nothing about exclusions.
func (s *ServiceImpl) SetExcluded(ctx context.Context, budgetID, id string, excluded bool) (Bill, error) {
	if _, err := s.Get(ctx, budgetID, id); err != nil {
		return Bill{}, err
	}
	if err := s.bills.Update(ctx, id, store.Fields{"excluded": excluded}); err != nil {
		return Bill{}, err
	}
	return s.Get(ctx, budgetID, id)
}

func (s *ServiceImpl) Summary(ctx context.Context, budgetID string) (Summary, error) {
	bills, err := s.List(ctx, budgetID)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{BudgetID: budgetID, Count: len(bills)}
	for _, b := range bills {
		if b.IsExcluded() {
			summary.ExcludedCount++
			continue
		}
		summary.MonthlyTotal += b.Monthly()
	}
	return summary, nil
}

// Sync applies scheduled transactions fetched from YNAB: deleted ones are removed, the others
// replace their local copy as published bills, keeping the local excluded flag. An unpublished
// draft matching a new remote record is the same bill whose create response got lost; it is
// dropped in favor of the remote one.
func (s *ServiceImpl) Sync(ctx context.Context, budgetID string, remote []ynab.ScheduledTransactionDetail) (SyncResult, error) {
	excluded := make(map[string]*bool)
	var drafts []Bill
	for b, err := range s.bills.Query(ctx, "budget_id", store.Equals(budgetID)) {
		if err != nil {
			return SyncResult{}, err
		}
		excluded[b.ID] = b.Excluded
		if !b.IsPublished() {
			drafts = append(drafts, b)
		}
	}

	var result SyncResult
	var reconciled []string
	upserts := make([]Bill, 0, len(remote))
	for _, detail := range remote {
		if detail.Deleted {
			if _, known := excluded[detail.ID]; known {
				if err := s.bills.Delete(ctx, detail.ID); err != nil {
					return result, err
				}
				result.Deleted++
			}
			continue
		}

		if _, known := excluded[detail.ID]; !known {
			if i := slices.IndexFunc(drafts, func(d Bill) bool { return matchesDraft(detail, d) }); i >= 0 {
				draft := drafts[i]
				drafts = slices.Delete(drafts, i, i+1)
				excluded[detail.ID] = draft.Excluded
				reconciled = append(reconciled, draft.ID)
				log.Infof("draft bill %s is %s in YNAB", draft.ID, detail.ID)
			}
		}

		b := Bill{
			ScheduledTransactionDetail: detail,
			BudgetID:                   budgetID,
			Excluded:                   excluded[detail.ID],
			MonthlyAmount:              ptr(MonthlyAmount(detail.Amount, detail.Frequency)),
			Published:                  ptr(true),
		}
		if b.Excluded == nil {
			b.Excluded = ptr(false)
		}
		upserts = append(upserts, b)
	}

	if err := s.bills.BulkUpsert(ctx, upserts); err != nil {
		return result, err
	}
	result.Upserted = len(upserts)
	for _, id := range reconciled {
		if err := s.bills.Delete(ctx, id); err != nil {
			return result, err
		}
		result.Reconciled++
	}
	log.Debugf("synced bills of budget %s: %d upserted, %d deleted, %d drafts reconciled", budgetID,
		result.Upserted, result.Deleted, result.Reconciled)
	return result, nil
}

func (s *ServiceImpl) handleBudgetDeleted(e event_bus.EventT[event_bus.BudgetDeleted]) error {
	deleted, err := s.bills.DeleteWhere(e.Context(), "budget_id", store.Equals(e.Data.BudgetID))
	if err != nil {
		return fmt.Errorf("removing bills of budget %s: %w", e.Data.BudgetID, err)
	}
	log.Debugf("removed %d bill(s) of deleted budget %s", deleted, e.Data.BudgetID)
	return nil
}

func validateDraft(draft ynab.ScheduledTransactionDraft) error {
	if draft.AccountID == "" {
		return fmt.Errorf("%w: account is required", ErrInvalidBill)
	}
	return validateDate(draft.Date)
}

func validateDate(date string) error {
	if _, err := time.Parse(time.DateOnly, date); err != nil {
		return fmt.Errorf("%w: date %q is not YYYY-MM-DD", ErrInvalidBill, date)
	}
	return nil
}

func matchesDraft(detail ynab.ScheduledTransactionDetail, draft Bill) bool {
	return detail.AccountID == draft.AccountID &&
		detail.Amount == draft.Amount &&
		(detail.DateNext == draft.DateNext || detail.DateFirst == draft.DateNext) &&
		equalPtr(detail.PayeeName, draft.PayeeName)
}
