package bill

import (
	"github.com/billsforynab/bills/pkg/ynab"
)

// Bill is a scheduled transaction as kept locally.
type Bill struct {
	ynab.ScheduledTransactionDetail
	BudgetID string `json:"budget_id"`
	// Excluded bills are left out of totals.
	Excluded      *bool  `json:"excluded,omitempty"`
	MonthlyAmount *int64 `json:"monthly_amount,omitempty"`
	// Published is false for drafts YNAB has not confirmed yet.
	Published *bool `json:"published,omitempty"`
}

func (b Bill) RecordID() string {
	return b.ID
}

func (b Bill) IsExcluded() bool {
	return b.Excluded != nil && *b.Excluded
}

func (b Bill) IsPublished() bool {
	return b.Published != nil && *b.Published
}

// Monthly returns the stored monthly amount, computing it when the record predates that field.
func (b Bill) Monthly() int64 {
	if b.MonthlyAmount != nil {
		return *b.MonthlyAmount
	}
	return MonthlyAmount(b.Amount, b.Frequency)
}

type Summary struct {
	BudgetID      string `json:"budgetId"`
	MonthlyTotal  int64  `json:"monthlyTotal"`
	Count         int    `json:"count"`
	ExcludedCount int    `json:"excludedCount"`
}

// SyncResult tells how many bills a sync with YNAB wrote and removed, and how many drafts turned
// out to exist in YNAB already.
type SyncResult struct {
	Upserted   int `json:"upserted"`
	Deleted    int `json:"deleted"`
	Reconciled int `json:"reconciled"`
}

func newBill(id, budgetID string, draft ynab.ScheduledTransactionDraft, published bool) Bill {
	b := Bill{
		ScheduledTransactionDetail: ynab.ScheduledTransactionDetail{
			ID:        id,
			DateFirst: draft.Date,
		},
		BudgetID:  budgetID,
		Excluded:  ptr(false),
		Published: ptr(published),
	}
	applyDraft(&b, draft)
	return b
}

// applyDraft copies the editable fields of draft onto b. The draft date is the next occurrence.
func applyDraft(b *Bill, draft ynab.ScheduledTransactionDraft) {
	if categoryID := nullable(draft.CategoryID); !equalPtr(categoryID, b.CategoryID) {
		b.CategoryID = categoryID
		b.CategoryName = nil
	}
	b.AccountID = draft.AccountID
	b.PayeeName = nullable(draft.PayeeName)
	b.Frequency = draft.Frequency
	b.Amount = draft.Amount
	b.Memo = nullable(draft.Memo)
	b.DateNext = draft.Date
	if b.DateFirst == "" {
		b.DateFirst = draft.Date
	}
	b.MonthlyAmount = ptr(MonthlyAmount(b.Amount, b.Frequency))
}

// draftOf is the request that creates b in YNAB.
func draftOf(b Bill) ynab.ScheduledTransactionDraft {
	return ynab.ScheduledTransactionDraft{
		AccountID:  b.AccountID,
		PayeeName:  deref(b.PayeeName),
		Frequency:  b.Frequency,
		Amount:     b.Amount,
		Memo:       deref(b.Memo),
		Date:       b.DateNext,
		CategoryID: deref(b.CategoryID),
	}
}

func ptr[T any](v T) *T {
	return &v
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func equalPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
