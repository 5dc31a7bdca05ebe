// Package ynab talks to the YNAB REST API: reading budgets, scheduled transactions and category
// groups, and creating, updating and deleting scheduled transactions.
package ynab

import "time"

type DateFormat struct {
	Format string `json:"format"`
}

type CurrencyFormat struct {
	ISOCode          string `json:"iso_code"`
	ExampleFormat    string `json:"example_format"`
	DecimalDigits    int    `json:"decimal_digits"`
	DecimalSeparator string `json:"decimal_separator"`
	SymbolFirst      bool   `json:"symbol_first"`
	GroupSeparator   string `json:"group_separator"`
	CurrencySymbol   string `json:"currency_symbol"`
	DisplaySymbol    bool   `json:"display_symbol"`
}

type BudgetSummary struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	LastModifiedOn *time.Time      `json:"last_modified_on,omitempty"`
	FirstMonth     string          `json:"first_month,omitempty"`
	LastMonth      string          `json:"last_month,omitempty"`
	DateFormat     *DateFormat     `json:"date_format,omitempty"`
	CurrencyFormat *CurrencyFormat `json:"currency_format,omitempty"`
}

type ScheduledSubTransaction struct {
	ID                     string  `json:"id"`
	ScheduledTransactionID string  `json:"scheduled_transaction_id"`
	Amount                 int64   `json:"amount"`
	Memo                   *string `json:"memo"`
	PayeeID                *string `json:"payee_id"`
	CategoryID             *string `json:"category_id"`
	TransferAccountID      *string `json:"transfer_account_id"`
	Deleted                bool    `json:"deleted"`
}

// ScheduledTransactionDetail is a recurring transaction as YNAB returns it. Amounts are milliunits,
// negative for outflows; dates are YYYY-MM-DD.
type ScheduledTransactionDetail struct {
	ID                string                    `json:"id"`
	DateFirst         string                    `json:"date_first"`
	DateNext          string                    `json:"date_next"`
	Frequency         Frequency                 `json:"frequency"`
	Amount            int64                     `json:"amount"`
	Memo              *string                   `json:"memo"`
	FlagColor         *string                   `json:"flag_color"`
	AccountID         string                    `json:"account_id"`
	AccountName       string                    `json:"account_name"`
	PayeeID           *string                   `json:"payee_id"`
	PayeeName         *string                   `json:"payee_name"`
	CategoryID        *string                   `json:"category_id"`
	CategoryName      *string                   `json:"category_name"`
	TransferAccountID *string                   `json:"transfer_account_id"`
	Deleted           bool                      `json:"deleted"`
	Subtransactions   []ScheduledSubTransaction `json:"subtransactions,omitempty"`
}

type Category struct {
	ID              string  `json:"id"`
	CategoryGroupID string  `json:"category_group_id"`
	Name            string  `json:"name"`
	Hidden          bool    `json:"hidden"`
	Note            *string `json:"note"`
	Budgeted        int64   `json:"budgeted"`
	Activity        int64   `json:"activity"`
	Balance         int64   `json:"balance"`
	Deleted         bool    `json:"deleted"`
}

type CategoryGroupWithCategories struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Hidden     bool       `json:"hidden"`
	Deleted    bool       `json:"deleted"`
	Categories []Category `json:"categories"`
}

// ScheduledTransactionsDelta holds the scheduled transactions changed since the knowledge passed to
// the request, deleted ones included, and the knowledge to pass next time.
type ScheduledTransactionsDelta struct {
	ScheduledTransactions []ScheduledTransactionDetail `json:"scheduled_transactions"`
	ServerKnowledge       int64                        `json:"server_knowledge"`
}

type CategoryGroupsDelta struct {
	CategoryGroups  []CategoryGroupWithCategories `json:"category_groups"`
	ServerKnowledge int64                         `json:"server_knowledge"`
}

// ScheduledTransactionDraft is a local edit of a scheduled transaction. Empty optional strings are
// sent as null.
type ScheduledTransactionDraft struct {
	AccountID  string    `json:"account_id"`
	PayeeName  string    `json:"payee_name"`
	Frequency  Frequency `json:"frequency"`
	Amount     int64     `json:"amount"`
	Memo       string    `json:"memo"`
	Date       string    `json:"date"`
	CategoryID string    `json:"category_id"`
}

type saveScheduledTransaction struct {
	AccountID  string    `json:"account_id"`
	PayeeName  *string   `json:"payee_name"`
	Frequency  Frequency `json:"frequency,omitempty"`
	Amount     int64     `json:"amount"`
	Memo       *string   `json:"memo"`
	Date       string    `json:"date"`
	CategoryID *string   `json:"category_id"`
}

type saveScheduledTransactionWrapper struct {
	ScheduledTransaction saveScheduledTransaction `json:"scheduled_transaction"`
}

func newSaveWrapper(draft ScheduledTransactionDraft) saveScheduledTransactionWrapper {
	return saveScheduledTransactionWrapper{
		ScheduledTransaction: saveScheduledTransaction{
			AccountID:  draft.AccountID,
			PayeeName:  nullable(draft.PayeeName),
			Frequency:  NormalizeFrequency(draft.Frequency),
			Amount:     draft.Amount,
			Memo:       nullable(draft.Memo),
			Date:       draft.Date,
			CategoryID: nullable(draft.CategoryID),
		},
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
