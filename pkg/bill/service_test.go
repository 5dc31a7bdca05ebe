package bill

import (
	"context"
	"errors"
	"testing"

	"github.com/billsforynab/bills/internal/database"
	"github.com/billsforynab/bills/internal/event_bus"
	"github.com/billsforynab/bills/internal/test_utils"
	"github.com/billsforynab/bills/pkg/store"
	"github.com/billsforynab/bills/pkg/ynab"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	service *ServiceImpl
	client  *ynab.ClientStub
	bus     *event_bus.EventBus
	table   *store.Table[Bill]
}

func setupTestEnv(t *testing.T, dryRun bool) testEnv {
	db := test_utils.SetupTestDB(t)
	s := store.New(db)
	client := ynab.NewClientStub()
	bus := event_bus.NewEventBus()
	return testEnv{
		service: NewService(s, client, bus, dryRun),
		client:  client,
		bus:     bus,
		table:   store.NewTable[Bill](s, store.ScheduledTransactions),
	}
}

func spotify() ynab.ScheduledTransactionDraft {
	return ynab.ScheduledTransactionDraft{
		AccountID: "acc-1",
		PayeeName: "Spotify",
		Frequency: ynab.Monthly,
		Amount:    -9990,
		Date:      "2024-05-01",
	}
}

func publishedBill(id, budgetID, dateNext string, amount int64, frequency ynab.Frequency) Bill {
	return Bill{
		ScheduledTransactionDetail: ynab.ScheduledTransactionDetail{
			ID:        id,
			DateFirst: dateNext,
			DateNext:  dateNext,
			Frequency: frequency,
			Amount:    amount,
			AccountID: "acc-1",
		},
		BudgetID:      budgetID,
		MonthlyAmount: ptr(MonthlyAmount(amount, frequency)),
		Published:     ptr(true),
	}
}

func allBills(t *testing.T, env testEnv) []Bill {
	t.Helper()
	bills, err := store.Collect(env.table.All(context.Background()))
	require.NoError(t, err)
	return bills
}

func TestService_Create(t *testing.T) {
	t.Run("should replace draft by published bill with remote id", func(t *testing.T) {
		// given
		env := setupTestEnv(t, false)
		env.client.SetNextID(func() string { return "remote-1" })

		// when
		created, err := env.service.Create(context.Background(), "b-1", spotify())

		// then
		require.NoError(t, err)
		assert.Equal(t, "remote-1", created.ID)
		assert.True(t, created.IsPublished())
		assert.False(t, created.IsExcluded())
		assert.Equal(t, int64(-9990), *created.MonthlyAmount)
		assert.Equal(t, "Spotify", *created.PayeeName)
		assert.Equal(t, "2024-05-01", created.DateNext)

		bills := allBills(t, env)
		require.Len(t, bills, 1)
		assert.Equal(t, created, bills[0])

		calls := env.client.Calls()
		require.Len(t, calls, 1)
		assert.Equal(t, "create", calls[0].Method)
		assert.Equal(t, "b-1", calls[0].BudgetID)
		assert.Equal(t, spotify(), calls[0].Draft)
	})

	t.Run("should keep unpublished draft when YNAB fails", func(t *testing.T) {
		// given
		env := setupTestEnv(t, false)
		env.client.SetCreateError(ynab.ErrUnauthorized)

		// when
		_, err := env.service.Create(context.Background(), "b-1", spotify())

		// then
		assert.ErrorIs(t, err, ynab.ErrUnauthorized)
		bills := allBills(t, env)
		require.Len(t, bills, 1)
		assert.False(t, bills[0].IsPublished())
		require.NotNil(t, bills[0].Published)
		assert.NotEmpty(t, bills[0].ID)
		assert.Equal(t, int64(-9990), bills[0].Amount)
	})

	t.Run("should publish without calling YNAB in dry run", func(t *testing.T) {
		env := setupTestEnv(t, true)

		first, err := env.service.Create(context.Background(), "b-1", spotify())
		require.NoError(t, err)
		second, err := env.service.Create(context.Background(), "b-1", spotify())
		require.NoError(t, err)

		assert.True(t, first.IsPublished())
		assert.NotEqual(t, first.ID, second.ID)
		assert.Empty(t, env.client.Calls())
		assert.Len(t, allBills(t, env), 2)
	})

	t.Run("should reject draft without account or with malformed date", func(t *testing.T) {
		env := setupTestEnv(t, false)
		noAccount := spotify()
		noAccount.AccountID = ""
		badDate := spotify()
		badDate.Date = "01/05/2024"

		_, errNoAccount := env.service.Create(context.Background(), "b-1", noAccount)
		_, errBadDate := env.service.Create(context.Background(), "b-1", badDate)

		assert.ErrorIs(t, errNoAccount, ErrInvalidBill)
		assert.ErrorIs(t, errBadDate, ErrInvalidBill)
		assert.Empty(t, env.client.Calls())
		assert.Empty(t, allBills(t, env))
	})
}

func TestService_Update(t *testing.T) {
	t.Run("should update published bill remotely then locally", func(t *testing.T) {
		// given
		env := setupTestEnv(t, false)
		existing := publishedBill("st-1", "b-1", "2024-05-01", -9990, ynab.Monthly)
		existing.Excluded = ptr(true)
		existing.CategoryID = ptr("cat-1")
		existing.CategoryName = ptr("Music")
		require.NoError(t, env.table.Put(context.Background(), existing))
		draft := spotify()
		draft.Amount = -12990
		draft.Frequency = ynab.EveryOtherMonth
		draft.Date = "2024-06-01"
		draft.CategoryID = "cat-1"

		// when
		updated, err := env.service.Update(context.Background(), "b-1", "st-1", draft)

		// then
		require.NoError(t, err)
		assert.Equal(t, int64(-12990), updated.Amount)
		assert.Equal(t, ynab.EveryOtherMonth, updated.Frequency)
		assert.Equal(t, int64(-6495), *updated.MonthlyAmount)
		assert.Equal(t, "2024-06-01", updated.DateNext)
		assert.Equal(t, "2024-05-01", updated.DateFirst)
		assert.Equal(t, "Music", *updated.CategoryName, "unchanged category keeps its name")
		assert.True(t, updated.IsExcluded())
		assert.True(t, updated.IsPublished())

		calls := env.client.Calls()
		require.Len(t, calls, 1)
		assert.Equal(t, "update", calls[0].Method)
		assert.Equal(t, "st-1", calls[0].ID)

		stored, err := env.service.Get(context.Background(), "b-1", "st-1")
		require.NoError(t, err)
		assert.Equal(t, updated, stored)
	})

	t.Run("should publish draft when it is edited", func(t *testing.T) {
		// given
		env := setupTestEnv(t, false)
		draftBill := publishedBill("local-1", "b-1", "2024-05-01", -100, ynab.Weekly)
		draftBill.Published = ptr(false)
		require.NoError(t, env.table.Put(context.Background(), draftBill))
		env.client.SetNextID(func() string { return "remote-1" })

		// when
		updated, err := env.service.Update(context.Background(), "b-1", "local-1", spotify())

		// then
		require.NoError(t, err)
		assert.Equal(t, "remote-1", updated.ID)
		assert.Equal(t, int64(-9990), updated.Amount)
		assert.True(t, updated.IsPublished())
		calls := env.client.Calls()
		require.Len(t, calls, 1)
		assert.Equal(t, "create", calls[0].Method)
		assert.Equal(t, spotify(), calls[0].Draft)
		bills := allBills(t, env)
		require.Len(t, bills, 1)
		assert.Equal(t, "remote-1", bills[0].ID)
	})

	t.Run("should keep edited draft when YNAB is still unreachable", func(t *testing.T) {
		env := setupTestEnv(t, false)
		draftBill := publishedBill("local-1", "b-1", "2024-05-01", -100, ynab.Weekly)
		draftBill.Published = ptr(false)
		require.NoError(t, env.table.Put(context.Background(), draftBill))
		env.client.SetCreateError(ynab.ErrNetwork)

		_, err := env.service.Update(context.Background(), "b-1", "local-1", spotify())

		assert.ErrorIs(t, err, ynab.ErrNetwork)
		stored, err := env.service.Get(context.Background(), "b-1", "local-1")
		require.NoError(t, err)
		assert.Equal(t, int64(-9990), stored.Amount)
		assert.False(t, stored.IsPublished())
	})

	t.Run("should leave local bill untouched when YNAB rejects", func(t *testing.T) {
		env := setupTestEnv(t, false)
		existing := publishedBill("st-1", "b-1", "2024-05-01", -100, ynab.Weekly)
		require.NoError(t, env.table.Put(context.Background(), existing))
		env.client.SetUpdateError(&ynab.RemoteRejectedError{Operation: "update scheduled transaction", StatusCode: 400, Status: "Bad Request"})

		_, err := env.service.Update(context.Background(), "b-1", "st-1", spotify())

		var rejected *ynab.RemoteRejectedError
		assert.True(t, errors.As(err, &rejected))
		stored, err := env.service.Get(context.Background(), "b-1", "st-1")
		require.NoError(t, err)
		assert.Equal(t, existing, stored)
	})

	t.Run("should not find bill of another budget", func(t *testing.T) {
		env := setupTestEnv(t, false)
		require.NoError(t, env.table.Put(context.Background(), publishedBill("st-1", "b-1", "2024-05-01", -100, ynab.Weekly)))

		_, err := env.service.Update(context.Background(), "b-2", "st-1", spotify())

		assert.ErrorIs(t, err, store.ErrNotFound)
		assert.Empty(t, env.client.Calls())
	})
}

func TestService_Publish(t *testing.T) {
	t.Run("should retry creating a draft that failed to reach YNAB", func(t *testing.T) {
		// given
		env := setupTestEnv(t, false)
		ctx := context.Background()
		env.client.SetCreateError(ynab.ErrUnauthenticated)
		_, err := env.service.Create(ctx, "b-1", spotify())
		require.ErrorIs(t, err, ynab.ErrUnauthenticated)
		draftID := allBills(t, env)[0].ID
		env.client.SetCreateError(nil)
		env.client.SetNextID(func() string { return "remote-1" })

		// when
		published, err := env.service.Publish(ctx, "b-1", draftID)

		// then
		require.NoError(t, err)
		assert.Equal(t, "remote-1", published.ID)
		assert.True(t, published.IsPublished())
		calls := env.client.Calls()
		require.Len(t, calls, 2)
		assert.Equal(t, spotify(), calls[1].Draft, "the stored draft is sent again unchanged")
		bills := allBills(t, env)
		require.Len(t, bills, 1)
		assert.Equal(t, "remote-1", bills[0].ID)
	})

	t.Run("should leave published bill alone", func(t *testing.T) {
		env := setupTestEnv(t, false)
		existing := publishedBill("st-1", "b-1", "2024-05-01", -100, ynab.Weekly)
		require.NoError(t, env.table.Put(context.Background(), existing))

		published, err := env.service.Publish(context.Background(), "b-1", "st-1")

		require.NoError(t, err)
		assert.Equal(t, existing, published)
		assert.Empty(t, env.client.Calls())
	})
}

func TestService_Delete(t *testing.T) {
	t.Run("should delete published bill remotely and locally", func(t *testing.T) {
		env := setupTestEnv(t, false)
		require.NoError(t, env.table.Put(context.Background(), publishedBill("st-1", "b-1", "2024-05-01", -100, ynab.Weekly)))

		err := env.service.Delete(context.Background(), "b-1", "st-1")

		require.NoError(t, err)
		assert.Empty(t, allBills(t, env))
		calls := env.client.Calls()
		require.Len(t, calls, 1)
		assert.Equal(t, "delete", calls[0].Method)
	})

	t.Run("should keep bill when remote delete fails", func(t *testing.T) {
		env := setupTestEnv(t, false)
		require.NoError(t, env.table.Put(context.Background(), publishedBill("st-1", "b-1", "2024-05-01", -100, ynab.Weekly)))
		env.client.SetDeleteError(ynab.ErrNetwork)

		err := env.service.Delete(context.Background(), "b-1", "st-1")

		assert.ErrorIs(t, err, ynab.ErrNetwork)
		assert.Len(t, allBills(t, env), 1)
	})

	t.Run("should delete draft locally only", func(t *testing.T) {
		env := setupTestEnv(t, false)
		draftBill := publishedBill("local-1", "b-1", "2024-05-01", -100, ynab.Weekly)
		draftBill.Published = ptr(false)
		require.NoError(t, env.table.Put(context.Background(), draftBill))

		err := env.service.Delete(context.Background(), "b-1", "local-1")

		require.NoError(t, err)
		assert.Empty(t, allBills(t, env))
		assert.Empty(t, env.client.Calls())
	})
}

func TestService_SetExcludedAndSummary(t *testing.T) {
	// given
	env := setupTestEnv(t, false)
	ctx := context.Background()
	deleted := publishedBill("st-4", "b-1", "2024-05-04", -99999, ynab.Monthly)
	deleted.Deleted = true
	require.NoError(t, env.table.BulkUpsert(ctx, []Bill{
		publishedBill("st-1", "b-1", "2024-05-01", -9990, ynab.Monthly),
		publishedBill("st-2", "b-1", "2024-05-02", -120000, ynab.Yearly),
		publishedBill("st-3", "b-1", "2024-05-03", -5000, ynab.Monthly),
		deleted,
		publishedBill("st-5", "b-2", "2024-05-05", -7777, ynab.Monthly),
	}))

	// when
	excluded, err := env.service.SetExcluded(ctx, "b-1", "st-3", true)
	require.NoError(t, err)
	summary, err := env.service.Summary(ctx, "b-1")

	// then
	require.NoError(t, err)
	assert.True(t, excluded.IsExcluded())
	assert.Equal(t, Summary{BudgetID: "b-1", MonthlyTotal: -19990, Count: 3, ExcludedCount: 1}, summary)
	assert.Empty(t, env.client.Calls())
}

func TestService_SetExcluded_Unknown(t *testing.T) {
	env := setupTestEnv(t, false)

	_, err := env.service.SetExcluded(context.Background(), "b-1", "missing", true)

	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestService_ListDue(t *testing.T) {
	// given
	env := setupTestEnv(t, false)
	ctx := context.Background()
	require.NoError(t, env.table.BulkUpsert(ctx, []Bill{
		publishedBill("late", "b-1", "2024-05-20", -1, ynab.Monthly),
		publishedBill("other-budget", "b-2", "2024-05-02", -1, ynab.Monthly),
		publishedBill("early", "b-1", "2024-05-02", -1, ynab.Monthly),
		publishedBill("next-month", "b-1", "2024-06-01", -1, ynab.Monthly),
		publishedBill("before", "b-1", "2024-04-30", -1, ynab.Monthly),
	}))

	// when
	due, err := env.service.ListDue(ctx, "b-1", "2024-05-01", "2024-06-01")

	// then
	require.NoError(t, err)
	ids := make([]string, 0, len(due))
	for _, b := range due {
		ids = append(ids, b.ID)
	}
	assert.Equal(t, []string{"early", "late"}, ids)

	all, err := env.service.List(ctx, "b-1")
	require.NoError(t, err)
	assert.Len(t, all, 4)

	_, err = env.service.ListDue(ctx, "b-1", "May", "2024-06-01")
	assert.ErrorIs(t, err, ErrInvalidBill)
}

func TestService_Sync(t *testing.T) {
	// given
	env := setupTestEnv(t, false)
	ctx := context.Background()
	kept := publishedBill("st-1", "b-1", "2024-05-01", -9990, ynab.Monthly)
	kept.Excluded = ptr(true)
	gone := publishedBill("st-2", "b-1", "2024-05-02", -100, ynab.Weekly)
	draftBill := publishedBill("local-1", "b-1", "2024-05-03", -100, ynab.Weekly)
	draftBill.Published = ptr(false)
	require.NoError(t, env.table.BulkUpsert(ctx, []Bill{kept, gone, draftBill}))

	remote := []ynab.ScheduledTransactionDetail{
		{ID: "st-1", DateFirst: "2024-01-01", DateNext: "2024-06-01", Frequency: ynab.Monthly, Amount: -10990, AccountID: "acc-1"},
		{ID: "st-2", Deleted: true},
		{ID: "st-3", DateFirst: "2024-01-01", DateNext: "2024-07-01", Frequency: ynab.Yearly, Amount: -120000, AccountID: "acc-1"},
		{ID: "st-unknown", Deleted: true},
	}

	// when
	result, err := env.service.Sync(ctx, "b-1", remote)

	// then
	require.NoError(t, err)
	assert.Equal(t, SyncResult{Upserted: 2, Deleted: 1}, result)

	refreshed, err := env.service.Get(ctx, "b-1", "st-1")
	require.NoError(t, err)
	assert.Equal(t, int64(-10990), refreshed.Amount)
	assert.True(t, refreshed.IsExcluded(), "local exclusion survives a refresh")
	assert.True(t, refreshed.IsPublished())

	added, err := env.service.Get(ctx, "b-1", "st-3")
	require.NoError(t, err)
	assert.Equal(t, int64(-10000), *added.MonthlyAmount)
	assert.False(t, added.IsExcluded())

	_, err = env.service.Get(ctx, "b-1", "st-2")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = env.service.Get(ctx, "b-1", "local-1")
	assert.NoError(t, err, "drafts are not touched by a sync")
}

func TestService_Sync_ReconcilesLostDraft(t *testing.T) {
	// given
	env := setupTestEnv(t, false)
	ctx := context.Background()
	env.client.SetCreateError(ynab.ErrNetwork)
	_, err := env.service.Create(ctx, "b-1", spotify())
	require.ErrorIs(t, err, ynab.ErrNetwork)
	draftID := allBills(t, env)[0].ID
	_, err = env.service.SetExcluded(ctx, "b-1", draftID, true)
	require.NoError(t, err)
	other := publishedBill("local-2", "b-1", "2024-05-01", -4990, ynab.Monthly)
	other.Published = ptr(false)
	require.NoError(t, env.table.Put(ctx, other))

	remote := []ynab.ScheduledTransactionDetail{{
		ID:        "remote-1",
		DateFirst: "2024-05-01",
		DateNext:  "2024-05-01",
		Frequency: ynab.Monthly,
		Amount:    -9990,
		AccountID: "acc-1",
		PayeeName: ptr("Spotify"),
	}}

	// when
	result, err := env.service.Sync(ctx, "b-1", remote)

	// then
	require.NoError(t, err)
	assert.Equal(t, SyncResult{Upserted: 1, Reconciled: 1}, result)

	_, err = env.service.Get(ctx, "b-1", draftID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	synced, err := env.service.Get(ctx, "b-1", "remote-1")
	require.NoError(t, err)
	assert.True(t, synced.IsPublished())
	assert.True(t, synced.IsExcluded(), "exclusion of the draft carries over")
	_, err = env.service.Get(ctx, "b-1", "local-2")
	assert.NoError(t, err, "drafts without a remote match stay")

	summary, err := env.service.Summary(ctx, "b-1")
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Count)
	assert.Equal(t, 1, summary.ExcludedCount)
	assert.Equal(t, int64(-4990), summary.MonthlyTotal)
}

func TestService_RemovesBillsOfDeletedBudget(t *testing.T) {
	// given
	env := setupTestEnv(t, false)
	ctx := context.Background()
	require.NoError(t, env.table.BulkUpsert(ctx, []Bill{
		publishedBill("st-1", "b-1", "2024-05-01", -1, ynab.Monthly),
		publishedBill("st-2", "b-2", "2024-05-01", -1, ynab.Monthly),
	}))

	// when
	err := env.bus.Publish(event_bus.NewEvent(ctx, event_bus.BudgetDeletedEvent, event_bus.BudgetDeleted{BudgetID: "b-1"}))

	// then
	require.NoError(t, err)
	bills := allBills(t, env)
	require.Len(t, bills, 1)
	assert.Equal(t, "st-2", bills[0].ID)
}

func TestBill_ReadsRecordsWrittenBeforeFlags(t *testing.T) {
	// given
	path := test_utils.StorePath(t)
	db := test_utils.SetupTestDBAtVersion(t, path, 1)
	_, err := db.Exec(`INSERT INTO scheduled_transactions (id, payload) VALUES (?, ?)`, "st-old",
		`{"id":"st-old","budget_id":"b-1","date_first":"2023-01-01","date_next":"2024-05-01","frequency":"yearly",`+
			`"amount":-120000,"account_id":"acc-1","account_name":"Checking","payee_name":"Insurance","memo":null,"deleted":false}`)
	require.NoError(t, err)

	// when
	require.NoError(t, database.Migrate(db))

	// then
	service := NewService(store.New(db), ynab.NewClientStub(), event_bus.NewEventBus(), false)
	b, err := service.Get(context.Background(), "b-1", "st-old")
	require.NoError(t, err)
	assert.Equal(t, "Insurance", *b.PayeeName)
	assert.Equal(t, int64(-120000), b.Amount)
	assert.Equal(t, "Checking", b.AccountName)
	assert.Nil(t, b.Excluded)
	assert.Nil(t, b.Published)
	assert.Nil(t, b.MonthlyAmount)
	assert.Equal(t, int64(-10000), b.Monthly())

	summary, err := service.Summary(context.Background(), "b-1")
	require.NoError(t, err)
	assert.Equal(t, int64(-10000), summary.MonthlyTotal)
}
