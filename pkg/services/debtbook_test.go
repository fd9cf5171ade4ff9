package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kasabot/kasa/pkg/models"
)

func TestCreateDebt(t *testing.T) {
	store := setupTestStore(t)
	book := NewDebtBook(store, defaultRates())
	alice := newTestAccount(t, store, "tg:alice", "Alice")
	bob := newTestAccount(t, store, "tg:bob", "Bob")
	ctx := context.Background()

	d, err := book.CreateDebt(ctx, alice, bob,
		models.Amount{Value: "100", Currency: "RSD"}, nil, "rent share", nil)
	assert.NoError(t, err)

	assert.Equal(t, alice.ID, d.CreditorID)
	assert.Equal(t, bob.ID, d.DebtorID)
	assert.Equal(t, int64(10000), d.AmountMinor)
	assert.InDelta(t, 0.85, d.AmountEUR, 1e-9)
	assert.InDelta(t, 0.92, d.AmountUSD, 1e-9)
	assert.False(t, d.IsSettled)

	t.Run("Self-debt is rejected", func(t *testing.T) {
		_, err := book.CreateDebt(ctx, alice, alice,
			models.Amount{Value: "10", Currency: "EUR"}, nil, "", nil)
		assert.ErrorIs(t, err, ErrInvalidOperation)
	})

	t.Run("Bad amount is rejected", func(t *testing.T) {
		_, err := book.CreateDebt(ctx, alice, bob,
			models.Amount{Value: "-5", Currency: "EUR"}, nil, "", nil)
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestSettle(t *testing.T) {
	store := setupTestStore(t)
	book := NewDebtBook(store, defaultRates())
	alice := newTestAccount(t, store, "tg:alice", "Alice")
	bob := newTestAccount(t, store, "tg:bob", "Bob")
	carol := newTestAccount(t, store, "tg:carol", "Carol")
	ctx := context.Background()

	d, err := book.CreateDebt(ctx, alice, bob,
		models.Amount{Value: "100", Currency: "RSD"}, nil, "", nil)
	assert.NoError(t, err)

	t.Run("Third parties cannot settle", func(t *testing.T) {
		_, err := book.Settle(ctx, d.ID, carol)
		assert.ErrorIs(t, err, ErrAccessDenied)
	})

	t.Run("Missing debt", func(t *testing.T) {
		_, err := book.Settle(ctx, "no-such-id", bob)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	settlement, err := book.Settle(ctx, d.ID, bob)
	assert.NoError(t, err)
	assert.Equal(t, models.KindSettlement, settlement.Kind)
	assert.Equal(t, d.AmountMinor, settlement.AmountMinor)
	assert.Equal(t, d.Currency, settlement.Currency)
	// The debt's frozen snapshot carries over verbatim
	assert.Equal(t, d.Snapshot, settlement.Snapshot)
	assert.NotNil(t, settlement.RelatedDebtID)
	assert.Equal(t, d.ID, *settlement.RelatedDebtID)

	got, err := store.GetDebt(d.ID)
	assert.NoError(t, err)
	assert.True(t, got.IsSettled)

	t.Run("Settling twice fails", func(t *testing.T) {
		_, err := book.Settle(ctx, d.ID, alice)
		assert.ErrorIs(t, err, ErrDebtSettled)
	})
}

func TestSettleConcurrent(t *testing.T) {
	store := setupTestStore(t)
	book := NewDebtBook(store, defaultRates())
	alice := newTestAccount(t, store, "tg:alice", "Alice")
	bob := newTestAccount(t, store, "tg:bob", "Bob")
	ctx := context.Background()

	d, err := book.CreateDebt(ctx, alice, bob,
		models.Amount{Value: "100", Currency: "EUR"}, nil, "", nil)
	assert.NoError(t, err)

	const settlers = 8
	var wg sync.WaitGroup
	errs := make([]error, settlers)

	for i := 0; i < settlers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = book.Settle(ctx, d.ID, bob)
		}(i)
	}
	wg.Wait()

	var won int
	for _, err := range errs {
		if err == nil {
			won++
		} else {
			assert.ErrorIs(t, err, ErrDebtSettled)
		}
	}
	assert.Equal(t, 1, won)

	// Exactly one settlement transaction exists
	transactions, err := store.ListTransactions(bob.ID, 50)
	assert.NoError(t, err)
	assert.Len(t, transactions, 1)
}

func TestSummary(t *testing.T) {
	store := setupTestStore(t)
	book := NewDebtBook(store, defaultRates())
	alice := newTestAccount(t, store, "tg:alice", "Alice")
	bob := newTestAccount(t, store, "tg:bob", "Bob")
	carol := newTestAccount(t, store, "tg:carol", "Carol")
	ctx := context.Background()

	_, err := book.CreateDebt(ctx, alice, bob, models.Amount{Value: "30", Currency: "EUR"}, nil, "", nil)
	assert.NoError(t, err)
	_, err = book.CreateDebt(ctx, alice, bob, models.Amount{Value: "20", Currency: "EUR"}, nil, "", nil)
	assert.NoError(t, err)
	_, err = book.CreateDebt(ctx, alice, carol, models.Amount{Value: "1000", Currency: "RSD"}, nil, "", nil)
	assert.NoError(t, err)
	_, err = book.CreateDebt(ctx, bob, alice, models.Amount{Value: "15", Currency: "USD"}, nil, "", nil)
	assert.NoError(t, err)

	summary, err := book.Summary(ctx, alice)
	assert.NoError(t, err)

	assert.Equal(t, int64(5000), summary.OwedToMe["Bob"]["EUR"])
	assert.Equal(t, int64(100000), summary.OwedToMe["Carol"]["RSD"])
	assert.Equal(t, int64(1500), summary.IOwe["Bob"]["USD"])
}

func TestNetDebts(t *testing.T) {
	store := setupTestStore(t)
	book := NewDebtBook(store, defaultRates())
	alice := newTestAccount(t, store, "tg:alice", "Alice")
	bob := newTestAccount(t, store, "tg:bob", "Bob")
	ctx := context.Background()

	// Bob owes Alice 100 EUR, Alice owes Bob 30 EUR
	_, err := book.CreateDebt(ctx, alice, bob, models.Amount{Value: "100", Currency: "EUR"}, nil, "", nil)
	assert.NoError(t, err)
	_, err = book.CreateDebt(ctx, bob, alice, models.Amount{Value: "30", Currency: "EUR"}, nil, "", nil)
	assert.NoError(t, err)

	calc, err := book.NetDebts(ctx, alice, bob, "EUR")
	assert.NoError(t, err)

	assert.Len(t, calc.Entries, 2)
	assert.InDelta(t, 30, calc.TotalAOwesB, 1e-9)
	assert.InDelta(t, 100, calc.TotalBOwesA, 1e-9)
	// Net < 0: Bob net-owes Alice
	assert.InDelta(t, -70, calc.Net, 1e-9)

	t.Run("Base must be a reference currency", func(t *testing.T) {
		_, err := book.NetDebts(ctx, alice, bob, "GBP")
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("Netting against oneself is rejected", func(t *testing.T) {
		_, err := book.NetDebts(ctx, alice, alice, "EUR")
		assert.ErrorIs(t, err, ErrInvalidOperation)
	})

	t.Run("Read-only", func(t *testing.T) {
		debts, err := store.ListUnsettledBetween(alice.ID, bob.ID)
		assert.NoError(t, err)
		assert.Len(t, debts, 2)
	})
}

func TestCancelMutual(t *testing.T) {
	ctx := context.Background()

	t.Run("Residual goes to the net creditor", func(t *testing.T) {
		store := setupTestStore(t)
		book := NewDebtBook(store, defaultRates())
		alice := newTestAccount(t, store, "tg:alice", "Alice")
		bob := newTestAccount(t, store, "tg:bob", "Bob")

		_, err := book.CreateDebt(ctx, alice, bob, models.Amount{Value: "100", Currency: "EUR"}, nil, "", nil)
		assert.NoError(t, err)
		_, err = book.CreateDebt(ctx, bob, alice, models.Amount{Value: "30", Currency: "EUR"}, nil, "", nil)
		assert.NoError(t, err)

		cancellation, err := book.CancelMutual(ctx, alice, bob, "EUR")
		assert.NoError(t, err)
		assert.Len(t, cancellation.CancelledIDs, 2)

		residual := cancellation.NetDebt
		assert.NotNil(t, residual)
		// Bob net-owed Alice 70
		assert.Equal(t, alice.ID, residual.CreditorID)
		assert.Equal(t, bob.ID, residual.DebtorID)
		assert.Equal(t, int64(7000), residual.AmountMinor)
		assert.Equal(t, "EUR", residual.Currency)

		// The only open debt left is the residual
		open, err := store.ListUnsettledBetween(alice.ID, bob.ID)
		assert.NoError(t, err)
		assert.Len(t, open, 1)
		assert.Equal(t, residual.ID, open[0].ID)
	})

	t.Run("Balanced debts leave no residual", func(t *testing.T) {
		store := setupTestStore(t)
		book := NewDebtBook(store, defaultRates())
		alice := newTestAccount(t, store, "tg:alice", "Alice")
		bob := newTestAccount(t, store, "tg:bob", "Bob")

		_, err := book.CreateDebt(ctx, alice, bob, models.Amount{Value: "50", Currency: "EUR"}, nil, "", nil)
		assert.NoError(t, err)
		_, err = book.CreateDebt(ctx, bob, alice, models.Amount{Value: "50", Currency: "EUR"}, nil, "", nil)
		assert.NoError(t, err)

		cancellation, err := book.CancelMutual(ctx, alice, bob, "EUR")
		assert.NoError(t, err)
		assert.Len(t, cancellation.CancelledIDs, 2)
		assert.Nil(t, cancellation.NetDebt)

		open, err := store.ListUnsettledBetween(alice.ID, bob.ID)
		assert.NoError(t, err)
		assert.Empty(t, open)
	})

	t.Run("No mutual debts is a no-op", func(t *testing.T) {
		store := setupTestStore(t)
		book := NewDebtBook(store, defaultRates())
		alice := newTestAccount(t, store, "tg:alice", "Alice")
		bob := newTestAccount(t, store, "tg:bob", "Bob")

		cancellation, err := book.CancelMutual(ctx, alice, bob, "EUR")
		assert.NoError(t, err)
		assert.Empty(t, cancellation.CancelledIDs)
		assert.Nil(t, cancellation.NetDebt)
	})

	t.Run("Mixed currencies net through frozen snapshots", func(t *testing.T) {
		store := setupTestStore(t)
		book := NewDebtBook(store, defaultRates())
		alice := newTestAccount(t, store, "tg:alice", "Alice")
		bob := newTestAccount(t, store, "tg:bob", "Bob")

		// Bob owes Alice 10000 RSD (85 EUR frozen), Alice owes Bob 25 EUR
		_, err := book.CreateDebt(ctx, alice, bob, models.Amount{Value: "10000", Currency: "RSD"}, nil, "", nil)
		assert.NoError(t, err)
		_, err = book.CreateDebt(ctx, bob, alice, models.Amount{Value: "25", Currency: "EUR"}, nil, "", nil)
		assert.NoError(t, err)

		cancellation, err := book.CancelMutual(ctx, alice, bob, "EUR")
		assert.NoError(t, err)

		residual := cancellation.NetDebt
		assert.NotNil(t, residual)
		assert.Equal(t, alice.ID, residual.CreditorID)
		assert.Equal(t, int64(6000), residual.AmountMinor)
	})
}
