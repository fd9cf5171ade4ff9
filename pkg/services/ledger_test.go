package services

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kasabot/kasa/db"
	"github.com/kasabot/kasa/pkg/fx"
	"github.com/kasabot/kasa/pkg/models"
)

// stubRates serves fixed rates from a "FROM:TO" table; missing pairs are
// unavailable.
type stubRates struct {
	table map[string]float64
}

func (s *stubRates) Rate(ctx context.Context, from, to string, asOf time.Time) (float64, error) {
	if from == to {
		return 1, nil
	}
	rate, ok := s.table[from+":"+to]
	if !ok {
		return 0, fmt.Errorf("%w: %s -> %s", fx.ErrUnavailable, from, to)
	}
	return rate, nil
}

func (s *stubRates) RatesFor(ctx context.Context, currency string, asOf time.Time) (fx.Rates, error) {
	eur, err := s.Rate(ctx, currency, "EUR", asOf)
	if err != nil {
		return fx.Rates{}, err
	}
	usd, err := s.Rate(ctx, currency, "USD", asOf)
	if err != nil {
		return fx.Rates{}, err
	}
	return fx.Rates{EUR: eur, USD: usd}, nil
}

func defaultRates() *stubRates {
	return &stubRates{table: map[string]float64{
		"RSD:EUR": 0.0085,
		"RSD:USD": 0.0092,
		"EUR:USD": 1.08,
		"USD:EUR": 0.925,
		"EUR:RSD": 117.6,
	}}
}

func setupTestStore(t *testing.T) *db.DB {
	t.Helper()

	tempFile, err := os.CreateTemp("", "test-db-*.db")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	tempFile.Close()
	t.Cleanup(func() { os.Remove(tempFile.Name()) })

	store, err := db.New(tempFile.Name())
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if err := store.Initialize(); err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}

	return store
}

func newTestAccount(t *testing.T, store *db.DB, externalID, name string) *models.Account {
	t.Helper()

	a := &models.Account{
		ExternalID:      externalID,
		Name:            name,
		DefaultCurrency: "RSD",
		ReportCurrency:  "EUR",
	}
	if err := store.CreateAccount(a); err != nil {
		t.Fatalf("Failed to create account: %v", err)
	}
	return a
}

func TestCreateTransaction(t *testing.T) {
	store := setupTestStore(t)
	ledger := NewLedger(store, defaultRates())
	account := newTestAccount(t, store, "tg:1", "Mila")
	ctx := context.Background()

	at := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	created, err := ledger.CreateTransaction(ctx, account,
		models.Amount{Value: "100", Currency: "RSD"},
		models.KindExpense, nil, "groceries", &at)
	assert.NoError(t, err)

	assert.Equal(t, models.KindExpense, created.Kind)
	assert.Equal(t, int64(10000), created.AmountMinor)
	assert.Equal(t, "RSD", created.Currency)
	assert.InDelta(t, 0.85, created.AmountEUR, 1e-9)
	assert.InDelta(t, 0.92, created.AmountUSD, 1e-9)
	assert.Equal(t, at, created.At)

	got, err := store.GetTransaction(created.ID)
	assert.NoError(t, err)
	assert.NotNil(t, got)
	assert.Equal(t, created.AmountMinor, got.AmountMinor)
	assert.Equal(t, created.Snapshot, got.Snapshot)
}

func TestCreateTransactionValidation(t *testing.T) {
	store := setupTestStore(t)
	ledger := NewLedger(store, defaultRates())
	account := newTestAccount(t, store, "tg:1", "Mila")
	ctx := context.Background()

	t.Run("Bad currency", func(t *testing.T) {
		_, err := ledger.CreateTransaction(ctx, account,
			models.Amount{Value: "10", Currency: "nope"},
			models.KindExpense, nil, "", nil)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("Zero amount", func(t *testing.T) {
		_, err := ledger.CreateTransaction(ctx, account,
			models.Amount{Value: "0", Currency: "EUR"},
			models.KindExpense, nil, "", nil)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("Reversal cannot be created directly", func(t *testing.T) {
		_, err := ledger.CreateTransaction(ctx, account,
			models.Amount{Value: "10", Currency: "EUR"},
			models.KindReversal, nil, "", nil)
		assert.ErrorIs(t, err, ErrInvalidOperation)
	})

	t.Run("Unavailable rate surfaces, no silent default", func(t *testing.T) {
		_, err := ledger.CreateTransaction(ctx, account,
			models.Amount{Value: "10", Currency: "GBP"},
			models.KindExpense, nil, "", nil)
		assert.ErrorIs(t, err, ErrRateUnavailable)

		// Nothing was written
		history, err := ledger.History(ctx, account, 10)
		assert.NoError(t, err)
		assert.Empty(t, history)
	})
}

func TestReverse(t *testing.T) {
	store := setupTestStore(t)
	ledger := NewLedger(store, defaultRates())
	account := newTestAccount(t, store, "tg:1", "Mila")
	stranger := newTestAccount(t, store, "tg:2", "Novak")
	ctx := context.Background()

	at := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	original, err := ledger.CreateTransaction(ctx, account,
		models.Amount{Value: "100", Currency: "RSD"},
		models.KindExpense, nil, "groceries", &at)
	assert.NoError(t, err)

	t.Run("Stranger cannot reverse", func(t *testing.T) {
		_, err := ledger.Reverse(ctx, original.ID, stranger)
		assert.ErrorIs(t, err, ErrAccessDenied)
	})

	t.Run("Missing transaction", func(t *testing.T) {
		_, err := ledger.Reverse(ctx, "no-such-id", account)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	reversal, err := ledger.Reverse(ctx, original.ID, account)
	assert.NoError(t, err)
	assert.Equal(t, models.KindReversal, reversal.Kind)
	assert.Equal(t, original.AmountMinor, reversal.AmountMinor)
	assert.Equal(t, original.Currency, reversal.Currency)
	// The frozen snapshot carries over verbatim
	assert.Equal(t, original.Snapshot, reversal.Snapshot)
	assert.NotNil(t, reversal.ReversesID)
	assert.Equal(t, original.ID, *reversal.ReversesID)

	t.Run("Original is untouched", func(t *testing.T) {
		got, err := store.GetTransaction(original.ID)
		assert.NoError(t, err)
		assert.Equal(t, models.KindExpense, got.Kind)
	})

	t.Run("Reversal cannot be reversed", func(t *testing.T) {
		_, err := ledger.Reverse(ctx, reversal.ID, account)
		assert.ErrorIs(t, err, ErrInvalidOperation)
	})
}

func TestReverseSettlement(t *testing.T) {
	store := setupTestStore(t)
	ledger := NewLedger(store, defaultRates())
	book := NewDebtBook(store, defaultRates())
	alice := newTestAccount(t, store, "tg:alice", "Alice")
	bob := newTestAccount(t, store, "tg:bob", "Bob")
	ctx := context.Background()

	march := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)
	_, err := ledger.CreateTransaction(ctx, bob,
		models.Amount{Value: "100", Currency: "EUR"},
		models.KindExpense, nil, "", &march)
	assert.NoError(t, err)

	debt, err := book.CreateDebt(ctx, alice, bob,
		models.Amount{Value: "40", Currency: "EUR"}, nil, "", nil)
	assert.NoError(t, err)
	settlement, err := book.Settle(ctx, debt.ID, bob)
	assert.NoError(t, err)

	_, err = ledger.Reverse(ctx, settlement.ID, bob)
	assert.ErrorIs(t, err, ErrInvalidOperation)

	// The debt stays settled and report totals are untouched
	got, err := store.GetDebt(debt.ID)
	assert.NoError(t, err)
	assert.True(t, got.IsSettled)

	report, err := ledger.MonthlyReport(ctx, bob, 2026, time.March, "EUR")
	assert.NoError(t, err)
	assert.InDelta(t, 100, report.TotalExpenses, 1e-9)
}

func TestHistory(t *testing.T) {
	store := setupTestStore(t)
	ledger := NewLedger(store, defaultRates())
	account := newTestAccount(t, store, "tg:1", "Mila")
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 12; i++ {
		at := base.AddDate(0, 0, i)
		_, err := ledger.CreateTransaction(ctx, account,
			models.Amount{Value: "10", Currency: "EUR"},
			models.KindExpense, nil, "", &at)
		assert.NoError(t, err)
	}

	history, err := ledger.History(ctx, account, 0)
	assert.NoError(t, err)
	assert.Len(t, history, 10)
	// Newest first
	assert.Equal(t, base.AddDate(0, 0, 11), history[0].At)
}

func TestMonthlyReport(t *testing.T) {
	store := setupTestStore(t)
	rates := defaultRates()
	ledger := NewLedger(store, rates)
	account := newTestAccount(t, store, "tg:1", "Mila")
	ctx := context.Background()

	groceries := &models.Category{AccountID: account.ID, Kind: models.FlowExpense, Name: "Groceries", Icon: "🛒"}
	assert.NoError(t, store.InsertCategory(groceries))

	march := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)
	april := time.Date(2026, 4, 2, 12, 0, 0, 0, time.UTC)

	// 100 RSD -> 0.85 EUR, categorized
	_, err := ledger.CreateTransaction(ctx, account,
		models.Amount{Value: "100", Currency: "RSD"},
		models.KindExpense, &groceries.ID, "", &march)
	assert.NoError(t, err)

	// 20 EUR -> 20 EUR, uncategorized
	_, err = ledger.CreateTransaction(ctx, account,
		models.Amount{Value: "20", Currency: "EUR"},
		models.KindExpense, nil, "", &march)
	assert.NoError(t, err)

	// 1000 RSD income -> 8.5 EUR
	_, err = ledger.CreateTransaction(ctx, account,
		models.Amount{Value: "1000", Currency: "RSD"},
		models.KindIncome, nil, "", &march)
	assert.NoError(t, err)

	// Out-of-month entry is excluded
	_, err = ledger.CreateTransaction(ctx, account,
		models.Amount{Value: "500", Currency: "EUR"},
		models.KindExpense, nil, "", &april)
	assert.NoError(t, err)

	t.Run("EUR display sums frozen EUR amounts", func(t *testing.T) {
		report, err := ledger.MonthlyReport(ctx, account, 2026, time.March, "EUR")
		assert.NoError(t, err)

		assert.InDelta(t, 20.85, report.TotalExpenses, 1e-9)
		assert.InDelta(t, 8.5, report.TotalIncome, 1e-9)
		assert.InDelta(t, report.TotalIncome-report.TotalExpenses, report.Balance, 1e-9)

		assert.Len(t, report.Expenses, 2)
		byName := map[string]float64{}
		for _, line := range report.Expenses {
			byName[line.Category] = line.Amount
		}
		assert.InDelta(t, 0.85, byName["Groceries"], 1e-9)
		assert.InDelta(t, 20.0, byName["Uncategorized"], 1e-9)
	})

	t.Run("USD display sums frozen USD amounts", func(t *testing.T) {
		report, err := ledger.MonthlyReport(ctx, account, 2026, time.March, "USD")
		assert.NoError(t, err)

		// 100 RSD -> 0.92, 20 EUR -> 21.6
		assert.InDelta(t, 0.92+21.6, report.TotalExpenses, 1e-9)
		assert.InDelta(t, 9.2, report.TotalIncome, 1e-9)
	})

	t.Run("Other display currencies convert the frozen EUR sums", func(t *testing.T) {
		report, err := ledger.MonthlyReport(ctx, account, 2026, time.March, "RSD")
		assert.NoError(t, err)

		assert.InDelta(t, 20.85*117.6, report.TotalExpenses, 1e-6)
		assert.InDelta(t, 8.5*117.6, report.TotalIncome, 1e-6)
	})

	t.Run("Empty display currency uses the report preference", func(t *testing.T) {
		report, err := ledger.MonthlyReport(ctx, account, 2026, time.March, "")
		assert.NoError(t, err)
		assert.Equal(t, "EUR", report.Currency)
	})

	t.Run("Reversal cancels the original in every view", func(t *testing.T) {
		victim, err := ledger.CreateTransaction(ctx, account,
			models.Amount{Value: "50", Currency: "EUR"},
			models.KindExpense, nil, "", &march)
		assert.NoError(t, err)

		before := map[string]*models.Report{}
		for _, display := range []string{"EUR", "USD"} {
			r, err := ledger.MonthlyReport(ctx, account, 2026, time.March, display)
			assert.NoError(t, err)
			before[display] = r
		}

		// Pin the clock so the reversal's effective time lands in March.
		ledger.now = func() time.Time { return march.AddDate(0, 0, 1) }
		_, err = ledger.Reverse(ctx, victim.ID, account)
		assert.NoError(t, err)
		ledger.now = time.Now

		for _, display := range []string{"EUR", "USD"} {
			after, err := ledger.MonthlyReport(ctx, account, 2026, time.March, display)
			assert.NoError(t, err)
			assert.InDelta(t, before[display].TotalExpenses-50*conversionFor(display, rates), after.TotalExpenses, 1e-6)
		}
	})
}

func conversionFor(display string, rates *stubRates) float64 {
	if display == "USD" {
		return rates.table["EUR:USD"]
	}
	return 1
}

func TestRangeReport(t *testing.T) {
	store := setupTestStore(t)
	ledger := NewLedger(store, defaultRates())
	account := newTestAccount(t, store, "tg:1", "Mila")
	ctx := context.Background()

	day1 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	day3 := time.Date(2026, 3, 3, 10, 0, 0, 0, time.UTC)

	for _, at := range []time.Time{day1, day2, day3} {
		at := at
		_, err := ledger.CreateTransaction(ctx, account,
			models.Amount{Value: "10", Currency: "EUR"},
			models.KindExpense, nil, "", &at)
		assert.NoError(t, err)
	}

	t.Run("End date is inclusive", func(t *testing.T) {
		report, err := ledger.RangeReport(ctx, account, day1, day2, "EUR")
		assert.NoError(t, err)
		assert.InDelta(t, 20, report.TotalExpenses, 1e-9)
	})

	t.Run("End before start is rejected", func(t *testing.T) {
		_, err := ledger.RangeReport(ctx, account, day3, day1, "EUR")
		assert.ErrorIs(t, err, ErrValidation)
	})
}
