package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/kasabot/kasa/db"
	"github.com/kasabot/kasa/pkg/fx"
	"github.com/kasabot/kasa/pkg/models"
)

// RateSource resolves conversion rates for freezing and display.
type RateSource interface {
	Rate(ctx context.Context, from, to string, asOf time.Time) (float64, error)
	RatesFor(ctx context.Context, currency string, asOf time.Time) (fx.Rates, error)
}

// Ledger owns the transaction log: creation, reversal, history and
// currency-normalized report aggregation.
type Ledger struct {
	store db.Store
	rates RateSource
	now   func() time.Time
}

// NewLedger creates a ledger over the given store and rate source.
func NewLedger(store db.Store, rates RateSource) *Ledger {
	return &Ledger{
		store: store,
		rates: rates,
		now:   time.Now,
	}
}

// CreateTransaction records a new EXPENSE or INCOME entry. The amount is
// parsed into minor units and both reference-currency snapshots are
// frozen using rates as of the entry's effective date.
func (l *Ledger) CreateTransaction(
	ctx context.Context,
	account *models.Account,
	amount models.Amount,
	kind models.TransactionKind,
	categoryID *int64,
	note string,
	at *time.Time,
) (*models.Transaction, error) {
	if kind != models.KindExpense && kind != models.KindIncome {
		return nil, fmt.Errorf("%w: kind %s cannot be created directly", ErrInvalidOperation, kind)
	}

	minor, currency, err := parseAmount(amount)
	if err != nil {
		return nil, err
	}

	atTime := l.now().UTC()
	if at != nil {
		atTime = at.UTC()
	}

	rates, err := l.rates.RatesFor(ctx, currency, atTime)
	if err != nil {
		return nil, err
	}

	t := &models.Transaction{
		ID:          uuid.NewString(),
		AccountID:   account.ID,
		Kind:        kind,
		AmountMinor: minor,
		Currency:    currency,
		Snapshot:    models.NewSnapshot(models.MajorValue(minor, currency), rates.EUR, rates.USD),
		CategoryID:  categoryID,
		Note:        note,
		At:          atTime,
		CreatedAt:   l.now().UTC(),
	}

	if err := l.store.InsertTransaction(t); err != nil {
		return nil, err
	}

	log.Info().
		Str("transaction", t.ID).
		Int64("account", account.ID).
		Str("kind", string(kind)).
		Str("amount", models.FormatMinor(minor, currency)).
		Msg("Created transaction")

	return t, nil
}

// Reverse creates a REVERSAL entry cancelling the original transaction.
// The reversal carries the original's amount, currency and frozen
// reference snapshot unchanged, so the pair nets to zero in every
// currency view regardless of rate drift. Reversals themselves cannot
// be reversed, and the original is never mutated.
func (l *Ledger) Reverse(ctx context.Context, transactionID string, account *models.Account) (*models.Transaction, error) {
	original, err := l.store.GetTransaction(transactionID)
	if err != nil {
		return nil, err
	}
	if original == nil {
		return nil, fmt.Errorf("%w: transaction %s", ErrNotFound, transactionID)
	}
	if original.AccountID != account.ID {
		return nil, fmt.Errorf("%w: transaction %s", ErrAccessDenied, transactionID)
	}
	if original.IsReversal() {
		return nil, fmt.Errorf("%w: cannot reverse a reversal", ErrInvalidOperation)
	}
	if original.Kind == models.KindSettlement {
		// Settled debts are terminal; undoing the settlement entry would
		// leave the debt settled with its amount gone from reports.
		return nil, fmt.Errorf("%w: cannot reverse a settlement", ErrInvalidOperation)
	}

	reversal := &models.Transaction{
		ID:          uuid.NewString(),
		AccountID:   account.ID,
		Kind:        models.KindReversal,
		AmountMinor: original.AmountMinor,
		Currency:    original.Currency,
		Snapshot:    original.Snapshot,
		CategoryID:  original.CategoryID,
		Note:        fmt.Sprintf("Reversal of transaction %s", original.ID),
		At:          l.now().UTC(),
		CreatedAt:   l.now().UTC(),
		ReversesID:  &original.ID,
	}

	if err := l.store.InsertTransaction(reversal); err != nil {
		return nil, err
	}

	log.Info().Str("reversal", reversal.ID).Str("original", original.ID).Msg("Created reversal")
	return reversal, nil
}

// History returns the account's newest transactions, bounded by limit.
func (l *Ledger) History(ctx context.Context, account *models.Account, limit int) ([]*models.Transaction, error) {
	if limit <= 0 {
		limit = 10
	}
	return l.store.ListTransactions(account.ID, limit)
}

// MonthlyReport aggregates one calendar month. Year/month default to
// the current month; displayCurrency defaults to the account's report
// currency preference.
func (l *Ledger) MonthlyReport(ctx context.Context, account *models.Account, year int, month time.Month, displayCurrency string) (*models.Report, error) {
	now := l.now().UTC()
	if year == 0 {
		year = now.Year()
	}
	if month == 0 {
		month = now.Month()
	}
	return l.buildReport(ctx, account, models.Monthly{Year: year, Month: month}, displayCurrency)
}

// RangeReport aggregates an arbitrary date range; the end date is
// inclusive through end of day.
func (l *Ledger) RangeReport(ctx context.Context, account *models.Account, start, end time.Time, displayCurrency string) (*models.Report, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("%w: range end before start", ErrValidation)
	}
	return l.buildReport(ctx, account, models.DateRange{Start: start, End: end}, displayCurrency)
}

// buildReport sums the frozen reference-currency column (USD when the
// display currency is USD, EUR otherwise) per category, then applies a
// single conversion step to the display currency. EUR and USD reports
// are therefore fully historically frozen; other display currencies
// re-price the frozen EUR sums at the current rate.
func (l *Ledger) buildReport(ctx context.Context, account *models.Account, period models.ReportPeriod, displayCurrency string) (*models.Report, error) {
	if displayCurrency == "" {
		displayCurrency = account.ReportCurrency
	}
	displayCurrency = strings.ToUpper(displayCurrency)
	if !models.ValidCurrencyCode(displayCurrency) {
		return nil, fmt.Errorf("%w: bad display currency %q", ErrValidation, displayCurrency)
	}

	base := "EUR"
	if displayCurrency == "USD" {
		base = "USD"
	}

	start, end := period.Bounds()
	transactions, err := l.store.ListTransactionsInRange(account.ID, start, end)
	if err != nil {
		return nil, err
	}

	conversion := 1.0
	if displayCurrency != base {
		conversion, err = l.rates.Rate(ctx, base, displayCurrency, l.now().UTC())
		if err != nil {
			return nil, err
		}
	}

	report := &models.Report{
		Period:   period,
		Currency: displayCurrency,
	}

	expenses, income, err := l.signedEntries(transactions)
	if err != nil {
		return nil, err
	}

	report.Expenses, report.TotalExpenses, err = l.categoryLines(account, models.FlowExpense, expenses, base, conversion)
	if err != nil {
		return nil, err
	}
	report.Income, report.TotalIncome, err = l.categoryLines(account, models.FlowIncome, income, base, conversion)
	if err != nil {
		return nil, err
	}
	report.Balance = report.TotalIncome - report.TotalExpenses

	return report, nil
}

type signedEntry struct {
	tx   *models.Transaction
	sign float64
}

// signedEntries splits transactions into expense and income buckets. A
// reversal lands in its original's bucket with a negative sign, so the
// pair nets to zero; settlements are not spending and are excluded.
func (l *Ledger) signedEntries(transactions []*models.Transaction) (expenses, income []signedEntry, err error) {
	byID := lo.SliceToMap(transactions, func(t *models.Transaction) (string, *models.Transaction) {
		return t.ID, t
	})

	for _, t := range transactions {
		switch t.Kind {
		case models.KindExpense:
			expenses = append(expenses, signedEntry{tx: t, sign: 1})
		case models.KindIncome:
			income = append(income, signedEntry{tx: t, sign: 1})
		case models.KindReversal:
			if t.ReversesID == nil {
				continue
			}
			original, ok := byID[*t.ReversesID]
			if !ok {
				original, err = l.store.GetTransaction(*t.ReversesID)
				if err != nil {
					return nil, nil, err
				}
				if original == nil {
					continue
				}
			}
			switch original.Kind {
			case models.KindIncome:
				income = append(income, signedEntry{tx: t, sign: -1})
			case models.KindExpense:
				expenses = append(expenses, signedEntry{tx: t, sign: -1})
			}
		}
	}

	return expenses, income, nil
}

func (l *Ledger) categoryLines(account *models.Account, kind models.FlowKind, entries []signedEntry, base string, conversion float64) ([]models.ReportLine, float64, error) {
	categories, err := l.store.ListCategories(account.ID, kind, true)
	if err != nil {
		return nil, 0, err
	}
	byID := lo.SliceToMap(categories, func(c *models.Category) (int64, *models.Category) {
		return c.ID, c
	})

	grouped := lo.GroupBy(entries, func(e signedEntry) int64 {
		if e.tx.CategoryID == nil {
			return 0
		}
		return *e.tx.CategoryID
	})

	var (
		lines []models.ReportLine
		total float64
	)
	for categoryID, group := range grouped {
		var sum float64
		for _, e := range group {
			ref, err := e.tx.Reference(base)
			if err != nil {
				return nil, 0, err
			}
			sum += e.sign * ref
		}

		name, icon := "Uncategorized", ""
		if c, ok := byID[categoryID]; ok {
			name, icon = c.Name, c.Icon
		}

		lines = append(lines, models.ReportLine{
			Category: name,
			Icon:     icon,
			Amount:   sum * conversion,
		})
		total += sum
	}

	sort.Slice(lines, func(i, j int) bool { return lines[i].Category < lines[j].Category })
	return lines, total * conversion, nil
}

func parseAmount(amount models.Amount) (int64, string, error) {
	currency := strings.ToUpper(strings.TrimSpace(amount.Currency))
	if !models.ValidCurrencyCode(currency) {
		return 0, "", fmt.Errorf("%w: bad currency code %q", ErrValidation, amount.Currency)
	}

	m, err := (&models.Amount{Value: amount.Value, Currency: currency}).ToMoney()
	if err != nil {
		return 0, "", fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if m.Amount() <= 0 {
		return 0, "", fmt.Errorf("%w: amount must be positive", ErrValidation)
	}

	return m.Amount(), currency, nil
}
