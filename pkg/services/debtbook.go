package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/kasabot/kasa/db"
	"github.com/kasabot/kasa/pkg/models"
)

// NetTolerance is the rounding tolerance, in base-currency units, under
// which a net amount counts as fully balanced and no residual debt is
// created.
const NetTolerance = 0.01

// DebtBook owns peer-to-peer debt records: creation, settlement,
// summaries and bilateral net-debt calculation/cancellation.
type DebtBook struct {
	store db.Store
	rates RateSource
	now   func() time.Time
}

// NewDebtBook creates a debt book over the given store and rate source.
func NewDebtBook(store db.Store, rates RateSource) *DebtBook {
	return &DebtBook{
		store: store,
		rates: rates,
		now:   time.Now,
	}
}

// CreateDebt records an obligation from debtor to creditor, freezing
// reference snapshots exactly like a ledger entry. Self-debts are
// rejected.
func (b *DebtBook) CreateDebt(
	ctx context.Context,
	creditor, debtor *models.Account,
	amount models.Amount,
	categoryID *int64,
	note string,
	relatedTransactionID *string,
) (*models.Debt, error) {
	if creditor.ID == debtor.ID {
		return nil, fmt.Errorf("%w: creditor and debtor are the same account", ErrInvalidOperation)
	}

	minor, currency, err := parseAmount(amount)
	if err != nil {
		return nil, err
	}

	now := b.now().UTC()
	rates, err := b.rates.RatesFor(ctx, currency, now)
	if err != nil {
		return nil, err
	}

	d := &models.Debt{
		ID:                   uuid.NewString(),
		CreditorID:           creditor.ID,
		DebtorID:             debtor.ID,
		AmountMinor:          minor,
		Currency:             currency,
		Snapshot:             models.NewSnapshot(models.MajorValue(minor, currency), rates.EUR, rates.USD),
		CategoryID:           categoryID,
		Note:                 note,
		RelatedTransactionID: relatedTransactionID,
		IsSettled:            false,
		CreatedAt:            now,
	}

	if err := b.store.InsertDebt(d); err != nil {
		return nil, err
	}

	log.Info().
		Str("debt", d.ID).
		Int64("creditor", creditor.ID).
		Int64("debtor", debtor.ID).
		Str("amount", models.FormatMinor(minor, currency)).
		Msg("Created debt")

	return d, nil
}

// DebtsFor returns debts involving the account as either party,
// newest first.
func (b *DebtBook) DebtsFor(ctx context.Context, account *models.Account, onlyUnsettled bool) ([]*models.Debt, error) {
	return b.store.ListDebtsForAccount(account.ID, onlyUnsettled)
}

// Settle discharges a debt by recording a SETTLEMENT transaction for the
// acting account and marking the debt settled, atomically. The
// settlement carries the debt's amount and frozen snapshot. A concurrent
// double-settle loses the settled-flag compare-and-set and gets
// ErrDebtSettled.
func (b *DebtBook) Settle(ctx context.Context, debtID string, actor *models.Account) (*models.Transaction, error) {
	debt, err := b.store.GetDebt(debtID)
	if err != nil {
		return nil, err
	}
	if debt == nil {
		return nil, fmt.Errorf("%w: debt %s", ErrNotFound, debtID)
	}
	if !debt.Involves(actor.ID) {
		return nil, fmt.Errorf("%w: debt %s", ErrAccessDenied, debtID)
	}
	if debt.IsSettled {
		return nil, fmt.Errorf("%w: debt %s", ErrDebtSettled, debtID)
	}

	now := b.now().UTC()
	settlement := &models.Transaction{
		ID:            uuid.NewString(),
		AccountID:     actor.ID,
		Kind:          models.KindSettlement,
		AmountMinor:   debt.AmountMinor,
		Currency:      debt.Currency,
		Snapshot:      debt.Snapshot,
		CategoryID:    debt.CategoryID,
		Note:          fmt.Sprintf("Settlement of debt %s", debt.ID),
		At:            now,
		CreatedAt:     now,
		RelatedDebtID: &debt.ID,
	}

	ok, err := b.store.SettleDebt(debt.ID, settlement)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: debt %s", ErrDebtSettled, debtID)
	}

	return settlement, nil
}

// Summary groups the account's unsettled debts by counterparty and
// original currency. Amounts are raw minor-unit totals per currency;
// no conversion is applied.
func (b *DebtBook) Summary(ctx context.Context, account *models.Account) (*models.DebtSummary, error) {
	debts, err := b.store.ListDebtsForAccount(account.ID, true)
	if err != nil {
		return nil, err
	}

	summary := &models.DebtSummary{
		OwedToMe: make(map[string]map[string]int64),
		IOwe:     make(map[string]map[string]int64),
	}

	names := make(map[int64]string)
	for _, d := range debts {
		counterpartyID := d.CounterpartyOf(account.ID)
		name, ok := names[counterpartyID]
		if !ok {
			counterparty, err := b.store.GetAccount(counterpartyID)
			if err != nil {
				return nil, err
			}
			if counterparty == nil {
				name = fmt.Sprintf("Account %d", counterpartyID)
			} else {
				name = counterparty.DisplayName()
			}
			names[counterpartyID] = name
		}

		bucket := summary.IOwe
		if d.CreditorID == account.ID {
			bucket = summary.OwedToMe
		}
		if bucket[name] == nil {
			bucket[name] = make(map[string]int64)
		}
		bucket[name][d.Currency] += d.AmountMinor
	}

	return summary, nil
}

// NetDebts nets all unsettled debts between two accounts using their
// frozen amounts in the base currency (EUR or USD only, since those are
// the stored snapshots). Net > 0 means accountA net-owes accountB.
// Read-only; callers decide whether one debt is worth netting.
func (b *DebtBook) NetDebts(ctx context.Context, accountA, accountB *models.Account, baseCurrency string) (*models.NetCalculation, error) {
	base := strings.ToUpper(baseCurrency)
	if base != "EUR" && base != "USD" {
		return nil, fmt.Errorf("%w: base currency must be EUR or USD, got %q", ErrValidation, baseCurrency)
	}
	if accountA.ID == accountB.ID {
		return nil, fmt.Errorf("%w: cannot net an account against itself", ErrInvalidOperation)
	}

	debts, err := b.store.ListUnsettledBetween(accountA.ID, accountB.ID)
	if err != nil {
		return nil, err
	}

	calc := &models.NetCalculation{
		AccountA:     accountA,
		AccountB:     accountB,
		BaseCurrency: base,
	}

	for _, d := range debts {
		ref, err := d.Reference(base)
		if err != nil {
			return nil, err
		}

		direction := models.BOwesA
		if d.DebtorID == accountA.ID {
			direction = models.AOwesB
		}

		calc.Entries = append(calc.Entries, models.NetEntry{
			Debt:       d,
			Direction:  direction,
			BaseAmount: ref,
		})
		if direction == models.AOwesB {
			calc.TotalAOwesB += ref
		} else {
			calc.TotalBOwesA += ref
		}
	}

	calc.Net = calc.TotalAOwesB - calc.TotalBOwesA
	return calc, nil
}

// CancelMutual settles every unsettled debt between the two accounts
// and, when the net amount exceeds the rounding tolerance, creates one
// residual debt for the remainder in the base currency, oriented so the
// net-owing account is the debtor. All writes happen in one atomic unit.
func (b *DebtBook) CancelMutual(ctx context.Context, accountA, accountB *models.Account, baseCurrency string) (*models.NetCancellation, error) {
	calc, err := b.NetDebts(ctx, accountA, accountB, baseCurrency)
	if err != nil {
		return nil, err
	}

	cancellation := &models.NetCancellation{Calculation: calc}
	if len(calc.Entries) == 0 {
		return cancellation, nil
	}

	cancellation.CancelledIDs = lo.Map(calc.Debts(), func(d *models.Debt, _ int) string {
		return d.ID
	})

	var residual *models.Debt
	if math.Abs(calc.Net) > NetTolerance {
		residual, err = b.buildResidual(ctx, calc)
		if err != nil {
			return nil, err
		}
	}

	if err := b.store.CancelDebts(cancellation.CancelledIDs, residual); err != nil {
		return nil, err
	}
	cancellation.NetDebt = residual

	log.Info().
		Int64("accountA", accountA.ID).
		Int64("accountB", accountB.ID).
		Float64("net", calc.Net).
		Int("cancelled", len(cancellation.CancelledIDs)).
		Msg("Cancelled mutual debts")

	return cancellation, nil
}

func (b *DebtBook) buildResidual(ctx context.Context, calc *models.NetCalculation) (*models.Debt, error) {
	creditor, debtor := calc.AccountB, calc.AccountA
	if calc.Net < 0 {
		creditor, debtor = calc.AccountA, calc.AccountB
	}

	netMajor := math.Abs(calc.Net)
	minor := int64(math.Round(netMajor * 100))

	// The residual is denominated in the base currency, so its snapshot
	// needs the base's current view of the other reference currency.
	rates, err := b.rates.RatesFor(ctx, calc.BaseCurrency, b.now().UTC())
	if err != nil {
		return nil, err
	}

	return &models.Debt{
		ID:          uuid.NewString(),
		CreditorID:  creditor.ID,
		DebtorID:    debtor.ID,
		AmountMinor: minor,
		Currency:    calc.BaseCurrency,
		Snapshot:    models.NewSnapshot(netMajor, rates.EUR, rates.USD),
		Note: fmt.Sprintf("Net of %d mutual debts between %s and %s",
			len(calc.Entries), calc.AccountA.DisplayName(), calc.AccountB.DisplayName()),
		IsSettled: false,
		CreatedAt: b.now().UTC(),
	}, nil
}
