package models

import (
	"time"

	"github.com/Rhymond/go-money"
)

// TransactionKind is fixed at creation; there are no kind transitions.
type TransactionKind string

const (
	KindExpense    TransactionKind = "EXPENSE"
	KindIncome     TransactionKind = "INCOME"
	KindReversal   TransactionKind = "REVERSAL"
	KindSettlement TransactionKind = "SETTLEMENT"
)

// Transaction is a single immutable ledger entry. A REVERSAL entry cancels
// its original through ReversesID and carries the original's frozen
// snapshot unchanged, so the pair nets to zero in every currency view.
type Transaction struct {
	ID          string          `json:"id"`
	AccountID   int64           `json:"accountId"`
	Kind        TransactionKind `json:"kind"`
	AmountMinor int64           `json:"amountMinor"`
	Currency    string          `json:"currency"`
	Snapshot
	CategoryID    *int64    `json:"categoryId,omitempty"`
	Note          string    `json:"note,omitempty"`
	At            time.Time `json:"at"`
	CreatedAt     time.Time `json:"createdAt"`
	RelatedDebtID *string   `json:"relatedDebtId,omitempty"`
	ReversesID    *string   `json:"reversesId,omitempty"`
}

// Money returns the original-currency amount.
func (t *Transaction) Money() *money.Money {
	return money.New(t.AmountMinor, t.Currency)
}

// IsReversal reports whether this entry is itself a reversal.
// Reversals are terminal: they can never be reversed again.
func (t *Transaction) IsReversal() bool {
	return t.Kind == KindReversal
}
