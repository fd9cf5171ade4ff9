package models

import (
	"time"

	"github.com/Rhymond/go-money"
)

// Debt is an obligation from the debtor account to the creditor account.
// Once settled a debt is terminal and never reopened.
type Debt struct {
	ID          string `json:"id"`
	CreditorID  int64  `json:"creditorId"`
	DebtorID    int64  `json:"debtorId"`
	AmountMinor int64  `json:"amountMinor"`
	Currency    string `json:"currency"`
	Snapshot
	CategoryID           *int64    `json:"categoryId,omitempty"`
	Note                 string    `json:"note,omitempty"`
	RelatedTransactionID *string   `json:"relatedTransactionId,omitempty"`
	IsSettled            bool      `json:"isSettled"`
	CreatedAt            time.Time `json:"createdAt"`
}

// Money returns the original-currency amount owed.
func (d *Debt) Money() *money.Money {
	return money.New(d.AmountMinor, d.Currency)
}

// Involves reports whether the account is a party to this debt.
func (d *Debt) Involves(accountID int64) bool {
	return d.CreditorID == accountID || d.DebtorID == accountID
}

// CounterpartyOf returns the other party's account id.
func (d *Debt) CounterpartyOf(accountID int64) int64 {
	if d.CreditorID == accountID {
		return d.DebtorID
	}
	return d.CreditorID
}
