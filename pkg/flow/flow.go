// Package flow models the multi-step data-collection conversations as
// explicit typed states with pure transition functions. Each With*
// transition validates one input and returns an updated copy, so
// partial and abandoned flows are trivial to test and expire.
package flow

import (
	"fmt"
	"strings"
	"time"

	"github.com/kasabot/kasa/pkg/models"
)

// State is the tagged union over the pending conversation kinds.
type State interface {
	isFlowState()
}

// PendingEntry collects an expense or income entry:
// amount → currency → category → note → date.
type PendingEntry struct {
	Kind       models.TransactionKind
	Amount     string
	Currency   string
	CategoryID *int64
	Note       string
	At         *time.Time
}

func (PendingEntry) isFlowState() {}

// NewPendingEntry starts an entry flow. Kind must be EXPENSE or INCOME.
func NewPendingEntry(kind models.TransactionKind) (PendingEntry, error) {
	if kind != models.KindExpense && kind != models.KindIncome {
		return PendingEntry{}, fmt.Errorf("cannot collect a %s entry", kind)
	}
	return PendingEntry{Kind: kind}, nil
}

// WithAmount validates and records the amount text.
func (p PendingEntry) WithAmount(raw string) (PendingEntry, error) {
	if err := checkAmountShape(raw); err != nil {
		return p, err
	}
	p.Amount = strings.TrimSpace(raw)
	return p, nil
}

// WithCurrency validates and records the currency code.
func (p PendingEntry) WithCurrency(code string) (PendingEntry, error) {
	normalized, err := checkCurrency(code)
	if err != nil {
		return p, err
	}
	p.Currency = normalized
	return p, nil
}

// WithCategory records the selected category.
func (p PendingEntry) WithCategory(categoryID int64) PendingEntry {
	p.CategoryID = &categoryID
	return p
}

// WithNote records the free-text note. Empty skips the note.
func (p PendingEntry) WithNote(note string) PendingEntry {
	p.Note = strings.TrimSpace(note)
	return p
}

// WithDate parses and records the effective date, in DD.MM.YYYY or
// DD.MM form (DD.MM uses the current year).
func (p PendingEntry) WithDate(raw string, now time.Time) (PendingEntry, error) {
	at, err := ParseEntryDate(raw, now)
	if err != nil {
		return p, err
	}
	p.At = &at
	return p, nil
}

// Ready reports whether the required inputs are collected.
func (p PendingEntry) Ready() bool {
	return p.Amount != "" && p.Currency != ""
}

// MoneyAmount converts the collected inputs to the service input type.
func (p PendingEntry) MoneyAmount() models.Amount {
	return models.Amount{Value: p.Amount, Currency: p.Currency}
}

// PendingDebt collects a manual debt:
// counterparty → amount → currency → category → note.
type PendingDebt struct {
	CounterpartyID string
	// IAmCreditor is true when the flow owner is owed the money.
	IAmCreditor bool
	Amount      string
	Currency    string
	CategoryID  *int64
	Note        string
}

func (PendingDebt) isFlowState() {}

// WithCounterparty records the other party's external identity.
func (p PendingDebt) WithCounterparty(externalID string, iAmCreditor bool) (PendingDebt, error) {
	if strings.TrimSpace(externalID) == "" {
		return p, fmt.Errorf("counterparty is empty")
	}
	p.CounterpartyID = strings.TrimSpace(externalID)
	p.IAmCreditor = iAmCreditor
	return p, nil
}

// WithAmount validates and records the amount text.
func (p PendingDebt) WithAmount(raw string) (PendingDebt, error) {
	if err := checkAmountShape(raw); err != nil {
		return p, err
	}
	p.Amount = strings.TrimSpace(raw)
	return p, nil
}

// WithCurrency validates and records the currency code.
func (p PendingDebt) WithCurrency(code string) (PendingDebt, error) {
	normalized, err := checkCurrency(code)
	if err != nil {
		return p, err
	}
	p.Currency = normalized
	return p, nil
}

// WithCategory records the selected category.
func (p PendingDebt) WithCategory(categoryID int64) PendingDebt {
	p.CategoryID = &categoryID
	return p
}

// WithNote records the free-text note.
func (p PendingDebt) WithNote(note string) PendingDebt {
	p.Note = strings.TrimSpace(note)
	return p
}

// Ready reports whether the required inputs are collected.
func (p PendingDebt) Ready() bool {
	return p.CounterpartyID != "" && p.Amount != "" && p.Currency != ""
}

// MoneyAmount converts the collected inputs to the service input type.
func (p PendingDebt) MoneyAmount() models.Amount {
	return models.Amount{Value: p.Amount, Currency: p.Currency}
}

// PendingSplit collects a bill split: total → currency → counterparty →
// share. An even split assigns half the total; a custom share must stay
// strictly between zero and the total.
type PendingSplit struct {
	Total          string
	Currency       string
	CounterpartyID string
	CategoryID     *int64
	Note           string
	// Share is the counterparty's portion in major units; empty means
	// an even split.
	Share string
}

func (PendingSplit) isFlowState() {}

// WithTotal validates and records the bill total.
func (p PendingSplit) WithTotal(raw string) (PendingSplit, error) {
	if err := checkAmountShape(raw); err != nil {
		return p, err
	}
	p.Total = strings.TrimSpace(raw)
	return p, nil
}

// WithCurrency validates and records the currency code.
func (p PendingSplit) WithCurrency(code string) (PendingSplit, error) {
	normalized, err := checkCurrency(code)
	if err != nil {
		return p, err
	}
	p.Currency = normalized
	return p, nil
}

// WithCounterparty records who owes the share.
func (p PendingSplit) WithCounterparty(externalID string) (PendingSplit, error) {
	if strings.TrimSpace(externalID) == "" {
		return p, fmt.Errorf("counterparty is empty")
	}
	p.CounterpartyID = strings.TrimSpace(externalID)
	return p, nil
}

// WithCategory records the selected category.
func (p PendingSplit) WithCategory(categoryID int64) PendingSplit {
	p.CategoryID = &categoryID
	return p
}

// WithCustomShare validates and records the counterparty's custom
// share. The share must be positive and below the total.
func (p PendingSplit) WithCustomShare(raw string) (PendingSplit, error) {
	if p.Total == "" || p.Currency == "" {
		return p, fmt.Errorf("total must be set before the share")
	}
	if err := checkAmountShape(raw); err != nil {
		return p, err
	}

	share, err := (&models.Amount{Value: strings.TrimSpace(raw), Currency: p.Currency}).ToMoney()
	if err != nil {
		return p, err
	}
	total, err := (&models.Amount{Value: p.Total, Currency: p.Currency}).ToMoney()
	if err != nil {
		return p, err
	}
	if share.Amount() <= 0 || share.Amount() >= total.Amount() {
		return p, fmt.Errorf("share must be between 0 and the total %s", total.Display())
	}

	p.Share = strings.TrimSpace(raw)
	return p, nil
}

// Ready reports whether the required inputs are collected.
func (p PendingSplit) Ready() bool {
	return p.Total != "" && p.Currency != "" && p.CounterpartyID != ""
}

// ShareAmount returns the counterparty's share: the custom share when
// set, otherwise half the total.
func (p PendingSplit) ShareAmount() (models.Amount, error) {
	if p.Share != "" {
		return models.Amount{Value: p.Share, Currency: p.Currency}, nil
	}

	total, err := (&models.Amount{Value: p.Total, Currency: p.Currency}).ToMoney()
	if err != nil {
		return models.Amount{}, err
	}
	half, _ := total.Split(2)
	return models.Amount{
		Value:    fmt.Sprintf("%.2f", models.MajorValue(half[1].Amount(), p.Currency)),
		Currency: p.Currency,
	}, nil
}

// ParseEntryDate parses DD.MM.YYYY or DD.MM (current year) date input.
func ParseEntryDate(raw string, now time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)

	switch strings.Count(raw, ".") {
	case 2:
		t, err := time.Parse("02.01.2006", raw)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid date %q, expected DD.MM.YYYY", raw)
		}
		return t.UTC(), nil
	case 1:
		t, err := time.Parse("02.01.2006", fmt.Sprintf("%s.%d", raw, now.Year()))
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid date %q, expected DD.MM", raw)
		}
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q, expected DD.MM.YYYY or DD.MM", raw)
}

func checkAmountShape(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("amount is empty")
	}
	for _, r := range raw {
		if (r < '0' || r > '9') && r != '.' {
			return fmt.Errorf("invalid amount %q", raw)
		}
	}
	if strings.Count(raw, ".") > 1 || raw == "." {
		return fmt.Errorf("invalid amount %q", raw)
	}
	return nil
}

func checkCurrency(code string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if !models.ValidCurrencyCode(normalized) {
		return "", fmt.Errorf("unknown currency %q", code)
	}
	return normalized, nil
}
