package services

import (
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"

	"github.com/kasabot/kasa/pkg/models"
	"github.com/kasabot/kasa/pkg/utils"
)

// FormatReport renders a report as display text. Pure function; no
// transport types involved.
func FormatReport(r *models.Report) string {
	var b strings.Builder

	switch p := r.Period.(type) {
	case models.Monthly:
		fmt.Fprintf(&b, "Report for %s %d (%s)\n", p.Month, p.Year, r.Currency)
	case models.DateRange:
		fmt.Fprintf(&b, "Report %s — %s (%s)\n",
			p.Start.Format("2006-01-02"), p.End.Format("2006-01-02"), r.Currency)
	}
	b.WriteString(strings.Repeat("-", 40) + "\n")

	if len(r.Expenses) > 0 {
		b.WriteString("Expenses:\n")
		for _, line := range r.Expenses {
			fmt.Fprintf(&b, "  %s %-20s %12.2f\n", line.Icon, line.Category, line.Amount)
		}
	}
	if len(r.Income) > 0 {
		b.WriteString("Income:\n")
		for _, line := range r.Income {
			fmt.Fprintf(&b, "  %s %-20s %12.2f\n", line.Icon, line.Category, line.Amount)
		}
	}

	b.WriteString(strings.Repeat("-", 40) + "\n")
	fmt.Fprintf(&b, "Total expenses: %.2f %s\n", r.TotalExpenses, r.Currency)
	fmt.Fprintf(&b, "Total income:   %.2f %s\n", r.TotalIncome, r.Currency)
	fmt.Fprintf(&b, "Balance:        %.2f %s\n", r.Balance, r.Currency)

	return b.String()
}

// FormatSummary renders a debt summary grouped by counterparty and
// currency.
func FormatSummary(s *models.DebtSummary) string {
	var b strings.Builder

	writeBucket := func(title string, bucket map[string]map[string]int64) {
		if len(bucket) == 0 {
			return
		}
		b.WriteString(title + "\n")
		for name, byCurrency := range bucket {
			for currency, minor := range byCurrency {
				fmt.Fprintf(&b, "  %-20s %s\n", name, money.New(minor, currency).Display())
			}
		}
	}

	writeBucket("Owed to me:", s.OwedToMe)
	writeBucket("I owe:", s.IOwe)

	if b.Len() == 0 {
		return "No unsettled debts\n"
	}
	return b.String()
}

// FormatNetCalculation renders a bilateral netting breakdown.
func FormatNetCalculation(c *models.NetCalculation) string {
	var b strings.Builder

	nameA, nameB := c.AccountA.DisplayName(), c.AccountB.DisplayName()
	fmt.Fprintf(&b, "Net debts between %s and %s (%s)\n", nameA, nameB, c.BaseCurrency)
	b.WriteString(strings.Repeat("-", 40) + "\n")

	for _, e := range c.Entries {
		direction := fmt.Sprintf("%s → %s", nameB, nameA)
		if e.Direction == models.AOwesB {
			direction = fmt.Sprintf("%s → %s", nameA, nameB)
		}
		fmt.Fprintf(&b, "  %-25s %s (%.2f %s)\n",
			direction, e.Debt.Money().Display(), e.BaseAmount, c.BaseCurrency)
	}

	b.WriteString(strings.Repeat("-", 40) + "\n")
	fmt.Fprintf(&b, "%s owes %s: %.2f %s\n", nameA, nameB, c.TotalAOwesB, c.BaseCurrency)
	fmt.Fprintf(&b, "%s owes %s: %.2f %s\n", nameB, nameA, c.TotalBOwesA, c.BaseCurrency)

	switch {
	case c.Net > NetTolerance:
		fmt.Fprintf(&b, "Net: %s owes %s %.2f %s\n", nameA, nameB, c.Net, c.BaseCurrency)
	case c.Net < -NetTolerance:
		fmt.Fprintf(&b, "Net: %s owes %s %.2f %s\n", nameB, nameA, -c.Net, c.BaseCurrency)
	default:
		b.WriteString("Net: fully balanced\n")
	}

	return b.String()
}

// FormatHistory renders transactions as a table, newest first.
func FormatHistory(transactions []*models.Transaction) string {
	if len(transactions) == 0 {
		return "No transactions found\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%-36s %-10s %15s %-12s %s\n", "ID", "Kind", "Amount", "Date", "Note")
	b.WriteString(strings.Repeat("-", 90) + "\n")
	for _, t := range transactions {
		fmt.Fprintf(&b, "%-36s %-10s %15s %-12s %s\n",
			t.ID,
			utils.Capitalize(string(t.Kind)),
			t.Money().Display(),
			t.At.Format("2006-01-02"),
			utils.Truncate(t.Note, 40))
	}
	return b.String()
}
