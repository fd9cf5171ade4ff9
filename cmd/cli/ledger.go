package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kasabot/kasa/pkg/flow"
	"github.com/kasabot/kasa/pkg/models"
	"github.com/kasabot/kasa/pkg/services"
)

func (r *replState) me() (*models.Account, error) {
	return r.directory.Resolve(r.ctx, r.account.externalID, r.account.nameHint)
}

// addEntry handles:
// add <expense|income> <amount> <currency> [<category_id>] [<note>] [on <DD.MM[.YYYY]>]
func (r *replState) addEntry(line string) {
	parts := strings.Fields(line)

	var at *time.Time
	if len(parts) >= 2 && parts[len(parts)-2] == "on" {
		parsed, err := flow.ParseEntryDate(parts[len(parts)-1], time.Now().UTC())
		if err != nil {
			fmt.Printf("Error parsing date: %v\n", err)
			return
		}
		at = &parsed
		parts = parts[:len(parts)-2]
	}

	if len(parts) < 4 {
		fmt.Println("Usage: add <expense|income> <amount> <currency> [<category_id>] [<note>] [on <DD.MM[.YYYY]>]")
		return
	}

	var kind models.TransactionKind
	switch strings.ToLower(parts[1]) {
	case "expense":
		kind = models.KindExpense
	case "income":
		kind = models.KindIncome
	default:
		fmt.Printf("Unknown entry kind %q, expected expense or income\n", parts[1])
		return
	}

	account, err := r.me()
	if err != nil {
		fmt.Printf("Error resolving account: %v\n", err)
		return
	}

	amount := models.Amount{Value: parts[2], Currency: parts[3]}

	var categoryID *int64
	rest := parts[4:]
	if len(rest) > 0 {
		if id, err := strconv.ParseInt(rest[0], 10, 64); err == nil {
			categoryID = &id
			rest = rest[1:]
		}
	}
	note := strings.Join(rest, " ")

	t, err := r.ledger.CreateTransaction(r.ctx, account, amount, kind, categoryID, note, at)
	if err != nil {
		fmt.Printf("Error creating transaction: %v\n", err)
		return
	}

	fmt.Printf("Recorded %s %s (id %s)\n", strings.ToLower(string(t.Kind)), t.Money().Display(), t.ID)
}

// showHistory handles: history [<limit>]
func (r *replState) showHistory(line string) {
	parts := strings.Fields(line)

	limit := 10
	if len(parts) > 1 {
		n, err := strconv.Atoi(parts[1])
		if err != nil || n <= 0 {
			fmt.Printf("Invalid limit %q\n", parts[1])
			return
		}
		limit = n
	}

	account, err := r.me()
	if err != nil {
		fmt.Printf("Error resolving account: %v\n", err)
		return
	}

	transactions, err := r.ledger.History(r.ctx, account, limit)
	if err != nil {
		fmt.Printf("Error listing transactions: %v\n", err)
		return
	}

	fmt.Print(services.FormatHistory(transactions))
}

// reverseEntry handles: reverse <transaction_id>
func (r *replState) reverseEntry(line string) {
	parts := strings.Fields(line)
	if len(parts) != 2 {
		fmt.Println("Usage: reverse <transaction_id>")
		return
	}

	account, err := r.me()
	if err != nil {
		fmt.Printf("Error resolving account: %v\n", err)
		return
	}

	reversal, err := r.ledger.Reverse(r.ctx, parts[1], account)
	if err != nil {
		fmt.Printf("Error reversing transaction: %v\n", err)
		return
	}

	fmt.Printf("Reversed %s with %s\n", parts[1], reversal.ID)
}

// showReport handles: report [<year> <month>] [in <currency>]
func (r *replState) showReport(line string) {
	parts := strings.Fields(line)[1:]

	var (
		year     int
		month    time.Month
		currency string
	)

	if len(parts) >= 2 && parts[len(parts)-2] == "in" {
		currency = parts[len(parts)-1]
		parts = parts[:len(parts)-2]
	}

	switch len(parts) {
	case 0:
		// current month
	case 2:
		y, err := strconv.Atoi(parts[0])
		if err != nil {
			fmt.Printf("Invalid year %q\n", parts[0])
			return
		}
		m, err := strconv.Atoi(parts[1])
		if err != nil || m < 1 || m > 12 {
			fmt.Printf("Invalid month %q\n", parts[1])
			return
		}
		year, month = y, time.Month(m)
	default:
		fmt.Println("Usage: report [<year> <month>] [in <currency>]")
		return
	}

	account, err := r.me()
	if err != nil {
		fmt.Printf("Error resolving account: %v\n", err)
		return
	}

	report, err := r.ledger.MonthlyReport(r.ctx, account, year, month, currency)
	if err != nil {
		fmt.Printf("Error building report: %v\n", err)
		return
	}

	fmt.Print(services.FormatReport(report))
}

// listCategories handles: categories [income]
func (r *replState) listCategories(line string) {
	kind := models.FlowExpense
	if strings.Contains(line, "income") {
		kind = models.FlowIncome
	}

	account, err := r.me()
	if err != nil {
		fmt.Printf("Error resolving account: %v\n", err)
		return
	}

	categories, err := r.directory.Categories(r.ctx, account, kind)
	if err != nil {
		fmt.Printf("Error listing categories: %v\n", err)
		return
	}

	if len(categories) == 0 {
		fmt.Println("No categories found")
		return
	}
	for _, c := range categories {
		fmt.Printf("  %3d  %s %s\n", c.ID, c.Icon, c.Name)
	}
}

// setCurrency handles: currency <default|report> <code>
func (r *replState) setCurrency(line string) {
	parts := strings.Fields(line)
	if len(parts) != 3 {
		fmt.Println("Usage: currency <default|report> <code>")
		return
	}

	account, err := r.me()
	if err != nil {
		fmt.Printf("Error resolving account: %v\n", err)
		return
	}

	switch strings.ToLower(parts[1]) {
	case "default":
		err = r.directory.SetDefaultCurrency(r.ctx, account, parts[2])
	case "report":
		err = r.directory.SetReportCurrency(r.ctx, account, parts[2])
	default:
		fmt.Printf("Unknown preference %q, expected default or report\n", parts[1])
		return
	}
	if err != nil {
		fmt.Printf("Error updating currency: %v\n", err)
		return
	}

	fmt.Printf("Updated %s currency to %s\n", strings.ToLower(parts[1]), strings.ToUpper(parts[2]))
}
