package cli

import (
	"fmt"
	"strings"

	"github.com/kasabot/kasa/pkg/flow"
	"github.com/kasabot/kasa/pkg/models"
	"github.com/kasabot/kasa/pkg/services"
)

// handleDebts dispatches the "debt ..." subcommands.
func (r *replState) handleDebts(line string) {
	parts := strings.Fields(line)
	if len(parts) < 2 {
		fmt.Println("Usage: debt <add|list|settle|summary|net|cancel> ...")
		return
	}

	switch parts[1] {
	case "add":
		r.addDebt(parts[2:])
	case "list":
		r.listDebts()
	case "settle":
		r.settleDebt(parts[2:])
	case "summary":
		r.debtSummary()
	case "net":
		r.netDebts(parts[2:], false)
	case "cancel":
		r.netDebts(parts[2:], true)
	default:
		fmt.Printf("Unknown debt command %q\n", parts[1])
	}
}

// splitBill handles: split <counterparty> <total> <currency> [<share>]
// The acting account paid the whole bill; the counterparty's share (half
// by default) becomes a debt linked to the recorded expense.
func (r *replState) splitBill(line string) {
	args := strings.Fields(line)[1:]
	if len(args) < 3 {
		fmt.Println("Usage: split <counterparty> <total> <currency> [<share>]")
		return
	}

	pending := flow.PendingSplit{}
	pending, err := pending.WithCounterparty(args[0])
	if err == nil {
		pending, err = pending.WithTotal(args[1])
	}
	if err == nil {
		pending, err = pending.WithCurrency(args[2])
	}
	if err == nil && len(args) > 3 {
		pending, err = pending.WithCustomShare(args[3])
	}
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	payer, err := r.me()
	if err != nil {
		fmt.Printf("Error resolving account: %v\n", err)
		return
	}
	counterparty, err := r.directory.Resolve(r.ctx, pending.CounterpartyID, "")
	if err != nil {
		fmt.Printf("Error resolving counterparty: %v\n", err)
		return
	}

	total := models.Amount{Value: pending.Total, Currency: pending.Currency}
	expense, err := r.ledger.CreateTransaction(r.ctx, payer, total, models.KindExpense, nil,
		fmt.Sprintf("Split with %s", counterparty.DisplayName()), nil)
	if err != nil {
		fmt.Printf("Error recording bill: %v\n", err)
		return
	}

	share, err := pending.ShareAmount()
	if err != nil {
		fmt.Printf("Error computing share: %v\n", err)
		return
	}

	debt, err := r.debts.CreateDebt(r.ctx, payer, counterparty, share, nil,
		fmt.Sprintf("Share of %s", expense.Money().Display()), &expense.ID)
	if err != nil {
		fmt.Printf("Error recording share: %v\n", err)
		return
	}

	fmt.Printf("Recorded bill %s; %s owes %s (debt %s)\n",
		expense.Money().Display(), counterparty.DisplayName(), debt.Money().Display(), debt.ID)
}

// addDebt handles: debt add <counterparty> <amount> <currency> [<note>]
// The counterparty owes the acting account.
func (r *replState) addDebt(args []string) {
	if len(args) < 3 {
		fmt.Println("Usage: debt add <counterparty> <amount> <currency> [<note>]")
		return
	}

	creditor, err := r.me()
	if err != nil {
		fmt.Printf("Error resolving account: %v\n", err)
		return
	}
	debtor, err := r.directory.Resolve(r.ctx, args[0], "")
	if err != nil {
		fmt.Printf("Error resolving counterparty: %v\n", err)
		return
	}

	amount := models.Amount{Value: args[1], Currency: args[2]}
	note := strings.Join(args[3:], " ")

	d, err := r.debts.CreateDebt(r.ctx, creditor, debtor, amount, nil, note, nil)
	if err != nil {
		fmt.Printf("Error creating debt: %v\n", err)
		return
	}

	fmt.Printf("Recorded debt %s: %s owes %s (id %s)\n",
		d.Money().Display(), debtor.DisplayName(), creditor.DisplayName(), d.ID)
}

// listDebts handles: debt list
func (r *replState) listDebts() {
	account, err := r.me()
	if err != nil {
		fmt.Printf("Error resolving account: %v\n", err)
		return
	}

	debts, err := r.debts.DebtsFor(r.ctx, account, true)
	if err != nil {
		fmt.Printf("Error listing debts: %v\n", err)
		return
	}

	if len(debts) == 0 {
		fmt.Println("No unsettled debts")
		return
	}

	for _, d := range debts {
		direction := "I owe"
		if d.CreditorID == account.ID {
			direction = "Owed to me"
		}
		fmt.Printf("  %-36s %-11s %15s  %s\n", d.ID, direction, d.Money().Display(), d.Note)
	}
}

// settleDebt handles: debt settle <debt_id>
func (r *replState) settleDebt(args []string) {
	if len(args) != 1 {
		fmt.Println("Usage: debt settle <debt_id>")
		return
	}

	account, err := r.me()
	if err != nil {
		fmt.Printf("Error resolving account: %v\n", err)
		return
	}

	settlement, err := r.debts.Settle(r.ctx, args[0], account)
	if err != nil {
		fmt.Printf("Error settling debt: %v\n", err)
		return
	}

	fmt.Printf("Settled debt %s with transaction %s\n", args[0], settlement.ID)
}

// debtSummary handles: debt summary
func (r *replState) debtSummary() {
	account, err := r.me()
	if err != nil {
		fmt.Printf("Error resolving account: %v\n", err)
		return
	}

	summary, err := r.debts.Summary(r.ctx, account)
	if err != nil {
		fmt.Printf("Error summarizing debts: %v\n", err)
		return
	}

	fmt.Print(services.FormatSummary(summary))
}

// netDebts handles "debt net" (preview) and "debt cancel" (apply):
// debt <net|cancel> <counterparty> [<EUR|USD>]
func (r *replState) netDebts(args []string, apply bool) {
	if len(args) < 1 {
		fmt.Println("Usage: debt net|cancel <counterparty> [<EUR|USD>]")
		return
	}

	base := "EUR"
	if len(args) > 1 {
		base = strings.ToUpper(args[1])
	}

	account, err := r.me()
	if err != nil {
		fmt.Printf("Error resolving account: %v\n", err)
		return
	}
	counterparty, err := r.directory.Resolve(r.ctx, args[0], "")
	if err != nil {
		fmt.Printf("Error resolving counterparty: %v\n", err)
		return
	}

	if !apply {
		calc, err := r.debts.NetDebts(r.ctx, account, counterparty, base)
		if err != nil {
			fmt.Printf("Error netting debts: %v\n", err)
			return
		}
		fmt.Print(services.FormatNetCalculation(calc))
		return
	}

	cancellation, err := r.debts.CancelMutual(r.ctx, account, counterparty, base)
	if err != nil {
		fmt.Printf("Error cancelling debts: %v\n", err)
		return
	}

	fmt.Print(services.FormatNetCalculation(cancellation.Calculation))
	fmt.Printf("Cancelled %d debts\n", len(cancellation.CancelledIDs))
	if cancellation.NetDebt != nil {
		fmt.Printf("Residual debt %s: %s\n", cancellation.NetDebt.ID, cancellation.NetDebt.Money().Display())
	}
}
