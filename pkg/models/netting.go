package models

// NetDirection orients a debt within a bilateral relationship where the
// two parties are conventionally called A and B.
type NetDirection string

const (
	AOwesB NetDirection = "A_OWES_B"
	BOwesA NetDirection = "B_OWES_A"
)

// NetEntry is the per-debt breakdown of a net calculation: the debt's
// direction plus its frozen value in the base currency.
type NetEntry struct {
	Debt       *Debt        `json:"debt"`
	Direction  NetDirection `json:"direction"`
	BaseAmount float64      `json:"baseAmount"`
}

// NetCalculation is the read-only result of netting all unsettled debts
// between two accounts. Net > 0 means A net-owes B.
type NetCalculation struct {
	AccountA     *Account   `json:"accountA"`
	AccountB     *Account   `json:"accountB"`
	BaseCurrency string     `json:"baseCurrency"`
	Entries      []NetEntry `json:"entries"`
	TotalAOwesB  float64    `json:"totalAOwesB"`
	TotalBOwesA  float64    `json:"totalBOwesA"`
	Net          float64    `json:"net"`
}

// Debts returns the debts involved in the calculation.
func (c *NetCalculation) Debts() []*Debt {
	debts := make([]*Debt, 0, len(c.Entries))
	for _, e := range c.Entries {
		debts = append(debts, e.Debt)
	}
	return debts
}

// NetCancellation records the outcome of cancelling mutual debts:
// every listed debt was marked settled and NetDebt, if non-nil, is the
// single residual obligation created for the remainder.
type NetCancellation struct {
	Calculation  *NetCalculation `json:"calculation"`
	CancelledIDs []string        `json:"cancelledIds"`
	NetDebt      *Debt           `json:"netDebt,omitempty"`
}

// DebtSummary groups unsettled debts by counterparty display name and
// original currency, in minor units. No conversion is applied; this is a
// display aggregation.
type DebtSummary struct {
	OwedToMe map[string]map[string]int64 `json:"owedToMe"`
	IOwe     map[string]map[string]int64 `json:"iOwe"`
}
