package models

// FlowKind distinguishes expense categories from income categories.
type FlowKind string

const (
	FlowExpense FlowKind = "EXPENSE"
	FlowIncome  FlowKind = "INCOME"
)

// Category labels transactions of one flow kind for one account.
// Categories referenced by transactions are archived, never deleted.
type Category struct {
	ID         int64    `json:"id"`
	AccountID  int64    `json:"accountId"`
	Kind       FlowKind `json:"kind"`
	Name       string   `json:"name"`
	Icon       string   `json:"icon"`
	IsDefault  bool     `json:"isDefault"`
	IsArchived bool     `json:"isArchived"`
}
