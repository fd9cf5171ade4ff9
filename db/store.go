package db

import (
	"time"

	"github.com/kasabot/kasa/pkg/models"
)

// Store defines the interface for durable ledger state. The store is
// the single source of truth; every mutating operation is atomic.
type Store interface {
	Initialize() error
	Close() error

	CreateAccount(a *models.Account) error
	GetAccount(id int64) (*models.Account, error)
	GetAccountByExternalID(externalID string) (*models.Account, error)
	UpdateAccountName(id int64, name string) error
	SetDefaultCurrency(id int64, currency string) error
	SetReportCurrency(id int64, currency string) error

	InsertTransaction(t *models.Transaction) error
	GetTransaction(id string) (*models.Transaction, error)
	ListTransactions(accountID int64, limit int) ([]*models.Transaction, error)
	ListTransactionsInRange(accountID int64, start, end time.Time) ([]*models.Transaction, error)

	InsertDebt(d *models.Debt) error
	GetDebt(id string) (*models.Debt, error)
	ListDebtsForAccount(accountID int64, onlyUnsettled bool) ([]*models.Debt, error)
	ListUnsettledBetween(accountA, accountB int64) ([]*models.Debt, error)
	SettleDebt(debtID string, settlement *models.Transaction) (bool, error)
	CancelDebts(debtIDs []string, residual *models.Debt) error

	InsertCategory(c *models.Category) error
	GetCategory(id int64) (*models.Category, error)
	ListCategories(accountID int64, kind models.FlowKind, includeArchived bool) ([]*models.Category, error)
	ArchiveCategory(id int64) error
	HasCategories(accountID int64) (bool, error)

	RateOnOrBefore(currency, base string, day time.Time) (float64, bool, error)
	SaveRate(currency, base string, day time.Time, rate float64) error
}

// Ensure DB implements Store
var _ Store = (*DB)(nil)
