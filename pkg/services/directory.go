package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/kasabot/kasa/db"
	"github.com/kasabot/kasa/pkg/models"
)

// Directory maps external chat identities to internal accounts,
// creating them on first contact. Resolution is idempotent.
type Directory struct {
	store           db.Store
	defaultCurrency string
}

// NewDirectory creates a directory; defaultCurrency is assigned to
// newly created accounts as both entry and report currency.
func NewDirectory(store db.Store, defaultCurrency string) *Directory {
	return &Directory{
		store:           store,
		defaultCurrency: strings.ToUpper(defaultCurrency),
	}
}

// Resolve returns the account for an external identity, creating it if
// unseen. Genuinely new accounts get the default category set seeded
// once. A changed display name is picked up on contact.
func (d *Directory) Resolve(ctx context.Context, externalID, nameHint string) (*models.Account, error) {
	account, err := d.store.GetAccountByExternalID(externalID)
	if err != nil {
		return nil, err
	}

	if account == nil {
		account = &models.Account{
			ExternalID:      externalID,
			Name:            nameHint,
			DefaultCurrency: d.defaultCurrency,
			ReportCurrency:  d.defaultCurrency,
		}
		if err := d.store.CreateAccount(account); err != nil {
			return nil, err
		}
		if err := d.seedDefaultCategories(account.ID); err != nil {
			return nil, err
		}
		log.Info().Str("external_id", externalID).Int64("account", account.ID).Msg("Created account")
		return account, nil
	}

	if nameHint != "" && nameHint != account.Name {
		if err := d.store.UpdateAccountName(account.ID, nameHint); err != nil {
			return nil, err
		}
		account.Name = nameHint
	}

	return account, nil
}

// SetDefaultCurrency updates the account's default entry currency.
func (d *Directory) SetDefaultCurrency(ctx context.Context, account *models.Account, currency string) error {
	code := strings.ToUpper(strings.TrimSpace(currency))
	if !models.ValidCurrencyCode(code) {
		return fmt.Errorf("%w: bad currency code %q", ErrValidation, currency)
	}
	if err := d.store.SetDefaultCurrency(account.ID, code); err != nil {
		return err
	}
	account.DefaultCurrency = code
	return nil
}

// SetReportCurrency updates the account's preferred report currency.
func (d *Directory) SetReportCurrency(ctx context.Context, account *models.Account, currency string) error {
	code := strings.ToUpper(strings.TrimSpace(currency))
	if !models.ValidCurrencyCode(code) {
		return fmt.Errorf("%w: bad currency code %q", ErrValidation, currency)
	}
	if err := d.store.SetReportCurrency(account.ID, code); err != nil {
		return err
	}
	account.ReportCurrency = code
	return nil
}

// Categories lists the account's categories for one flow kind.
func (d *Directory) Categories(ctx context.Context, account *models.Account, kind models.FlowKind) ([]*models.Category, error) {
	return d.store.ListCategories(account.ID, kind, false)
}

// AddCategory creates a custom category for the account.
func (d *Directory) AddCategory(ctx context.Context, account *models.Account, kind models.FlowKind, name, icon string) (*models.Category, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: category name is empty", ErrValidation)
	}

	c := &models.Category{
		AccountID: account.ID,
		Kind:      kind,
		Name:      strings.TrimSpace(name),
		Icon:      icon,
	}
	if err := d.store.InsertCategory(c); err != nil {
		return nil, err
	}
	return c, nil
}

// ArchiveCategory hides a category from new entries. Historical
// transactions keep referencing it.
func (d *Directory) ArchiveCategory(ctx context.Context, account *models.Account, categoryID int64) error {
	c, err := d.store.GetCategory(categoryID)
	if err != nil {
		return err
	}
	if c == nil || c.AccountID != account.ID {
		return fmt.Errorf("%w: category %d", ErrNotFound, categoryID)
	}
	return d.store.ArchiveCategory(categoryID)
}

var defaultCategories = []struct {
	kind models.FlowKind
	name string
	icon string
}{
	{models.FlowExpense, "Groceries", "🛒"},
	{models.FlowExpense, "Dining", "🍽️"},
	{models.FlowExpense, "Transport", "🚌"},
	{models.FlowExpense, "Housing", "🏠"},
	{models.FlowExpense, "Health", "💊"},
	{models.FlowExpense, "Entertainment", "🎬"},
	{models.FlowExpense, "Other", "📦"},
	{models.FlowIncome, "Salary", "💰"},
	{models.FlowIncome, "Reimbursement", "↩️"},
	{models.FlowIncome, "Other", "📦"},
}

func (d *Directory) seedDefaultCategories(accountID int64) error {
	seeded, err := d.store.HasCategories(accountID)
	if err != nil {
		return err
	}
	if seeded {
		return nil
	}

	for _, dc := range defaultCategories {
		c := &models.Category{
			AccountID: accountID,
			Kind:      dc.kind,
			Name:      dc.name,
			Icon:      dc.icon,
			IsDefault: true,
		}
		if err := d.store.InsertCategory(c); err != nil {
			return err
		}
	}
	return nil
}
