package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/kasabot/kasa/pkg/models"
)

// CreateAccount inserts a new account and fills in its generated id.
func (db *DB) CreateAccount(a *models.Account) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	query := `
	INSERT INTO accounts (external_id, name, default_currency, report_currency, created_at)
	VALUES (?, ?, ?, ?, ?)
	`

	result, err := db.Exec(query, a.ExternalID, a.Name, a.DefaultCurrency, a.ReportCurrency, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get account id: %w", err)
	}
	a.ID = id

	return nil
}

// GetAccount retrieves an account by its internal id.
func (db *DB) GetAccount(id int64) (*models.Account, error) {
	return db.scanAccount(db.QueryRow(`
	SELECT id, external_id, name, default_currency, report_currency, created_at
	FROM accounts
	WHERE id = ?
	LIMIT 1
	`, id))
}

// GetAccountByExternalID retrieves an account by its external identity key.
func (db *DB) GetAccountByExternalID(externalID string) (*models.Account, error) {
	return db.scanAccount(db.QueryRow(`
	SELECT id, external_id, name, default_currency, report_currency, created_at
	FROM accounts
	WHERE external_id = ?
	LIMIT 1
	`, externalID))
}

func (db *DB) scanAccount(row *sql.Row) (*models.Account, error) {
	var a models.Account
	err := row.Scan(
		&a.ID,
		&a.ExternalID,
		&a.Name,
		&a.DefaultCurrency,
		&a.ReportCurrency,
		&a.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return &a, nil
}

// UpdateAccountName updates the display name of an account.
func (db *DB) UpdateAccountName(id int64, name string) error {
	if _, err := db.Exec(`UPDATE accounts SET name = ? WHERE id = ?`, name, id); err != nil {
		return fmt.Errorf("failed to update account name: %w", err)
	}
	return nil
}

// SetDefaultCurrency updates the account's default entry currency.
func (db *DB) SetDefaultCurrency(id int64, currency string) error {
	if _, err := db.Exec(`UPDATE accounts SET default_currency = ? WHERE id = ?`, currency, id); err != nil {
		return fmt.Errorf("failed to set default currency: %w", err)
	}
	return nil
}

// SetReportCurrency updates the account's preferred report currency.
func (db *DB) SetReportCurrency(id int64, currency string) error {
	if _, err := db.Exec(`UPDATE accounts SET report_currency = ? WHERE id = ?`, currency, id); err != nil {
		return fmt.Errorf("failed to set report currency: %w", err)
	}
	return nil
}
