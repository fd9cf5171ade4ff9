package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kasabot/kasa/pkg/models"
)

// ErrAlreadySettled is returned when a batch cancellation finds a debt
// whose settled flag was already flipped by a concurrent settle.
var ErrAlreadySettled = errors.New("debt is already settled")

const debtColumns = `
	id, creditor_id, debtor_id, amount_minor, currency,
	amount_eur, amount_usd, rate_eur, rate_usd,
	category_id, note, related_transaction_id, is_settled, created_at`

// InsertDebt persists a new debt.
func (db *DB) InsertDebt(d *models.Debt) error {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}

	query := `
	INSERT INTO debts (` + debtColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.Exec(query,
		d.ID,
		d.CreditorID,
		d.DebtorID,
		d.AmountMinor,
		d.Currency,
		d.AmountEUR,
		d.AmountUSD,
		d.RateEUR,
		d.RateUSD,
		nullInt(d.CategoryID),
		d.Note,
		nullStr(d.RelatedTransactionID),
		d.IsSettled,
		d.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to insert debt: %w", err)
	}

	return nil
}

// GetDebt retrieves a debt by id, or (nil, nil) if missing.
func (db *DB) GetDebt(id string) (*models.Debt, error) {
	row := db.QueryRow(`SELECT `+debtColumns+` FROM debts WHERE id = ? LIMIT 1`, id)

	d, err := scanDebt(row)
	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get debt: %w", err)
	}

	return d, nil
}

// ListDebtsForAccount returns debts where the account is either party,
// newest first.
func (db *DB) ListDebtsForAccount(accountID int64, onlyUnsettled bool) ([]*models.Debt, error) {
	query := `
	SELECT ` + debtColumns + `
	FROM debts
	WHERE (creditor_id = ? OR debtor_id = ?)
	` + func() string {
		if onlyUnsettled {
			return `AND is_settled = 0 `
		}
		return ``
	}() + `
	ORDER BY created_at DESC
	`

	rows, err := db.Query(query, accountID, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to query debts: %w", err)
	}
	defer rows.Close()

	return collectDebts(rows)
}

// ListUnsettledBetween returns the unsettled debts where the two
// accounts are creditor and debtor in either direction.
func (db *DB) ListUnsettledBetween(accountA, accountB int64) ([]*models.Debt, error) {
	query := `
	SELECT ` + debtColumns + `
	FROM debts
	WHERE is_settled = 0
	  AND ((creditor_id = ? AND debtor_id = ?) OR (creditor_id = ? AND debtor_id = ?))
	ORDER BY created_at ASC
	`

	rows, err := db.Query(query, accountA, accountB, accountB, accountA)
	if err != nil {
		return nil, fmt.Errorf("failed to query debts: %w", err)
	}
	defer rows.Close()

	return collectDebts(rows)
}

// SettleDebt atomically flips the debt to settled and records the
// settlement transaction. The settled flag acts as a compare-and-set:
// if another settle already won, no transaction is written and false is
// returned.
func (db *DB) SettleDebt(debtID string, settlement *models.Transaction) (bool, error) {
	tx, err := db.Begin()
	if err != nil {
		return false, fmt.Errorf("failed to begin settle: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(`UPDATE debts SET is_settled = 1 WHERE id = ? AND is_settled = 0`, debtID)
	if err != nil {
		return false, fmt.Errorf("failed to settle debt: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return false, nil
	}

	if settlement.CreatedAt.IsZero() {
		settlement.CreatedAt = time.Now().UTC()
	}

	_, err = tx.Exec(`
	INSERT INTO transactions (`+transactionColumns+`)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		settlement.ID,
		settlement.AccountID,
		settlement.Kind,
		settlement.AmountMinor,
		settlement.Currency,
		settlement.AmountEUR,
		settlement.AmountUSD,
		settlement.RateEUR,
		settlement.RateUSD,
		nullInt(settlement.CategoryID),
		settlement.Note,
		settlement.At,
		settlement.CreatedAt,
		nullStr(settlement.RelatedDebtID),
		nullStr(settlement.ReversesID),
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert settlement: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit settle: %w", err)
	}

	log.Info().Str("debt", debtID).Str("transaction", settlement.ID).Msg("Debt settled")
	return true, nil
}

// CancelDebts marks every listed debt settled and, if residual is
// non-nil, inserts the single net debt, all in one transaction. If any
// debt was already settled the whole cancellation is rolled back.
func (db *DB) CancelDebts(debtIDs []string, residual *models.Debt) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin cancellation: %w", err)
	}
	defer tx.Rollback()

	for _, id := range debtIDs {
		result, err := tx.Exec(`UPDATE debts SET is_settled = 1 WHERE id = ? AND is_settled = 0`, id)
		if err != nil {
			return fmt.Errorf("failed to cancel debt %s: %w", id, err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("%w: debt %s", ErrAlreadySettled, id)
		}
	}

	if residual != nil {
		if residual.CreatedAt.IsZero() {
			residual.CreatedAt = time.Now().UTC()
		}
		_, err = tx.Exec(`
		INSERT INTO debts (`+debtColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			residual.ID,
			residual.CreditorID,
			residual.DebtorID,
			residual.AmountMinor,
			residual.Currency,
			residual.AmountEUR,
			residual.AmountUSD,
			residual.RateEUR,
			residual.RateUSD,
			nullInt(residual.CategoryID),
			residual.Note,
			nullStr(residual.RelatedTransactionID),
			residual.IsSettled,
			residual.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert net debt: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cancellation: %w", err)
	}

	log.Info().Int("cancelled", len(debtIDs)).Bool("residual", residual != nil).Msg("Mutual debts cancelled")
	return nil
}

func collectDebts(rows *sql.Rows) ([]*models.Debt, error) {
	var debts []*models.Debt
	for rows.Next() {
		d, err := scanDebt(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan debt: %w", err)
		}
		debts = append(debts, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating debts: %w", err)
	}

	return debts, nil
}

func scanDebt(row rowScanner) (*models.Debt, error) {
	var (
		d          models.Debt
		categoryID sql.NullInt64
		relatedTx  sql.NullString
	)

	err := row.Scan(
		&d.ID,
		&d.CreditorID,
		&d.DebtorID,
		&d.AmountMinor,
		&d.Currency,
		&d.AmountEUR,
		&d.AmountUSD,
		&d.RateEUR,
		&d.RateUSD,
		&categoryID,
		&d.Note,
		&relatedTx,
		&d.IsSettled,
		&d.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if categoryID.Valid {
		d.CategoryID = &categoryID.Int64
	}
	if relatedTx.Valid {
		d.RelatedTransactionID = &relatedTx.String
	}

	return &d, nil
}
