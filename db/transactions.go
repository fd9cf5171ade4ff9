package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/kasabot/kasa/pkg/models"
)

const transactionColumns = `
	id, account_id, kind, amount_minor, currency,
	amount_eur, amount_usd, rate_eur, rate_usd,
	category_id, note, at_time, created_at,
	related_debt_id, reverses_transaction_id`

// InsertTransaction persists a new ledger entry. Entries are immutable;
// there is no update counterpart.
func (db *DB) InsertTransaction(t *models.Transaction) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	query := `
	INSERT INTO transactions (` + transactionColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.Exec(query,
		t.ID,
		t.AccountID,
		t.Kind,
		t.AmountMinor,
		t.Currency,
		t.AmountEUR,
		t.AmountUSD,
		t.RateEUR,
		t.RateUSD,
		nullInt(t.CategoryID),
		t.Note,
		t.At,
		t.CreatedAt,
		nullStr(t.RelatedDebtID),
		nullStr(t.ReversesID),
	)

	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	return nil
}

// GetTransaction retrieves a transaction by id, or (nil, nil) if missing.
func (db *DB) GetTransaction(id string) (*models.Transaction, error) {
	row := db.QueryRow(`SELECT `+transactionColumns+` FROM transactions WHERE id = ? LIMIT 1`, id)

	t, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return t, nil
}

// ListTransactions returns the account's newest entries by effective
// time, bounded by limit.
func (db *DB) ListTransactions(accountID int64, limit int) ([]*models.Transaction, error) {
	query := `
	SELECT ` + transactionColumns + `
	FROM transactions
	WHERE account_id = ?
	ORDER BY at_time DESC
	LIMIT ?
	`

	rows, err := db.Query(query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

// ListTransactionsInRange returns the account's entries with
// start <= at_time < end, oldest first.
func (db *DB) ListTransactionsInRange(accountID int64, start, end time.Time) ([]*models.Transaction, error) {
	query := `
	SELECT ` + transactionColumns + `
	FROM transactions
	WHERE account_id = ? AND at_time >= ? AND at_time < ?
	ORDER BY at_time ASC
	`

	rows, err := db.Query(query, accountID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	return collectTransactions(rows)
}

func collectTransactions(rows *sql.Rows) ([]*models.Transaction, error) {
	var transactions []*models.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return transactions, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var (
		t          models.Transaction
		categoryID sql.NullInt64
		debtID     sql.NullString
		reversesID sql.NullString
	)

	err := row.Scan(
		&t.ID,
		&t.AccountID,
		&t.Kind,
		&t.AmountMinor,
		&t.Currency,
		&t.AmountEUR,
		&t.AmountUSD,
		&t.RateEUR,
		&t.RateUSD,
		&categoryID,
		&t.Note,
		&t.At,
		&t.CreatedAt,
		&debtID,
		&reversesID,
	)
	if err != nil {
		return nil, err
	}

	if categoryID.Valid {
		t.CategoryID = &categoryID.Int64
	}
	if debtID.Valid {
		t.RelatedDebtID = &debtID.String
	}
	if reversesID.Valid {
		t.ReversesID = &reversesID.String
	}

	return &t, nil
}

func nullInt(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullStr(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}
