package db

import (
	"database/sql"
	"fmt"

	"github.com/kasabot/kasa/pkg/models"
)

// InsertCategory persists a new category and fills in its generated id.
func (db *DB) InsertCategory(c *models.Category) error {
	query := `
	INSERT INTO categories (account_id, kind, name, icon, is_default, is_archived)
	VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := db.Exec(query, c.AccountID, c.Kind, c.Name, c.Icon, c.IsDefault, c.IsArchived)
	if err != nil {
		return fmt.Errorf("failed to insert category: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get category id: %w", err)
	}
	c.ID = id

	return nil
}

// GetCategory retrieves a category by id, or (nil, nil) if missing.
func (db *DB) GetCategory(id int64) (*models.Category, error) {
	query := `
	SELECT id, account_id, kind, name, icon, is_default, is_archived
	FROM categories
	WHERE id = ?
	LIMIT 1
	`

	var c models.Category
	err := db.QueryRow(query, id).Scan(
		&c.ID,
		&c.AccountID,
		&c.Kind,
		&c.Name,
		&c.Icon,
		&c.IsDefault,
		&c.IsArchived,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}

	return &c, nil
}

// ListCategories returns the account's categories for one flow kind,
// defaults first.
func (db *DB) ListCategories(accountID int64, kind models.FlowKind, includeArchived bool) ([]*models.Category, error) {
	query := `
	SELECT id, account_id, kind, name, icon, is_default, is_archived
	FROM categories
	WHERE account_id = ? AND kind = ?
	` + func() string {
		if !includeArchived {
			return `AND is_archived = 0 `
		}
		return ``
	}() + `
	ORDER BY is_default DESC, name ASC
	`

	rows, err := db.Query(query, accountID, kind)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var categories []*models.Category
	for rows.Next() {
		var c models.Category
		err := rows.Scan(
			&c.ID,
			&c.AccountID,
			&c.Kind,
			&c.Name,
			&c.Icon,
			&c.IsDefault,
			&c.IsArchived,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	return categories, nil
}

// ArchiveCategory hides a category from new entries without deleting it.
func (db *DB) ArchiveCategory(id int64) error {
	if _, err := db.Exec(`UPDATE categories SET is_archived = 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to archive category: %w", err)
	}
	return nil
}

// HasCategories reports whether the account has any categories at all,
// used to trigger one-time default seeding.
func (db *DB) HasCategories(accountID int64) (bool, error) {
	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM categories WHERE account_id = ?`, accountID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to count categories: %w", err)
	}
	return count > 0, nil
}
