package db

import (
	"database/sql"
	"fmt"
	"time"
)

// dateKey formats a day for storage. Lexicographic order matches
// chronological order so <= comparisons work on the TEXT column.
func dateKey(day time.Time) string {
	return day.UTC().Format(time.DateOnly)
}

// RateOnOrBefore returns the most recent stored rate with date <= day
// for the currency pair. The fallback tolerates weekends and holidays
// where the external provider publishes no same-day rate.
func (db *DB) RateOnOrBefore(currency, base string, day time.Time) (float64, bool, error) {
	query := `
	SELECT rate
	FROM fx_rates
	WHERE currency = ? AND base = ? AND date <= ?
	ORDER BY date DESC
	LIMIT 1
	`

	var rate float64
	err := db.QueryRow(query, currency, base, dateKey(day)).Scan(&rate)
	if err == sql.ErrNoRows {
		return 0, false, nil
	} else if err != nil {
		return 0, false, fmt.Errorf("failed to get fx rate: %w", err)
	}

	return rate, true, nil
}

// SaveRate stores a rate for a day. The (currency, base, date) key is
// append-only: concurrent writers racing on the same key leave the first
// written value in place.
func (db *DB) SaveRate(currency, base string, day time.Time, rate float64) error {
	query := `
	INSERT INTO fx_rates (currency, base, rate, date)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(currency, base, date) DO NOTHING
	`

	if _, err := db.Exec(query, currency, base, rate, dateKey(day)); err != nil {
		return fmt.Errorf("failed to save fx rate: %w", err)
	}

	return nil
}
