package models

import "time"

// Account is an internal identity created on first contact from an
// external chat identity. Accounts are never deleted.
type Account struct {
	ID              int64     `json:"id"`
	ExternalID      string    `json:"externalId"`
	Name            string    `json:"name"`
	DefaultCurrency string    `json:"defaultCurrency"`
	ReportCurrency  string    `json:"reportCurrency"`
	CreatedAt       time.Time `json:"createdAt"`
}

// DisplayName returns the name shown to counterparties.
func (a *Account) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	return "Account " + a.ExternalID
}
