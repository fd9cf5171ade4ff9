package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCreateAndGetAccount(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	created := createTestAccount(t, db, "tg:12345", "Mila")
	assert.NotZero(t, created.ID)

	t.Run("Get by internal id", func(t *testing.T) {
		got, err := db.GetAccount(created.ID)
		assert.NoError(t, err)
		assert.NotNil(t, got)
		assert.Equal(t, "tg:12345", got.ExternalID)
		assert.Equal(t, "Mila", got.Name)
		assert.Equal(t, "EUR", got.DefaultCurrency)
	})

	t.Run("Get by external id", func(t *testing.T) {
		got, err := db.GetAccountByExternalID("tg:12345")
		assert.NoError(t, err)
		assert.NotNil(t, got)
		assert.Equal(t, created.ID, got.ID)
	})

	t.Run("Missing account yields nil", func(t *testing.T) {
		got, err := db.GetAccount(9999)
		assert.NoError(t, err)
		assert.Nil(t, got)

		got, err = db.GetAccountByExternalID("tg:unknown")
		assert.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("Duplicate external id is rejected", func(t *testing.T) {
		err := db.CreateAccount(created)
		assert.Error(t, err)
	})
}

func TestAccountUpdates(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	a := createTestAccount(t, db, "tg:777", "Old Name")

	assert.NoError(t, db.UpdateAccountName(a.ID, "New Name"))
	assert.NoError(t, db.SetDefaultCurrency(a.ID, "RSD"))
	assert.NoError(t, db.SetReportCurrency(a.ID, "USD"))

	got, err := db.GetAccount(a.ID)
	assert.NoError(t, err)
	assert.Equal(t, "New Name", got.Name)
	assert.Equal(t, "RSD", got.DefaultCurrency)
	assert.Equal(t, "USD", got.ReportCurrency)
}
