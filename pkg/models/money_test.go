package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAmountToMoney(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		currency string
		want     int64
		wantErr  bool
	}{
		{name: "plain decimal", value: "25.99", currency: "EUR", want: 2599},
		{name: "no fraction", value: "100", currency: "EUR", want: 10000},
		{name: "short fraction is padded", value: "3.5", currency: "EUR", want: 350},
		{name: "excess fraction is truncated", value: "3.999", currency: "EUR", want: 399},
		{name: "zero-fraction currency", value: "1500", currency: "JPY", want: 1500},
		{name: "negative", value: "-5.00", currency: "EUR", wantErr: true},
		{name: "empty", value: "", currency: "EUR", wantErr: true},
		{name: "two dots", value: "1.2.3", currency: "EUR", wantErr: true},
		{name: "not a number", value: "abc", currency: "EUR", wantErr: true},
		{name: "unknown currency", value: "10", currency: "ZZZ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Amount{Value: tt.value, Currency: tt.currency}
			m, err := a.ToMoney()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, m.Amount())
			assert.Equal(t, tt.currency, m.Currency().Code)
		})
	}
}

func TestValidCurrencyCode(t *testing.T) {
	assert.True(t, ValidCurrencyCode("EUR"))
	assert.True(t, ValidCurrencyCode("RSD"))
	assert.False(t, ValidCurrencyCode("eur"))
	assert.False(t, ValidCurrencyCode("EU"))
	assert.False(t, ValidCurrencyCode("EURO"))
	assert.False(t, ValidCurrencyCode("ZZZ"))
}

func TestMajorValue(t *testing.T) {
	assert.InDelta(t, 25.99, MajorValue(2599, "EUR"), 1e-9)
	assert.InDelta(t, 1500, MajorValue(1500, "JPY"), 1e-9)
	assert.InDelta(t, 0.01, MajorValue(1, "USD"), 1e-9)
}

func TestSnapshot(t *testing.T) {
	s := NewSnapshot(100, 0.0085, 0.0092)

	// The frozen amounts satisfy amount_ref == major * rate_ref
	assert.InDelta(t, 0.85, s.AmountEUR, 1e-9)
	assert.InDelta(t, 0.92, s.AmountUSD, 1e-9)
	assert.InDelta(t, 0.0085, s.RateEUR, 1e-9)
	assert.InDelta(t, 0.0092, s.RateUSD, 1e-9)

	eur, err := s.Reference("EUR")
	assert.NoError(t, err)
	assert.InDelta(t, 0.85, eur, 1e-9)

	usd, err := s.Reference("usd")
	assert.NoError(t, err)
	assert.InDelta(t, 0.92, usd, 1e-9)

	_, err = s.Reference("GBP")
	assert.Error(t, err)
}
