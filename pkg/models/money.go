package models

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Rhymond/go-money"
)

// Amount represents a monetary amount as entered by a user: a decimal
// string plus a 3-letter currency code. Stored entities keep integer
// minor units instead; Amount only exists at the input boundary.
type Amount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

// ToMoney parses the amount into go-money minor units. Missing fraction
// digits are padded and excess digits truncated to the currency's fraction.
func (a *Amount) ToMoney() (*money.Money, error) {
	currency := money.GetCurrency(a.Currency)
	if currency == nil {
		return nil, fmt.Errorf("unknown currency %q", a.Currency)
	}

	value := strings.TrimSpace(a.Value)
	if value == "" || strings.HasPrefix(value, "-") {
		return nil, fmt.Errorf("invalid amount %q", a.Value)
	}

	split := strings.Split(value, ".")
	if len(split) == 1 {
		split = append(split, "")
	} else if len(split) > 2 {
		return nil, fmt.Errorf("invalid amount %q", a.Value)
	}
	if len(split[1]) < currency.Fraction {
		split[1] += strings.Repeat("0", currency.Fraction-len(split[1]))
	} else {
		split[1] = split[1][:currency.Fraction]
	}

	minor, err := strconv.ParseInt(split[0]+split[1], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", a.Value, err)
	}
	return money.New(minor, a.Currency), nil
}

// ValidCurrencyCode reports whether code looks like a 3-letter ISO code
// known to the currency table.
func ValidCurrencyCode(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return money.GetCurrency(code) != nil
}

// MajorValue converts integer minor units back to major units
// (e.g. 2599 cents -> 25.99).
func MajorValue(minor int64, currency string) float64 {
	c := money.GetCurrency(currency)
	fraction := 2
	if c != nil {
		fraction = c.Fraction
	}
	div := 1.0
	for i := 0; i < fraction; i++ {
		div *= 10
	}
	return float64(minor) / div
}

// FormatMinor renders minor units with the currency's display rules.
func FormatMinor(minor int64, currency string) string {
	return money.New(minor, currency).Display()
}

// Snapshot is the frozen reference-currency view of a monetary value,
// computed once at creation time and never recomputed. AmountEUR and
// AmountUSD satisfy amount_ref == major_value * rate_to_ref with the
// rates recorded here.
type Snapshot struct {
	AmountEUR float64 `json:"amountEur"`
	AmountUSD float64 `json:"amountUsd"`
	RateEUR   float64 `json:"rateEur"`
	RateUSD   float64 `json:"rateUsd"`
}

// NewSnapshot freezes the reference amounts for a value of amountMajor
// units using the given conversion rates.
func NewSnapshot(amountMajor, rateEUR, rateUSD float64) Snapshot {
	return Snapshot{
		AmountEUR: amountMajor * rateEUR,
		AmountUSD: amountMajor * rateUSD,
		RateEUR:   rateEUR,
		RateUSD:   rateUSD,
	}
}

// Reference returns the frozen amount in the given reference currency.
// Only EUR and USD snapshots are stored.
func (s Snapshot) Reference(base string) (float64, error) {
	switch strings.ToUpper(base) {
	case "EUR":
		return s.AmountEUR, nil
	case "USD":
		return s.AmountUSD, nil
	}
	return 0, fmt.Errorf("no reference snapshot for currency %q", base)
}
