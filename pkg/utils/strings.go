package utils

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Capitalize turns SHOUTY or lowercase labels into title case for
// display ("EXPENSE" -> "Expense").
func Capitalize(s string) string {
	return cases.Title(language.English).String(strings.ToLower(s))
}

// Truncate bounds a string for fixed-width table columns.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
