package models

import "time"

// ReportPeriod is the tagged variant describing what span a report covers.
type ReportPeriod interface {
	isReportPeriod()
	// Bounds returns the half-open [start, end) time range of the period.
	Bounds() (time.Time, time.Time)
}

// Monthly covers one calendar month.
type Monthly struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
}

func (Monthly) isReportPeriod() {}

func (m Monthly) Bounds() (time.Time, time.Time) {
	start := time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

// DateRange covers an arbitrary range; End is inclusive through
// end of day.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (DateRange) isReportPeriod() {}

func (r DateRange) Bounds() (time.Time, time.Time) {
	start := time.Date(r.Start.Year(), r.Start.Month(), r.Start.Day(), 0, 0, 0, 0, time.UTC)
	end := time.Date(r.End.Year(), r.End.Month(), r.End.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	return start, end
}

// ReportLine is one category's total within a report, already converted
// to the report's display currency.
type ReportLine struct {
	Category string  `json:"category"`
	Icon     string  `json:"icon"`
	Amount   float64 `json:"amount"`
}

// Report aggregates EXPENSE and INCOME entries of one period by category.
// All amounts are in Currency; Balance = TotalIncome - TotalExpenses.
type Report struct {
	Period        ReportPeriod `json:"period"`
	Currency      string       `json:"currency"`
	Expenses      []ReportLine `json:"expenses"`
	Income        []ReportLine `json:"income"`
	TotalExpenses float64      `json:"totalExpenses"`
	TotalIncome   float64      `json:"totalIncome"`
	Balance       float64      `json:"balance"`
}
