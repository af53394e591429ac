package service

import (
	"time"

	"spilledin/internal/models"
	"spilledin/internal/validation"
)

// Period is one calendar month in UTC.
type Period struct {
	Month int
	Year  int
	Start time.Time
	// End is the last millisecond of the month.
	End time.Time
}

// MonthRange returns [first day 00:00:00.000, last day 23:59:59.999] UTC.
func MonthRange(year, month int) (time.Time, time.Time) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0).Add(-time.Millisecond)
	return start, end
}

// NewPeriod validates month and year and builds the period.
func NewPeriod(month, year int) (Period, error) {
	if err := validation.ValidatePeriod(month, year); err != nil {
		return Period{}, models.NewValidationError(err.Error())
	}
	start, end := MonthRange(year, month)
	return Period{Month: month, Year: year, Start: start, End: end}, nil
}

// MonthName is the English month name.
func (p Period) MonthName() string {
	return time.Month(p.Month).String()
}

// InFuture reports whether the period has not started yet.
func (p Period) InFuture(now time.Time) bool {
	return p.Start.After(now)
}

// Ended reports whether the whole period lies in the past.
func (p Period) Ended(now time.Time) bool {
	return now.After(p.End)
}
