package domain

import "time"

// FiscalPeriod represents one non-overlapping accounting period.
// Every postable date must resolve to exactly one period; locked or
// closed periods reject new postings.
type FiscalPeriod struct {
	FiscalPeriodID string    `json:"fiscalPeriodID"` // Primary Key (UUID)
	Name           string    `json:"name"`           // e.g., "2026-03"
	StartDate      time.Time `json:"startDate"`
	EndDate        time.Time `json:"endDate"`
	IsLocked       bool      `json:"isLocked"`
	IsClosed       bool      `json:"isClosed"`
	AuditFields
}

// Contains reports whether the given date falls inside the period
// (inclusive on both ends, compared at date granularity).
func (p FiscalPeriod) Contains(date time.Time) bool {
	d := date.Truncate(24 * time.Hour)
	return !d.Before(p.StartDate.Truncate(24*time.Hour)) && !d.After(p.EndDate.Truncate(24*time.Hour))
}

// AcceptsPostings reports whether new vouchers may be posted into the period.
func (p FiscalPeriod) AcceptsPostings() bool {
	return !p.IsLocked && !p.IsClosed
}
