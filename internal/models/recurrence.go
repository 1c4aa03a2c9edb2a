package models

import (
	"fmt"
	"time"

	"famcal/internal/common"
)

// Frequency is the recurrence base step.
type Frequency string

const (
	FreqDaily   Frequency = "daily"
	FreqWeekly  Frequency = "weekly"
	FreqMonthly Frequency = "monthly"
	FreqYearly  Frequency = "yearly"
)

// RecurrencePattern describes how a base event repeats.
//
// Exceptions list calendar days to skip; a skipped day still consumes one
// slot of OccurrenceCount.
type RecurrencePattern struct {
	Frequency   Frequency      `json:"frequency"`
	Interval    int            `json:"interval"`
	DaysOfWeek  []time.Weekday `json:"days_of_week,omitempty"`
	DayOfMonth  int            `json:"day_of_month,omitempty"`
	MonthOfYear time.Month     `json:"month_of_year,omitempty"`

	EndDate         *time.Time  `json:"end_date,omitempty"`
	OccurrenceCount int         `json:"occurrence_count,omitempty"`
	Exceptions      []time.Time `json:"exceptions,omitempty"`
}

// Validate checks the pattern invariants.
func (p *RecurrencePattern) Validate() error {
	switch p.Frequency {
	case FreqDaily, FreqWeekly, FreqMonthly, FreqYearly:
	default:
		return fmt.Errorf("%w: unknown recurrence frequency %q", common.ErrValidation, p.Frequency)
	}
	if p.Interval < 1 {
		return fmt.Errorf("%w: recurrence interval must be >= 1", common.ErrValidation)
	}
	if p.Frequency == FreqWeekly && p.DaysOfWeek != nil && len(p.DaysOfWeek) == 0 {
		return fmt.Errorf("%w: weekly recurrence with explicit days needs at least one day", common.ErrValidation)
	}
	if p.DayOfMonth < 0 || p.DayOfMonth > 31 {
		return fmt.Errorf("%w: day of month out of range", common.ErrValidation)
	}
	return nil
}

// IsException reports whether t falls on one of the exception days.
// Matching is by calendar day, not exact instant.
func (p *RecurrencePattern) IsException(t time.Time) bool {
	for _, ex := range p.Exceptions {
		y1, m1, d1 := ex.Date()
		y2, m2, d2 := t.Date()
		if y1 == y2 && m1 == m2 && d1 == d2 {
			return true
		}
	}
	return false
}

// HasDay reports whether the weekday is in the explicit day set.
func (p *RecurrencePattern) HasDay(d time.Weekday) bool {
	for _, wd := range p.DaysOfWeek {
		if wd == d {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the pattern.
func (p *RecurrencePattern) Clone() *RecurrencePattern {
	out := *p
	out.DaysOfWeek = append([]time.Weekday(nil), p.DaysOfWeek...)
	out.Exceptions = append([]time.Time(nil), p.Exceptions...)
	if p.EndDate != nil {
		end := *p.EndDate
		out.EndDate = &end
	}
	return &out
}

// Equal reports whether two patterns describe the same recurrence.
func (p *RecurrencePattern) Equal(other *RecurrencePattern) bool {
	if p == nil || other == nil {
		return p == other
	}
	if p.Frequency != other.Frequency || p.Interval != other.Interval ||
		p.DayOfMonth != other.DayOfMonth || p.MonthOfYear != other.MonthOfYear ||
		p.OccurrenceCount != other.OccurrenceCount {
		return false
	}
	if (p.EndDate == nil) != (other.EndDate == nil) {
		return false
	}
	if p.EndDate != nil && !p.EndDate.Equal(*other.EndDate) {
		return false
	}
	if len(p.DaysOfWeek) != len(other.DaysOfWeek) {
		return false
	}
	for i, d := range p.DaysOfWeek {
		if other.DaysOfWeek[i] != d {
			return false
		}
	}
	if len(p.Exceptions) != len(other.Exceptions) {
		return false
	}
	for i, ex := range p.Exceptions {
		if !other.Exceptions[i].Equal(ex) {
			return false
		}
	}
	return true
}
