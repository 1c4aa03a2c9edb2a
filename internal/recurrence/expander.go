// Package recurrence materializes bounded concrete occurrences of a
// recurring base event.
package recurrence

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"famcal/internal/common"
	"famcal/internal/models"
)

// MaxOccurrences is the hard safety cap on generated candidates per
// expansion. It guarantees termination for malformed patterns.
const MaxOccurrences = 1000

// Window bounds an expansion to [From, To].
type Window struct {
	From time.Time
	To   time.Time
}

// Expand generates the concrete occurrences of the base event's recurrence
// pattern within the window.
//
// Candidate dates start at the base start time and advance with a
// frequency-specific step. Expansion stops at the window end, at the
// pattern's end date, when OccurrenceCount candidates have been generated,
// or at the MaxOccurrences cap. Candidates falling on an exception day are
// skipped but still consume one occurrence slot.
//
// Day-of-month overflow in monthly and yearly steps clamps to the last day
// of the target month (Jan 31 + 1 month lands on Feb 28/29).
//
// Each returned instance is a copy of the base event with a fresh id, the
// occurrence's start/end, no recurrence of its own, and SeriesParentID /
// OccurrenceIndex linking it back to the base. The first instance (index 0)
// covers the base start itself.
func Expand(base *models.Event, w Window) ([]*models.Event, error) {
	p := base.Recurrence
	if p == nil {
		return nil, fmt.Errorf("%w: event %s has no recurrence pattern", common.ErrValidation, base.ID)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if w.To.Before(w.From) {
		return nil, fmt.Errorf("%w: expansion window end before start", common.ErrValidation)
	}

	duration := base.End.Sub(base.Start)
	var out []*models.Event

	date := base.Start
	count := 0
	for {
		if date.After(w.To) {
			break
		}
		if p.EndDate != nil && date.After(*p.EndDate) {
			break
		}
		if p.OccurrenceCount > 0 && count >= p.OccurrenceCount {
			break
		}
		if count >= MaxOccurrences {
			break
		}

		if !p.IsException(date) && !date.Before(w.From) {
			out = append(out, instance(base, date, duration, count))
		}
		count++

		next, ok := step(p, date)
		if !ok {
			break
		}
		date = next
	}

	return out, nil
}

// step advances one candidate date by the pattern's frequency rule.
func step(p *models.RecurrencePattern, date time.Time) (time.Time, bool) {
	switch p.Frequency {
	case models.FreqDaily:
		return date.AddDate(0, 0, p.Interval), true

	case models.FreqWeekly:
		if len(p.DaysOfWeek) == 0 {
			return date.AddDate(0, 0, 7*p.Interval), true
		}
		// Scan forward day by day for the next date whose weekday is in
		// the set, bounded at 7*interval days.
		for i := 1; i <= 7*p.Interval; i++ {
			next := date.AddDate(0, 0, i)
			if p.HasDay(next.Weekday()) {
				return next, true
			}
		}
		return time.Time{}, false

	case models.FreqMonthly:
		day := p.DayOfMonth
		if day == 0 {
			day = date.Day()
		}
		return addMonthsClamped(date, p.Interval, day), true

	case models.FreqYearly:
		next := date.AddDate(p.Interval, 0, 0)
		month := next.Month()
		if p.MonthOfYear != 0 {
			month = p.MonthOfYear
		}
		day := p.DayOfMonth
		if day == 0 {
			day = date.Day()
		}
		day = clampDay(next.Year(), month, day)
		return time.Date(next.Year(), month, day,
			date.Hour(), date.Minute(), date.Second(), date.Nanosecond(), date.Location()), true

	default:
		return time.Time{}, false
	}
}

// addMonthsClamped advances by the given number of months, pinning the day
// of month and clamping it to the target month's length.
func addMonthsClamped(date time.Time, months, day int) time.Time {
	// Anchor at day 1 so AddDate cannot roll over into the following month.
	anchor := time.Date(date.Year(), date.Month(), 1,
		date.Hour(), date.Minute(), date.Second(), date.Nanosecond(), date.Location())
	anchor = anchor.AddDate(0, months, 0)
	day = clampDay(anchor.Year(), anchor.Month(), day)
	return time.Date(anchor.Year(), anchor.Month(), day,
		date.Hour(), date.Minute(), date.Second(), date.Nanosecond(), date.Location())
}

func clampDay(year int, month time.Month, day int) int {
	last := daysIn(year, month)
	if day > last {
		return last
	}
	if day < 1 {
		return 1
	}
	return day
}

func daysIn(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func instance(base *models.Event, start time.Time, duration time.Duration, index int) *models.Event {
	ev := base.Clone()
	ev.ID = uuid.NewString()
	ev.Start = start
	ev.End = start.Add(duration)
	ev.Recurrence = nil
	ev.SeriesParentID = base.ID
	ev.OccurrenceIndex = index
	return ev
}
