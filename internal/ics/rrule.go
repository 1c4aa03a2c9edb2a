package ics

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"famcal/internal/models"
)

var weekdayToRRule = map[time.Weekday]rrule.Weekday{
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
	time.Sunday:    rrule.SU,
}

// RuleString renders a recurrence pattern as an RFC 5545 RRULE value.
func RuleString(p *models.RecurrencePattern) (string, error) {
	opt := rrule.ROption{Interval: p.Interval}

	switch p.Frequency {
	case models.FreqDaily:
		opt.Freq = rrule.DAILY
	case models.FreqWeekly:
		opt.Freq = rrule.WEEKLY
		for _, d := range p.DaysOfWeek {
			opt.Byweekday = append(opt.Byweekday, weekdayToRRule[d])
		}
	case models.FreqMonthly:
		opt.Freq = rrule.MONTHLY
		if p.DayOfMonth != 0 {
			opt.Bymonthday = []int{p.DayOfMonth}
		}
	case models.FreqYearly:
		opt.Freq = rrule.YEARLY
		if p.MonthOfYear != 0 {
			opt.Bymonth = []int{int(p.MonthOfYear)}
		}
		if p.DayOfMonth != 0 {
			opt.Bymonthday = []int{p.DayOfMonth}
		}
	default:
		return "", fmt.Errorf("unsupported recurrence frequency %q", p.Frequency)
	}

	if p.EndDate != nil {
		opt.Until = p.EndDate.UTC()
	}
	if p.OccurrenceCount > 0 {
		opt.Count = p.OccurrenceCount
	}
	return opt.RRuleString(), nil
}

// PatternFromRule parses an RRULE value into a recurrence pattern. Only the
// four calendar frequencies are supported; anything finer is rejected.
func PatternFromRule(s string) (*models.RecurrencePattern, error) {
	opt, err := rrule.StrToROption(s)
	if err != nil {
		return nil, fmt.Errorf("parsing RRULE %q: %w", s, err)
	}

	p := &models.RecurrencePattern{Interval: opt.Interval}
	if p.Interval < 1 {
		p.Interval = 1
	}

	switch opt.Freq {
	case rrule.DAILY:
		p.Frequency = models.FreqDaily
	case rrule.WEEKLY:
		p.Frequency = models.FreqWeekly
	case rrule.MONTHLY:
		p.Frequency = models.FreqMonthly
	case rrule.YEARLY:
		p.Frequency = models.FreqYearly
	default:
		return nil, fmt.Errorf("unsupported RRULE frequency in %q", s)
	}

	for _, wd := range opt.Byweekday {
		// rrule counts weekdays from Monday=0; time.Weekday from Sunday=0.
		p.DaysOfWeek = append(p.DaysOfWeek, time.Weekday((wd.Day()+1)%7))
	}
	if len(opt.Bymonthday) > 0 {
		p.DayOfMonth = opt.Bymonthday[0]
	}
	if len(opt.Bymonth) > 0 {
		p.MonthOfYear = time.Month(opt.Bymonth[0])
	}
	if !opt.Until.IsZero() {
		until := opt.Until
		p.EndDate = &until
	}
	if opt.Count > 0 {
		p.OccurrenceCount = opt.Count
	}
	return p, nil
}
