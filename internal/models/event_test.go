package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"famcal/internal/common"
)

func validEvent() *Event {
	start := time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)
	return &Event{
		ID:         "ev-1",
		Title:      "Dentist",
		Start:      start,
		End:        start.Add(time.Hour),
		Category:   CategoryMedical,
		Priority:   PriorityMedium,
		Visibility: VisibilityFamily,
		CreatedBy:  "user-1",
	}
}

func TestEvent_Validate(t *testing.T) {
	start := time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		mutate  func(*Event)
		wantErr bool
	}{
		{"valid", func(e *Event) {}, false},
		{"missing title", func(e *Event) { e.Title = "" }, true},
		{"start equals end", func(e *Event) { e.End = e.Start }, true},
		{"start after end", func(e *Event) { e.End = e.Start.Add(-time.Hour) }, true},
		{"zero start", func(e *Event) { e.Start = time.Time{} }, true},
		{"negative reminder", func(e *Event) { e.Reminders = []Reminder{{LeadMinutes: -5}} }, true},
		{"bad recurrence interval", func(e *Event) {
			e.Recurrence = &RecurrencePattern{Frequency: FreqDaily, Interval: 0}
		}, true},
		{"unknown frequency", func(e *Event) {
			e.Recurrence = &RecurrencePattern{Frequency: "hourly", Interval: 1}
		}, true},
		{"weekly with empty day set", func(e *Event) {
			e.Recurrence = &RecurrencePattern{Frequency: FreqWeekly, Interval: 1, DaysOfWeek: []time.Weekday{}}
		}, true},
		{"weekly with days", func(e *Event) {
			e.Recurrence = &RecurrencePattern{Frequency: FreqWeekly, Interval: 1, DaysOfWeek: []time.Weekday{time.Monday}}
		}, false},
		{"valid monthly", func(e *Event) {
			e.Recurrence = &RecurrencePattern{Frequency: FreqMonthly, Interval: 2, DayOfMonth: 15}
		}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ev := validEvent()
			ev.Start = start
			ev.End = start.Add(time.Hour)
			tc.mutate(ev)

			err := ev.Validate()
			if tc.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, common.ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRecurrencePattern_IsException_ByCalendarDay(t *testing.T) {
	ex := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	p := &RecurrencePattern{Frequency: FreqDaily, Interval: 1, Exceptions: []time.Time{ex}}

	// Same day, different clock time still matches.
	assert.True(t, p.IsException(time.Date(2026, 3, 4, 14, 30, 0, 0, time.UTC)))
	assert.False(t, p.IsException(time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)))
}

func TestEvent_SharesAttendee(t *testing.T) {
	a := validEvent()
	a.Attendees = []Attendee{{ID: "mom"}, {ID: "kid-1"}}
	b := validEvent()
	b.Attendees = []Attendee{{ID: "dad"}}

	assert.False(t, a.SharesAttendee(b))

	b.Attendees = append(b.Attendees, Attendee{ID: "kid-1"})
	assert.True(t, a.SharesAttendee(b))
}

func TestEvent_Clone_IsDeep(t *testing.T) {
	ev := validEvent()
	ev.Attendees = []Attendee{{ID: "mom"}}
	ev.Metadata.Tags = []string{"health"}
	ev.Recurrence = &RecurrencePattern{Frequency: FreqDaily, Interval: 1}

	cp := ev.Clone()
	cp.Attendees[0].ID = "dad"
	cp.Metadata.Tags[0] = "work"
	cp.Recurrence.Interval = 5

	assert.Equal(t, "mom", ev.Attendees[0].ID)
	assert.Equal(t, "health", ev.Metadata.Tags[0])
	assert.Equal(t, 1, ev.Recurrence.Interval)
}

func TestEventFilter_Matches(t *testing.T) {
	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	entry := IndexEntry{
		ID:        "ev-1",
		Title:     "Soccer practice",
		Start:     start,
		End:       start.Add(time.Hour),
		Category:  CategorySchool,
		Priority:  PriorityMedium,
		CreatedBy: "user-1",
		Tags:      []string{"sports", "kids"},
	}

	tests := []struct {
		name   string
		filter EventFilter
		want   bool
	}{
		{"empty filter", EventFilter{}, true},
		{"user match", EventFilter{UserID: "user-1"}, true},
		{"user mismatch", EventFilter{UserID: "user-2"}, false},
		{"overlapping window", EventFilter{From: start.Add(30 * time.Minute), To: start.Add(2 * time.Hour)}, true},
		{"window ends at start", EventFilter{From: start.Add(-time.Hour), To: start}, false},
		{"window starts at end", EventFilter{From: start.Add(time.Hour), To: start.Add(2 * time.Hour)}, false},
		{"category match", EventFilter{Categories: []Category{CategorySchool, CategoryWork}}, true},
		{"category mismatch", EventFilter{Categories: []Category{CategoryWork}}, false},
		{"priority match", EventFilter{Priorities: []Priority{PriorityMedium}}, true},
		{"text in title case-insensitive", EventFilter{Text: "SOCCER"}, true},
		{"text in tag", EventFilter{Text: "kid"}, true},
		{"text miss", EventFilter{Text: "piano"}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.filter.Matches(entry))
		})
	}
}

func TestRecurrencePattern_Equal(t *testing.T) {
	end := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	p := &RecurrencePattern{Frequency: FreqWeekly, Interval: 2, DaysOfWeek: []time.Weekday{time.Monday}, EndDate: &end}

	assert.True(t, p.Equal(p.Clone()))

	q := p.Clone()
	q.Interval = 3
	assert.False(t, p.Equal(q))

	q = p.Clone()
	q.DaysOfWeek = []time.Weekday{time.Tuesday}
	assert.False(t, p.Equal(q))

	q = p.Clone()
	q.EndDate = nil
	assert.False(t, p.Equal(q))

	assert.True(t, (*RecurrencePattern)(nil).Equal(nil))
	assert.False(t, p.Equal(nil))
}
