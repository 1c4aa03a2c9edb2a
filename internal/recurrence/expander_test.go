package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"famcal/internal/common"
	"famcal/internal/models"
)

func recurringEvent(start time.Time, p *models.RecurrencePattern) *models.Event {
	return &models.Event{
		ID:         "base-1",
		Title:      "Recurring",
		Start:      start,
		End:        start.Add(time.Hour),
		Category:   models.CategoryFamily,
		Priority:   models.PriorityMedium,
		Visibility: models.VisibilityFamily,
		CreatedBy:  "user-1",
		Recurrence: p,
	}
}

func TestExpand_Daily(t *testing.T) {
	start := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	ev := recurringEvent(start, &models.RecurrencePattern{Frequency: models.FreqDaily, Interval: 2})

	got, err := Expand(ev, Window{From: start, To: start.AddDate(0, 0, 9)})
	require.NoError(t, err)

	require.Len(t, got, 5)
	for i, inst := range got {
		assert.True(t, inst.Start.Equal(start.AddDate(0, 0, 2*i)), "instance %d start", i)
		assert.Equal(t, time.Hour, inst.End.Sub(inst.Start))
		assert.Equal(t, "base-1", inst.SeriesParentID)
		assert.Equal(t, i, inst.OccurrenceIndex)
		assert.Nil(t, inst.Recurrence)
		assert.NotEqual(t, "base-1", inst.ID)
	}
}

// Base event Monday 14:00-15:00, Mon/Wed/Fri, six occurrences over a
// two-week window: exactly six instances, two per matching weekday.
func TestExpand_WeeklyWithExplicitDays(t *testing.T) {
	start := time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC) // a Monday
	require.Equal(t, time.Monday, start.Weekday())

	ev := recurringEvent(start, &models.RecurrencePattern{
		Frequency:       models.FreqWeekly,
		Interval:        1,
		DaysOfWeek:      []time.Weekday{time.Monday, time.Wednesday, time.Friday},
		OccurrenceCount: 6,
	})

	got, err := Expand(ev, Window{From: start, To: start.AddDate(0, 0, 14)})
	require.NoError(t, err)
	require.Len(t, got, 6)

	perDay := map[time.Weekday]int{}
	for _, inst := range got {
		perDay[inst.Start.Weekday()]++
		assert.Equal(t, 14, inst.Start.Hour())
	}
	assert.Equal(t, 2, perDay[time.Monday])
	assert.Equal(t, 2, perDay[time.Wednesday])
	assert.Equal(t, 2, perDay[time.Friday])
}

func TestExpand_WeeklyWithoutDaysJumpsWholeWeeks(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	ev := recurringEvent(start, &models.RecurrencePattern{Frequency: models.FreqWeekly, Interval: 2})

	got, err := Expand(ev, Window{From: start, To: start.AddDate(0, 0, 28)})
	require.NoError(t, err)

	require.Len(t, got, 3)
	assert.True(t, got[1].Start.Equal(start.AddDate(0, 0, 14)))
	assert.True(t, got[2].Start.Equal(start.AddDate(0, 0, 28)))
}

func TestExpand_ExceptionSkippedButCounted(t *testing.T) {
	start := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	ev := recurringEvent(start, &models.RecurrencePattern{
		Frequency:       models.FreqDaily,
		Interval:        1,
		OccurrenceCount: 4,
		// Exception listed at a different clock time on day 2.
		Exceptions: []time.Time{time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)},
	})

	got, err := Expand(ev, Window{From: start, To: start.AddDate(0, 0, 30)})
	require.NoError(t, err)

	// Four candidates generated, one skipped: three instances.
	require.Len(t, got, 3)
	assert.Equal(t, 0, got[0].OccurrenceIndex)
	assert.Equal(t, 2, got[1].OccurrenceIndex)
	assert.Equal(t, 3, got[2].OccurrenceIndex)
}

func TestExpand_MonthlyClampsDayOfMonth(t *testing.T) {
	start := time.Date(2026, 1, 31, 18, 0, 0, 0, time.UTC)
	ev := recurringEvent(start, &models.RecurrencePattern{
		Frequency:  models.FreqMonthly,
		Interval:   1,
		DayOfMonth: 31,
	})

	got, err := Expand(ev, Window{From: start, To: start.AddDate(0, 4, 0)})
	require.NoError(t, err)
	require.True(t, len(got) >= 4)

	assert.True(t, got[0].Start.Equal(start))
	// February clamps to its last day; later months with 31 days pin back.
	assert.True(t, got[1].Start.Equal(time.Date(2026, 2, 28, 18, 0, 0, 0, time.UTC)))
	assert.True(t, got[2].Start.Equal(time.Date(2026, 3, 31, 18, 0, 0, 0, time.UTC)))
	assert.True(t, got[3].Start.Equal(time.Date(2026, 4, 30, 18, 0, 0, 0, time.UTC)))
}

func TestExpand_YearlyPinsMonthAndDay(t *testing.T) {
	start := time.Date(2026, 7, 4, 12, 0, 0, 0, time.UTC)
	ev := recurringEvent(start, &models.RecurrencePattern{
		Frequency:   models.FreqYearly,
		Interval:    1,
		MonthOfYear: time.July,
		DayOfMonth:  4,
	})

	got, err := Expand(ev, Window{From: start, To: start.AddDate(3, 0, 0)})
	require.NoError(t, err)
	require.Len(t, got, 4)
	for i, inst := range got {
		assert.True(t, inst.Start.Equal(time.Date(2026+i, 7, 4, 12, 0, 0, 0, time.UTC)))
	}
}

func TestExpand_StopsAtEndDate(t *testing.T) {
	start := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 5)
	ev := recurringEvent(start, &models.RecurrencePattern{
		Frequency: models.FreqDaily,
		Interval:  1,
		EndDate:   &end,
	})

	got, err := Expand(ev, Window{From: start, To: start.AddDate(0, 0, 30)})
	require.NoError(t, err)
	assert.Len(t, got, 6)
}

func TestExpand_HardCapAtThousand(t *testing.T) {
	start := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	ev := recurringEvent(start, &models.RecurrencePattern{Frequency: models.FreqDaily, Interval: 1})

	// A window far wider than the cap.
	got, err := Expand(ev, Window{From: start, To: start.AddDate(50, 0, 0)})
	require.NoError(t, err)
	assert.Len(t, got, MaxOccurrences)
	assert.Equal(t, MaxOccurrences-1, got[len(got)-1].OccurrenceIndex)
}

func TestExpand_WindowFromSkipsEarlyOccurrences(t *testing.T) {
	start := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	ev := recurringEvent(start, &models.RecurrencePattern{Frequency: models.FreqDaily, Interval: 1})

	got, err := Expand(ev, Window{From: start.AddDate(0, 0, 3), To: start.AddDate(0, 0, 5)})
	require.NoError(t, err)
	require.Len(t, got, 3)
	// Indices still count from the series origin.
	assert.Equal(t, 3, got[0].OccurrenceIndex)
}

func TestExpand_Errors(t *testing.T) {
	start := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	plain := recurringEvent(start, nil)
	_, err := Expand(plain, Window{From: start, To: start.AddDate(0, 0, 1)})
	assert.ErrorIs(t, err, common.ErrValidation)

	bad := recurringEvent(start, &models.RecurrencePattern{Frequency: models.FreqDaily, Interval: 0})
	_, err = Expand(bad, Window{From: start, To: start.AddDate(0, 0, 1)})
	assert.ErrorIs(t, err, common.ErrValidation)

	ok := recurringEvent(start, &models.RecurrencePattern{Frequency: models.FreqDaily, Interval: 1})
	_, err = Expand(ok, Window{From: start.AddDate(0, 0, 2), To: start})
	assert.ErrorIs(t, err, common.ErrValidation)
}
