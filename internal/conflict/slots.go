package conflict

import (
	"sort"
	"time"
)

const (
	// slotGranularity is the fixed step between candidate start times.
	slotGranularity = 30 * time.Minute
	// maxSuggestions caps the number of returned slots.
	maxSuggestions = 10
)

// TimeRange is a half-open [Start, End) interval.
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Overlaps reports open-interval collision with another range.
func (r TimeRange) Overlaps(other TimeRange) bool {
	return Overlaps(r.Start, r.End, other.Start, other.End)
}

// FindAlternativeSlots scans the preferred ranges at 30-minute granularity
// for slots of the given duration that overlap neither the busy intervals
// (the organizer's existing events) nor the blackout ranges. It returns at
// most ten candidates, ascending by start time.
func FindAlternativeSlots(duration time.Duration, preferred, busy, blackout []TimeRange) []TimeRange {
	if duration <= 0 {
		return nil
	}

	var out []TimeRange
	for _, pref := range preferred {
		for start := pref.Start; !start.Add(duration).After(pref.End); start = start.Add(slotGranularity) {
			cand := TimeRange{Start: start, End: start.Add(duration)}
			if overlapsAny(cand, busy) || overlapsAny(cand, blackout) {
				continue
			}
			out = append(out, cand)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	if len(out) > maxSuggestions {
		out = out[:maxSuggestions]
	}
	return out
}

func overlapsAny(cand TimeRange, ranges []TimeRange) bool {
	for _, r := range ranges {
		if cand.Overlaps(r) {
			return true
		}
	}
	return false
}
