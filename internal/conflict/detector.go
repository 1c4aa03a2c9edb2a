// Package conflict implements scheduling-collision detection and free-slot
// search for reschedule suggestions.
package conflict

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"famcal/internal/models"
)

// Overlaps reports whether the two half-open intervals collide. The interval
// comparison is open: events that only touch at a boundary do not conflict.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// Detector finds time and resource conflicts between an event and a set of
// candidates.
type Detector struct {
	now func() time.Time
}

func NewDetector() *Detector {
	return &Detector{now: time.Now}
}

// Detect returns one Conflict per candidate that collides with the event.
// Symmetric (A,B)/(B,A) pairs across repeated calls are not deduplicated;
// consumers dedupe by conflict id.
func (d *Detector) Detect(ev *models.Event, candidates []*models.Event) []models.Conflict {
	var out []models.Conflict
	for _, cand := range candidates {
		if cand.ID == ev.ID {
			continue
		}
		if !Overlaps(ev.Start, ev.End, cand.Start, cand.End) {
			continue
		}

		kind := models.ConflictTimeOverlap
		if ev.SharesAttendee(cand) {
			kind = models.ConflictResource
		}

		severity := scoreSeverity(ev, cand)
		c := models.Conflict{
			ID:         uuid.NewString(),
			Type:       kind,
			EventIDs:   []string{ev.ID, cand.ID},
			Severity:   severity,
			DetectedAt: d.now(),
		}
		c.SuggestedResolutions = suggestResolutions(ev, cand, severity)
		out = append(out, c)
	}
	return out
}

// scoreSeverity derives severity from the overlap's share of the shorter
// event and the higher of the two priorities. Either event at critical
// priority escalates regardless of overlap size.
func scoreSeverity(a, b *models.Event) models.Severity {
	overlap := minTime(a.End, b.End).Sub(maxTime(a.Start, b.Start))
	shorter := a.End.Sub(a.Start)
	if d := b.End.Sub(b.Start); d < shorter {
		shorter = d
	}

	level := 0 // low
	if shorter > 0 {
		ratio := float64(overlap) / float64(shorter)
		switch {
		case ratio >= 0.75:
			level = 2
		case ratio >= 0.25:
			level = 1
		}
	}

	maxPriority := a.Priority
	if b.Priority > maxPriority {
		maxPriority = b.Priority
	}
	if maxPriority >= models.PriorityHigh {
		level++
	}
	if maxPriority == models.PriorityCritical && level < 2 {
		level = 2
	}

	switch {
	case level <= 0:
		return models.SeverityLow
	case level == 1:
		return models.SeverityMedium
	case level == 2:
		return models.SeverityHigh
	default:
		return models.SeverityCritical
	}
}

func suggestResolutions(a, b *models.Event, severity models.Severity) []models.Resolution {
	out := []models.Resolution{{
		Type:        models.ResolutionReschedule,
		Description: fmt.Sprintf("move %q to a free slot", a.Title),
	}}
	if severity == models.SeverityLow {
		lower := a
		if b.Priority < a.Priority {
			lower = b
		}
		out = append(out, models.Resolution{
			Type:        models.ResolutionPrioritize,
			Description: fmt.Sprintf("let the lower-priority event %q yield", lower.Title),
		})
	}
	return out
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
