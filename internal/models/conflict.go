package models

import "time"

// ConflictType distinguishes pure time collisions from shared-attendee ones.
type ConflictType string

const (
	ConflictTimeOverlap ConflictType = "time_overlap"
	ConflictResource    ConflictType = "resource_conflict"
)

// Severity ranks how disruptive a conflict is.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ResolutionType names a suggested way out of a conflict.
type ResolutionType string

const (
	// ResolutionReschedule proposes moving one event to a free slot.
	ResolutionReschedule ResolutionType = "reschedule"
	// ResolutionPrioritize proposes that the lower-priority event yields.
	// Only offered for low-severity conflicts.
	ResolutionPrioritize ResolutionType = "prioritize"
)

// Resolution is one suggested fix, optionally with a concrete slot.
type Resolution struct {
	Type          ResolutionType `json:"type"`
	Description   string         `json:"description"`
	ProposedStart *time.Time     `json:"proposed_start,omitempty"`
	ProposedEnd   *time.Time     `json:"proposed_end,omitempty"`
}

// Conflict is one detected scheduling collision between two events.
// Detection is not symmetric-deduplicated across calls; consumers dedupe
// by ID.
type Conflict struct {
	ID                   string       `json:"id"`
	Type                 ConflictType `json:"type"`
	EventIDs             []string     `json:"event_ids"`
	Severity             Severity     `json:"severity"`
	SuggestedResolutions []Resolution `json:"suggested_resolutions,omitempty"`
	DetectedAt           time.Time    `json:"detected_at"`
}
