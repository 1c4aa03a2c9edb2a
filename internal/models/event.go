// Package models defines the calendar event types shared by the store,
// expander, conflict detector and manager.
package models

import (
	"fmt"
	"time"

	"famcal/internal/common"
)

// Category classifies an event for filtering and display.
type Category string

const (
	CategoryFamily  Category = "family"
	CategoryWork    Category = "work"
	CategorySchool  Category = "school"
	CategoryMedical Category = "medical"
	CategorySocial  Category = "social"
	CategoryChores  Category = "chores"
	CategoryOther   Category = "other"
)

// Priority is an ordinal urgency level, 1 (low) to 4 (critical).
type Priority int

const (
	PriorityLow Priority = iota + 1
	PriorityMedium
	PriorityHigh
	PriorityCritical
)

// Visibility controls who in the family circle may see the event body.
type Visibility string

const (
	VisibilityFamily  Visibility = "family"
	VisibilityPrivate Visibility = "private"
)

// AttendeeRole distinguishes the organizer from invited participants.
type AttendeeRole string

const (
	RoleOrganizer   AttendeeRole = "organizer"
	RoleParticipant AttendeeRole = "participant"
)

// AttendeeStatus tracks an attendee's reply.
type AttendeeStatus string

const (
	StatusPending  AttendeeStatus = "pending"
	StatusAccepted AttendeeStatus = "accepted"
	StatusDeclined AttendeeStatus = "declined"
)

// Attendee is a person attached to an event. ID is the stable family-member
// id used for resource-conflict detection.
type Attendee struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Email    string         `json:"email,omitempty"`
	Role     AttendeeRole   `json:"role"`
	Status   AttendeeStatus `json:"status"`
	Required bool           `json:"required"`
}

// Reminder asks for a notification LeadMinutes before the event start.
type Reminder struct {
	LeadMinutes int    `json:"lead_minutes"`
	Method      string `json:"method,omitempty"`
}

// Metadata carries bookkeeping that is not part of the user-visible event.
type Metadata struct {
	Source          string            `json:"source,omitempty"`
	SyncStatus      string            `json:"sync_status,omitempty"`
	SafetyValidated bool              `json:"safety_validated"`
	Tags            []string          `json:"tags,omitempty"`
	Custom          map[string]string `json:"custom,omitempty"`
}

// Event is the full calendar event as persisted (encrypted) on disk.
//
// SeriesParentID links a materialized occurrence back to its recurring base
// event; OccurrenceIndex is the occurrence's position in the series. Both are
// zero-valued on non-recurring events and on the base event itself.
type Event struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Start       time.Time  `json:"start"`
	End         time.Time  `json:"end"`
	AllDay      bool       `json:"all_day"`
	Category    Category   `json:"category"`
	Priority    Priority   `json:"priority"`
	Visibility  Visibility `json:"visibility"`
	Attendees   []Attendee `json:"attendees,omitempty"`
	Location    string     `json:"location,omitempty"`

	Recurrence *RecurrencePattern `json:"recurrence,omitempty"`
	Reminders  []Reminder         `json:"reminders,omitempty"`
	Metadata   Metadata           `json:"metadata"`

	SeriesParentID  string `json:"series_parent_id,omitempty"`
	OccurrenceIndex int    `json:"occurrence_index,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	CreatedBy string    `json:"created_by"`
	Private   bool      `json:"private"`
}

// Validate checks the event invariants. It is called before any I/O, so a
// failure leaves no partial state behind.
func (e *Event) Validate() error {
	if e.Title == "" {
		return fmt.Errorf("%w: title is required", common.ErrValidation)
	}
	if e.Start.IsZero() || e.End.IsZero() {
		return fmt.Errorf("%w: start and end are required", common.ErrValidation)
	}
	if !e.Start.Before(e.End) {
		return fmt.Errorf("%w: start must be before end", common.ErrValidation)
	}
	if e.Recurrence != nil {
		if err := e.Recurrence.Validate(); err != nil {
			return err
		}
	}
	for _, r := range e.Reminders {
		if r.LeadMinutes < 0 {
			return fmt.Errorf("%w: reminder lead must not be negative", common.ErrValidation)
		}
	}
	return nil
}

// HasAttendee reports whether the given family-member id is attached.
func (e *Event) HasAttendee(id string) bool {
	for _, a := range e.Attendees {
		if a.ID == id {
			return true
		}
	}
	return false
}

// SharesAttendee reports whether the two events have at least one attendee
// id in common.
func (e *Event) SharesAttendee(other *Event) bool {
	for _, a := range e.Attendees {
		if other.HasAttendee(a.ID) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the event.
func (e *Event) Clone() *Event {
	out := *e
	if e.Recurrence != nil {
		r := e.Recurrence.Clone()
		out.Recurrence = r
	}
	out.Attendees = append([]Attendee(nil), e.Attendees...)
	out.Reminders = append([]Reminder(nil), e.Reminders...)
	out.Metadata.Tags = append([]string(nil), e.Metadata.Tags...)
	if e.Metadata.Custom != nil {
		out.Metadata.Custom = make(map[string]string, len(e.Metadata.Custom))
		for k, v := range e.Metadata.Custom {
			out.Metadata.Custom[k] = v
		}
	}
	return &out
}

// IndexEntry projects the filterable event fields into the plaintext index.
// It must never carry description, attendees or any other private body field.
func (e *Event) IndexEntry(filePath string) IndexEntry {
	return IndexEntry{
		ID:             e.ID,
		Title:          e.Title,
		Start:          e.Start,
		End:            e.End,
		Category:       e.Category,
		Priority:       e.Priority,
		CreatedBy:      e.CreatedBy,
		Tags:           append([]string(nil), e.Metadata.Tags...),
		SeriesParentID: e.SeriesParentID,
		FilePath:       filePath,
		LastModified:   e.UpdatedAt,
	}
}
