package models

import (
	"strings"
	"time"
)

// IndexEntry is the unencrypted metadata projection of one event. It lets
// queries filter without decrypting event bodies.
type IndexEntry struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	Category       Category  `json:"category"`
	Priority       Priority  `json:"priority"`
	CreatedBy      string    `json:"created_by"`
	Tags           []string  `json:"tags,omitempty"`
	SeriesParentID string    `json:"series_parent_id,omitempty"`
	FilePath       string    `json:"file_path"`
	LastModified   time.Time `json:"last_modified"`
}

// EventFilter is an AND-chain of predicates over index entries. Zero-valued
// fields do not constrain.
type EventFilter struct {
	// UserID matches CreatedBy exactly.
	UserID string
	// From/To select entries whose [Start, End) overlaps [From, To)
	// half-open: entry.Start < To && entry.End > From.
	From time.Time
	To   time.Time
	// Categories / Priorities are set-membership filters.
	Categories []Category
	Priorities []Priority
	// Text is a case-insensitive substring match over title and tags.
	Text string
	// SeriesParentID selects all materialized occurrences of one series.
	SeriesParentID string
}

// Matches applies every set predicate to the entry.
func (f EventFilter) Matches(e IndexEntry) bool {
	if f.UserID != "" && e.CreatedBy != f.UserID {
		return false
	}
	if !f.To.IsZero() && !e.Start.Before(f.To) {
		return false
	}
	if !f.From.IsZero() && !e.End.After(f.From) {
		return false
	}
	if len(f.Categories) > 0 && !containsCategory(f.Categories, e.Category) {
		return false
	}
	if len(f.Priorities) > 0 && !containsPriority(f.Priorities, e.Priority) {
		return false
	}
	if f.SeriesParentID != "" && e.SeriesParentID != f.SeriesParentID {
		return false
	}
	if f.Text != "" && !matchesText(e, f.Text) {
		return false
	}
	return true
}

func containsCategory(set []Category, c Category) bool {
	for _, x := range set {
		if x == c {
			return true
		}
	}
	return false
}

func containsPriority(set []Priority, p Priority) bool {
	for _, x := range set {
		if x == p {
			return true
		}
	}
	return false
}

func matchesText(e IndexEntry, text string) bool {
	needle := strings.ToLower(text)
	if strings.Contains(strings.ToLower(e.Title), needle) {
		return true
	}
	for _, tag := range e.Tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}
