package calendar

import (
	"strings"
	"time"

	"famcal/internal/models"
)

// Keyword tables are ordered so classification is deterministic when a
// title matches several categories.
var categoryKeywords = []struct {
	category models.Category
	words    []string
}{
	{models.CategoryMedical, []string{"doctor", "dentist", "checkup", "vaccination", "therapy", "appointment"}},
	{models.CategorySchool, []string{"school", "class", "homework", "exam", "parent-teacher", "pta", "recital"}},
	{models.CategoryWork, []string{"meeting", "standup", "review", "deadline", "interview", "presentation"}},
	{models.CategorySocial, []string{"party", "birthday", "dinner", "playdate", "barbecue", "movie"}},
	{models.CategoryChores, []string{"cleaning", "laundry", "groceries", "shopping", "repair", "errand"}},
	{models.CategoryFamily, []string{"family", "kids", "vacation", "trip", "visit"}},
}

var urgentKeywords = []string{"urgent", "asap", "important", "don't forget", "must"}
var criticalKeywords = []string{"emergency", "critical"}

// guessCategory classifies an event from title and description keywords,
// falling back to CategoryOther.
func guessCategory(title, description string) models.Category {
	text := strings.ToLower(title + " " + description)
	for _, ck := range categoryKeywords {
		for _, w := range ck.words {
			if strings.Contains(text, w) {
				return ck.category
			}
		}
	}
	return models.CategoryOther
}

// guessPriority combines keyword urgency with lead time until the event
// starts: anything inside a day is at least high, inside three days at
// least medium.
func guessPriority(title, description string, leadTime time.Duration) models.Priority {
	text := strings.ToLower(title + " " + description)

	p := models.PriorityMedium
	for _, w := range criticalKeywords {
		if strings.Contains(text, w) {
			return models.PriorityCritical
		}
	}
	for _, w := range urgentKeywords {
		if strings.Contains(text, w) {
			p = models.PriorityHigh
		}
	}

	switch {
	case leadTime <= 24*time.Hour:
		if p < models.PriorityHigh {
			p = models.PriorityHigh
		}
	case leadTime <= 72*time.Hour:
		if p < models.PriorityMedium {
			p = models.PriorityMedium
		}
	}
	return p
}
