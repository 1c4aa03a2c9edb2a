// Package ics converts between stored events and iCalendar documents.
// Recurring events travel as a single VEVENT with an RRULE; materialized
// instances are implied and not exported individually.
package ics

import (
	"context"
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"famcal/internal/logging"
	"famcal/internal/models"
)

const exdateLayout = "20060102T150405Z"

// Export renders the events as an iCalendar document. Events that are
// materialized occurrences (SeriesParentID set) are skipped: their base
// event's RRULE already describes them.
func Export(events []*models.Event) (string, error) {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId("-//famcal//calendar core//EN")

	for _, ev := range events {
		if ev.SeriesParentID != "" {
			continue
		}
		ve := cal.AddEvent(ev.ID)
		ve.SetCreatedTime(ev.CreatedAt)
		ve.SetDtStampTime(ev.UpdatedAt)
		ve.SetModifiedAt(ev.UpdatedAt)
		ve.SetSummary(ev.Title)

		if ev.AllDay {
			ve.SetAllDayStartAt(ev.Start)
			ve.SetAllDayEndAt(ev.End)
		} else {
			ve.SetStartAt(ev.Start)
			ve.SetEndAt(ev.End)
		}
		if ev.Description != "" {
			ve.SetDescription(ev.Description)
		}
		if ev.Location != "" {
			ve.SetLocation(ev.Location)
		}
		for _, a := range ev.Attendees {
			if a.Email != "" {
				ve.AddAttendee(a.Email)
			}
		}

		if ev.Recurrence != nil {
			rule, err := RuleString(ev.Recurrence)
			if err != nil {
				return "", err
			}
			ve.SetProperty(ical.ComponentPropertyRrule, rule)
			for _, ex := range ev.Recurrence.Exceptions {
				ve.AddProperty(ical.ComponentPropertyExdate, ex.UTC().Format(exdateLayout))
			}
		}
	}
	return cal.Serialize(), nil
}

// Import parses an iCalendar payload into draft events (no ids; the manager
// assigns them on AddEvent). VEVENTs that cannot be mapped are skipped with
// a warning so one bad entry does not sink the whole feed.
func Import(ctx context.Context, r io.Reader, createdBy string, log logging.Logger) ([]*models.Event, error) {
	if log == nil {
		log = logging.NewNopLogger()
	}
	cal, err := ical.ParseCalendar(r)
	if err != nil {
		return nil, err
	}

	var out []*models.Event
	for _, ve := range cal.Events() {
		ev, err := importEvent(ve, createdBy)
		if err != nil {
			log.Warn(ctx, "skipping unmappable VEVENT", "err", err)
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

func importEvent(ve *ical.VEvent, createdBy string) (*models.Event, error) {
	start, err := ve.GetStartAt()
	if err != nil {
		return nil, err
	}
	end, err := ve.GetEndAt()
	if err != nil {
		return nil, err
	}

	ev := &models.Event{
		Start:     start,
		End:       end,
		CreatedBy: createdBy,
		Metadata:  models.Metadata{Source: "ics"},
	}
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		ev.Title = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		ev.Description = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		ev.Location = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil && p.Value != "" {
		ev.Metadata.Custom = map[string]string{"ics_uid": p.Value}
	}

	// All-day detection: VALUE=DATE or a date-only DTSTART.
	if p := ve.GetProperty(ical.ComponentPropertyDtStart); p != nil {
		if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
			ev.AllDay = true
		}
		if !strings.Contains(p.Value, "T") {
			ev.AllDay = true
		}
	}
	if ev.AllDay && !ev.End.After(ev.Start) {
		ev.End = ev.Start.Add(24 * time.Hour)
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		pattern, err := PatternFromRule(p.Value)
		if err != nil {
			return nil, err
		}
		for _, exProp := range ve.GetProperties(ical.ComponentPropertyExdate) {
			if ex, perr := time.Parse(exdateLayout, exProp.Value); perr == nil {
				pattern.Exceptions = append(pattern.Exceptions, ex)
			}
		}
		ev.Recurrence = pattern
	}

	return ev, nil
}
