package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"famcal/internal/calendar"
	"famcal/internal/ics"
	"famcal/internal/models"
	"famcal/internal/reminder"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02T15:04"
)

// parseWhen accepts either a date or a date-with-time, in local time.
func parseWhen(s string) (time.Time, error) {
	if t, err := time.ParseInLocation(dateTimeLayout, s, time.Local); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(dateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("cannot parse %q, want %s or %s", s, dateLayout, dateTimeLayout)
	}
	return t, nil
}

func (a *App) runAdd(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	title := fs.String("title", "", "event title (required)")
	start := fs.String("start", "", "start time (required)")
	end := fs.String("end", "", "end time; defaults to start plus one hour")
	desc := fs.String("desc", "", "description")
	location := fs.String("location", "", "location")
	allDay := fs.Bool("all-day", false, "all-day event")
	category := fs.String("category", "", "category (family, work, school, medical, social, chores, other)")
	priority := fs.Int("priority", 0, "priority 1..4")
	every := fs.String("every", "", "recurrence frequency (daily, weekly, monthly, yearly)")
	interval := fs.Int("interval", 1, "recurrence interval")
	count := fs.Int("count", 0, "number of occurrences")
	until := fs.String("until", "", "recurrence end date")
	remind := fs.Int("remind", 0, "reminder lead in minutes")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *title == "" || *start == "" {
		return fmt.Errorf("add: -title and -start are required")
	}
	startAt, err := parseWhen(*start)
	if err != nil {
		return err
	}
	endAt := startAt.Add(time.Hour)
	if *end != "" {
		if endAt, err = parseWhen(*end); err != nil {
			return err
		}
	}
	if *allDay {
		startAt = time.Date(startAt.Year(), startAt.Month(), startAt.Day(), 0, 0, 0, 0, startAt.Location())
		endAt = startAt.AddDate(0, 0, 1)
	}

	ev := &models.Event{
		Title:       *title,
		Description: *desc,
		Location:    *location,
		Start:       startAt,
		End:         endAt,
		AllDay:      *allDay,
		Category:    models.Category(*category),
		Priority:    models.Priority(*priority),
		CreatedBy:   a.cfg.DefaultUser,
	}
	if *remind > 0 {
		ev.Reminders = []models.Reminder{{LeadMinutes: *remind}}
	}
	if *every != "" {
		p := &models.RecurrencePattern{
			Frequency:       models.Frequency(*every),
			Interval:        *interval,
			OccurrenceCount: *count,
		}
		if *until != "" {
			u, err := parseWhen(*until)
			if err != nil {
				return err
			}
			p.EndDate = &u
		}
		ev.Recurrence = p
	}

	m, err := a.openManager(ctx)
	if err != nil {
		return err
	}
	m.Subscribe(calendar.ObserverFunc(func(_ context.Context, n calendar.Notification) {
		if n.Kind != calendar.NotifyConflictDetected {
			return
		}
		for _, c := range n.Conflicts {
			fmt.Fprintf(a.out, "warning: %s (%s) with %s\n", c.Type, c.Severity, strings.Join(c.EventIDs, ", "))
		}
	}))

	saved, err := m.AddEvent(ctx, ev)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "added %s\n", saved.ID)
	return nil
}

func (a *App) runList(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	from := fs.String("from", "", "window start; defaults to today")
	to := fs.String("to", "", "window end; defaults to from plus 7 days")
	user := fs.String("user", "", "filter by creator")
	text := fs.String("text", "", "substring filter over title and tags")
	if err := fs.Parse(args); err != nil {
		return err
	}

	now := time.Now()
	fromAt := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
	if *from != "" {
		var err error
		if fromAt, err = parseWhen(*from); err != nil {
			return err
		}
	}
	toAt := fromAt.AddDate(0, 0, 7)
	if *to != "" {
		var err error
		if toAt, err = parseWhen(*to); err != nil {
			return err
		}
	}

	m, err := a.openManager(ctx)
	if err != nil {
		return err
	}
	events, err := m.QueryEvents(ctx, models.EventFilter{
		UserID: *user,
		From:   fromAt,
		To:     toAt,
		Text:   *text,
	})
	if err != nil {
		return err
	}
	for _, ev := range events {
		a.printEventLine(ev)
	}
	return nil
}

func (a *App) runGet(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("get: want exactly one event id")
	}
	m, err := a.openManager(ctx)
	if err != nil {
		return err
	}
	ev, err := m.GetEvent(ctx, args[0])
	if err != nil {
		return err
	}
	a.printEvent(ev)
	return nil
}

func (a *App) runRemove(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("remove: want exactly one event id")
	}
	m, err := a.openManager(ctx)
	if err != nil {
		return err
	}
	if err := m.RemoveEvent(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "removed %s\n", args[0])
	return nil
}

func (a *App) runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	from := fs.String("from", "", "window start; empty exports everything")
	to := fs.String("to", "", "window end")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var filter models.EventFilter
	if *from != "" {
		t, err := parseWhen(*from)
		if err != nil {
			return err
		}
		filter.From = t
	}
	if *to != "" {
		t, err := parseWhen(*to)
		if err != nil {
			return err
		}
		filter.To = t
	}

	m, err := a.openManager(ctx)
	if err != nil {
		return err
	}
	events, err := m.QueryEvents(ctx, filter)
	if err != nil {
		return err
	}
	doc, err := ics.Export(events)
	if err != nil {
		return err
	}
	fmt.Fprint(a.out, doc)
	return nil
}

func (a *App) runImport(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("import: want exactly one .ics file path")
	}
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	m, err := a.openManager(ctx)
	if err != nil {
		return err
	}
	drafts, err := ics.Import(ctx, f, a.cfg.DefaultUser, a.log)
	if err != nil {
		return err
	}
	var added int
	for _, d := range drafts {
		saved, err := m.AddEvent(ctx, d)
		if err != nil {
			a.log.Warn(ctx, "skipping unimportable event", "title", d.Title, "err", err)
			continue
		}
		added++
		fmt.Fprintf(a.out, "added %s %s\n", saved.ID, saved.Title)
	}
	fmt.Fprintf(a.out, "imported %d of %d events\n", added, len(drafts))
	return nil
}

func (a *App) runRemind(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("remind: takes no arguments")
	}
	m, err := a.openManager(ctx)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := reminder.NewScheduler(m, func(_ context.Context, d reminder.Due) {
		fmt.Fprintf(a.out, "reminder: %s at %s (in %d min)\n",
			d.Event.Title, d.Event.Start.Local().Format(dateTimeLayout), d.Reminder.LeadMinutes)
	}, a.log)
	if err := s.Start(ctx, a.cfg.ReminderCron); err != nil {
		return err
	}
	defer s.Stop()

	s.Sweep(ctx)
	<-ctx.Done()
	return nil
}

func (a *App) printEventLine(ev *models.Event) {
	marker := " "
	if ev.SeriesParentID != "" {
		marker = "*"
	}
	fmt.Fprintf(a.out, "%s %s  %s - %s  [%s] %s\n",
		marker, ev.ID,
		ev.Start.Local().Format(dateTimeLayout), ev.End.Local().Format(dateTimeLayout),
		ev.Category, ev.Title)
}

func (a *App) printEvent(ev *models.Event) {
	a.printEventLine(ev)
	if ev.Description != "" {
		fmt.Fprintf(a.out, "  %s\n", ev.Description)
	}
	if ev.Location != "" {
		fmt.Fprintf(a.out, "  at %s\n", ev.Location)
	}
	fmt.Fprintf(a.out, "  priority %d, %s, created by %s\n", ev.Priority, ev.Visibility, ev.CreatedBy)
	for _, att := range ev.Attendees {
		fmt.Fprintf(a.out, "  attendee %s <%s>\n", att.Name, att.Email)
	}
	if ev.Recurrence != nil {
		fmt.Fprintf(a.out, "  repeats %s every %d\n", ev.Recurrence.Frequency, ev.Recurrence.Interval)
	}
}
