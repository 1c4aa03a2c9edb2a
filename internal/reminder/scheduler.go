// Package reminder fires event reminders via a cron-driven sweep.
package reminder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"famcal/internal/logging"
	"famcal/internal/models"
)

// defaultLookahead bounds how far ahead a sweep queries for upcoming events.
// Reminder leads longer than this are picked up by a later sweep.
const defaultLookahead = 7 * 24 * time.Hour

// EventSource yields the events a sweep inspects. *calendar.Manager
// satisfies it.
type EventSource interface {
	QueryEvents(ctx context.Context, f models.EventFilter) ([]*models.Event, error)
}

// Due describes one reminder that has come due.
type Due struct {
	Event    *models.Event
	Reminder models.Reminder
	FireAt   time.Time
}

// NotifyFunc receives due reminders. It runs on the cron goroutine, so it
// should hand off long work.
type NotifyFunc func(ctx context.Context, d Due)

// Scheduler periodically sweeps the store for reminders that have come due
// and delivers each one exactly once per process lifetime.
type Scheduler struct {
	source    EventSource
	notify    NotifyFunc
	log       logging.Logger
	cron      *cron.Cron
	now       func() time.Time
	lookahead time.Duration

	mu    sync.Mutex
	fired map[string]struct{}
}

func NewScheduler(source EventSource, notify NotifyFunc, log logging.Logger) *Scheduler {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Scheduler{
		source:    source,
		notify:    notify,
		log:       log,
		cron:      cron.New(cron.WithSeconds()),
		now:       time.Now,
		lookahead: defaultLookahead,
		fired:     make(map[string]struct{}),
	}
}

// Start registers the sweep under the given cron spec (with a seconds field)
// and starts the scheduler.
func (s *Scheduler) Start(ctx context.Context, spec string) error {
	_, err := s.cron.AddFunc(spec, func() { s.Sweep(ctx) })
	if err != nil {
		return fmt.Errorf("scheduling reminder sweep: %w", err)
	}
	s.cron.Start()
	s.log.Info(ctx, "reminder scheduler started", "spec", spec)
	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Sweep finds reminders whose fire time has passed and delivers each once.
// Exported so callers can force an immediate pass, for example at startup.
func (s *Scheduler) Sweep(ctx context.Context) {
	now := s.now()
	events, err := s.source.QueryEvents(ctx, models.EventFilter{
		From: now,
		To:   now.Add(s.lookahead),
	})
	if err != nil {
		s.log.Error(ctx, "reminder sweep query failed", "err", err)
		return
	}

	for _, ev := range events {
		for _, r := range ev.Reminders {
			fireAt := ev.Start.Add(-time.Duration(r.LeadMinutes) * time.Minute)
			if fireAt.After(now) {
				continue
			}
			key := fmt.Sprintf("%s/%d", ev.ID, r.LeadMinutes)
			if !s.markFired(key) {
				continue
			}
			s.log.Debug(ctx, "reminder due", "event_id", ev.ID, "lead_minutes", r.LeadMinutes)
			if s.notify != nil {
				s.notify(ctx, Due{Event: ev, Reminder: r, FireAt: fireAt})
			}
		}
	}
}

// markFired records the key, returning false if it was already present.
func (s *Scheduler) markFired(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.fired[key]; ok {
		return false
	}
	s.fired[key] = struct{}{}
	return true
}
