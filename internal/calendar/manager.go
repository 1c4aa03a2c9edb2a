// Package calendar orchestrates the encrypted store, recurrence expander
// and conflict detector into event CRUD with conflict-aware behavior.
package calendar

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"famcal/internal/common"
	"famcal/internal/conflict"
	"famcal/internal/logging"
	"famcal/internal/models"
	"famcal/internal/recurrence"
	"famcal/internal/store"
)

// defaultExpansionHorizon bounds instance materialization for recurrences
// without an end date.
const defaultExpansionHorizon = 2 * 365 * 24 * time.Hour

// Validator is the external content-safety collaborator. It returns whether
// the title/description pair is appropriate; family permission policy is
// checked by another layer before calls reach this core.
type Validator interface {
	ValidateContent(ctx context.Context, title, description string) (bool, error)
}

// EventChanges is a partial update. Nil fields are left untouched.
// ClearRecurrence removes the pattern; it wins over Recurrence.
type EventChanges struct {
	Title       *string
	Description *string
	Start       *time.Time
	End         *time.Time
	AllDay      *bool
	Category    *models.Category
	Priority    *models.Priority
	Visibility  *models.Visibility
	Attendees   *[]models.Attendee
	Location    *string
	Reminders   *[]models.Reminder
	Tags        *[]string

	Recurrence      *models.RecurrencePattern
	ClearRecurrence bool
}

// Manager is the calendar orchestration layer.
//
// Store transactions are atomic per call only; the manager serializes
// writes per event id with a keyed lock so two calls touching the same id
// cannot interleave at the filesystem layer.
type Manager struct {
	store     *store.Store
	validator Validator
	detector  *conflict.Detector
	log       logging.Logger
	now       func() time.Time

	obsMu     sync.RWMutex
	observers []Observer

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

func NewManager(st *store.Store, validator Validator, log logging.Logger) *Manager {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Manager{
		store:     st,
		validator: validator,
		detector:  conflict.NewDetector(),
		log:       log,
		now:       time.Now,
		locks:     make(map[string]*sync.Mutex),
	}
}

// Subscribe registers an observer for subsequent notifications.
func (m *Manager) Subscribe(o Observer) {
	m.obsMu.Lock()
	defer m.obsMu.Unlock()
	m.observers = append(m.observers, o)
}

func (m *Manager) notify(ctx context.Context, n Notification) {
	m.obsMu.RLock()
	observers := append([]Observer(nil), m.observers...)
	m.obsMu.RUnlock()
	for _, o := range observers {
		o.Notify(ctx, n)
	}
}

// lockFor returns the per-event-id writer lock, creating it on first use.
func (m *Manager) lockFor(id string) *sync.Mutex {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()
	mu, ok := m.locks[id]
	if !ok {
		mu = &sync.Mutex{}
		m.locks[id] = mu
	}
	return mu
}

// AddEvent validates and persists a new event. Detected conflicts never
// block creation; they are reported through a ConflictDetected
// notification. Recurring events are expanded over
// [start, recurrence end date or start+2y] and every instance except the
// first is persisted alongside the base event.
func (m *Manager) AddEvent(ctx context.Context, ev *models.Event) (*models.Event, error) {
	ev = ev.Clone()
	m.fillDefaults(ev)

	if err := m.checkContent(ctx, ev); err != nil {
		return nil, err
	}
	if err := ev.Validate(); err != nil {
		return nil, err
	}

	mu := m.lockFor(ev.ID)
	mu.Lock()
	defer mu.Unlock()

	conflicts, err := m.FindConflicts(ctx, ev)
	if err != nil {
		return nil, err
	}

	if err := m.store.Save(ctx, ev); err != nil {
		return nil, err
	}

	if ev.Recurrence != nil {
		if err := m.materializeInstances(ctx, ev); err != nil {
			return nil, err
		}
	}

	now := m.now()
	m.notify(ctx, Notification{Kind: NotifyEventAdded, Event: ev, At: now})
	if len(conflicts) > 0 {
		m.notify(ctx, Notification{Kind: NotifyConflictDetected, Event: ev, Conflicts: conflicts, At: now})
	}
	m.log.Info(ctx, "event added", "id", ev.ID, "title", ev.Title, "conflicts", len(conflicts))
	return ev, nil
}

func (m *Manager) fillDefaults(ev *models.Event) {
	now := m.now()
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = now
	}
	ev.UpdatedAt = now
	if ev.Category == "" {
		ev.Category = guessCategory(ev.Title, ev.Description)
	}
	if ev.Priority == 0 {
		ev.Priority = guessPriority(ev.Title, ev.Description, ev.Start.Sub(now))
	}
	if ev.Visibility == "" {
		ev.Visibility = models.VisibilityFamily
	}
}

func (m *Manager) checkContent(ctx context.Context, ev *models.Event) error {
	if m.validator == nil {
		return nil
	}
	ok, err := m.validator.ValidateContent(ctx, ev.Title, ev.Description)
	if err != nil {
		return fmt.Errorf("content validation: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: event %q", common.ErrContentRejected, ev.Title)
	}
	ev.Metadata.SafetyValidated = true
	return nil
}

// materializeInstances expands the base event and persists every instance
// except the first, which the base event itself already covers.
func (m *Manager) materializeInstances(ctx context.Context, base *models.Event) error {
	to := base.Start.Add(defaultExpansionHorizon)
	if base.Recurrence.EndDate != nil {
		to = *base.Recurrence.EndDate
	}
	instances, err := recurrence.Expand(base, recurrence.Window{From: base.Start, To: to})
	if err != nil {
		return err
	}
	for _, inst := range instances {
		if inst.OccurrenceIndex == 0 {
			continue
		}
		if err := m.store.Save(ctx, inst); err != nil {
			return fmt.Errorf("persisting occurrence %d of %s: %w", inst.OccurrenceIndex, base.ID, err)
		}
	}
	m.log.Debug(ctx, "series materialized", "id", base.ID, "instances", len(instances))
	return nil
}

// UpdateEvent merges partial changes into the stored event, revalidates,
// re-checks conflicts and persists. When recurrence-affecting fields change
// (start, end or the pattern itself), all existing instances are deleted
// and regenerated.
func (m *Manager) UpdateEvent(ctx context.Context, id string, changes EventChanges) (*models.Event, error) {
	mu := m.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	existing, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	ev := existing.Clone()
	contentChanged, recurrenceChanged := applyChanges(ev, changes)

	// Recompute heuristics only when their inputs moved and the caller did
	// not pin explicit values.
	if contentChanged {
		if changes.Category == nil {
			ev.Category = guessCategory(ev.Title, ev.Description)
		}
		if changes.Priority == nil {
			ev.Priority = guessPriority(ev.Title, ev.Description, ev.Start.Sub(m.now()))
		}
	}

	if contentChanged {
		if err := m.checkContent(ctx, ev); err != nil {
			return nil, err
		}
	}
	if err := ev.Validate(); err != nil {
		return nil, err
	}
	ev.UpdatedAt = m.now()

	conflicts, err := m.FindConflicts(ctx, ev)
	if err != nil {
		return nil, err
	}

	if err := m.store.Save(ctx, ev); err != nil {
		return nil, err
	}

	if recurrenceChanged {
		if err := m.removeInstances(ctx, id); err != nil {
			return nil, err
		}
		if ev.Recurrence != nil {
			if err := m.materializeInstances(ctx, ev); err != nil {
				return nil, err
			}
		}
	}

	now := m.now()
	m.notify(ctx, Notification{Kind: NotifyEventUpdated, Event: ev, At: now})
	if len(conflicts) > 0 {
		m.notify(ctx, Notification{Kind: NotifyConflictDetected, Event: ev, Conflicts: conflicts, At: now})
	}
	m.log.Info(ctx, "event updated", "id", id, "regenerated_series", recurrenceChanged)
	return ev, nil
}

// applyChanges merges the partial update into ev and reports whether
// heuristic inputs (title/description/start) and recurrence-affecting
// fields changed.
func applyChanges(ev *models.Event, c EventChanges) (contentChanged, recurrenceChanged bool) {
	if c.Title != nil && *c.Title != ev.Title {
		ev.Title = *c.Title
		contentChanged = true
	}
	if c.Description != nil && *c.Description != ev.Description {
		ev.Description = *c.Description
		contentChanged = true
	}
	if c.Start != nil && !c.Start.Equal(ev.Start) {
		ev.Start = *c.Start
		contentChanged = true
		recurrenceChanged = true
	}
	if c.End != nil && !c.End.Equal(ev.End) {
		ev.End = *c.End
		recurrenceChanged = true
	}
	if c.AllDay != nil {
		ev.AllDay = *c.AllDay
	}
	if c.Category != nil {
		ev.Category = *c.Category
	}
	if c.Priority != nil {
		ev.Priority = *c.Priority
	}
	if c.Visibility != nil {
		ev.Visibility = *c.Visibility
	}
	if c.Attendees != nil {
		ev.Attendees = append([]models.Attendee(nil), (*c.Attendees)...)
	}
	if c.Location != nil {
		ev.Location = *c.Location
	}
	if c.Reminders != nil {
		ev.Reminders = append([]models.Reminder(nil), (*c.Reminders)...)
	}
	if c.Tags != nil {
		ev.Metadata.Tags = append([]string(nil), (*c.Tags)...)
	}
	switch {
	case c.ClearRecurrence:
		if ev.Recurrence != nil {
			ev.Recurrence = nil
			recurrenceChanged = true
		}
	case c.Recurrence != nil:
		if !c.Recurrence.Equal(ev.Recurrence) {
			ev.Recurrence = c.Recurrence.Clone()
			recurrenceChanged = true
		}
	}
	return contentChanged, recurrenceChanged
}

// RemoveEvent deletes the event and cascades to every materialized instance
// of its series. Removing an unknown id is a no-op.
func (m *Manager) RemoveEvent(ctx context.Context, id string) error {
	mu := m.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	if !m.store.Has(id) {
		m.log.Debug(ctx, "remove of unknown event ignored", "id", id)
		return nil
	}

	ev, err := m.store.Get(ctx, id)
	if err != nil {
		m.log.Warn(ctx, "removing event whose record is unreadable", "id", id, "err", err)
	}

	if err := m.removeInstances(ctx, id); err != nil {
		return err
	}
	if err := m.store.Delete(ctx, id); err != nil {
		return err
	}

	m.notify(ctx, Notification{Kind: NotifyEventRemoved, Event: ev, At: m.now()})
	m.log.Info(ctx, "event removed", "id", id)
	return nil
}

func (m *Manager) removeInstances(ctx context.Context, parentID string) error {
	entries, err := m.store.QueryIndex(models.EventFilter{SeriesParentID: parentID})
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if err := m.store.Delete(ctx, entry.ID); err != nil {
			return fmt.Errorf("cascading delete of instance %s: %w", entry.ID, err)
		}
	}
	return nil
}

// GetEvent reads one event, transparently recovering from backups.
func (m *Manager) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	return m.store.Get(ctx, id)
}

// QueryEvents filters and decrypts matching events.
func (m *Manager) QueryEvents(ctx context.Context, f models.EventFilter) ([]*models.Event, error) {
	return m.store.Query(ctx, f)
}

// FindConflicts detects collisions between the event and the creator's
// stored events overlapping its interval.
func (m *Manager) FindConflicts(ctx context.Context, ev *models.Event) ([]models.Conflict, error) {
	candidates, err := m.store.Query(ctx, models.EventFilter{
		UserID: ev.CreatedBy,
		From:   ev.Start,
		To:     ev.End,
	})
	if err != nil {
		return nil, err
	}
	return m.detector.Detect(ev, candidates), nil
}

// FindAlternativeSlots proposes free slots with the event's duration inside
// the preferred ranges, avoiding the creator's existing events and the
// given blackout ranges.
func (m *Manager) FindAlternativeSlots(ctx context.Context, ev *models.Event, preferred, blackout []conflict.TimeRange) ([]conflict.TimeRange, error) {
	var busy []conflict.TimeRange
	for _, pref := range preferred {
		entries, err := m.store.QueryIndex(models.EventFilter{
			UserID: ev.CreatedBy,
			From:   pref.Start,
			To:     pref.End,
		})
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if entry.ID == ev.ID {
				continue
			}
			busy = append(busy, conflict.TimeRange{Start: entry.Start, End: entry.End})
		}
	}
	return conflict.FindAlternativeSlots(ev.End.Sub(ev.Start), preferred, busy, blackout), nil
}
