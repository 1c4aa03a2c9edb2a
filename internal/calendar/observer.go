package calendar

import (
	"context"
	"time"

	"famcal/internal/models"
)

// NotificationKind names an in-process observation emitted by the manager.
type NotificationKind string

const (
	NotifyEventAdded       NotificationKind = "eventAdded"
	NotifyEventUpdated     NotificationKind = "eventUpdated"
	NotifyEventRemoved     NotificationKind = "eventRemoved"
	NotifyConflictDetected NotificationKind = "conflictDetected"
)

// Notification is one observation. Delivery is synchronous, post-commit,
// at-least-once, and never persisted; UI and notification layers consume
// these outside the core.
type Notification struct {
	Kind      NotificationKind  `json:"kind"`
	Event     *models.Event     `json:"event,omitempty"`
	Conflicts []models.Conflict `json:"conflicts,omitempty"`
	At        time.Time         `json:"at"`
}

// Observer receives manager notifications in subscription order.
type Observer interface {
	Notify(ctx context.Context, n Notification)
}

// ObserverFunc adapts a plain function to the Observer interface.
type ObserverFunc func(ctx context.Context, n Notification)

func (f ObserverFunc) Notify(ctx context.Context, n Notification) { f(ctx, n) }
