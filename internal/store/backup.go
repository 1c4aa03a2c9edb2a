package store

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"famcal/internal/logging"
	"famcal/internal/models"
)

// maxBackupsPerEvent caps retained snapshots per event id; the oldest are
// evicted first.
const maxBackupsPerEvent = 10

// Fixed-width so the lexicographic filename order equals chronological order.
const backupTimeLayout = "2006-01-02T15-04-05.000000000Z"

// BackupManager keeps timestamped encrypted snapshots of event records.
//
// Backups are best-effort: Create and CleanupOld log failure and return,
// because a failed backup must never fail the caller's primary operation.
type BackupManager struct {
	dir string
	log logging.Logger
	now func() time.Time
}

func NewBackupManager(dir string, log logging.Logger) *BackupManager {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &BackupManager{dir: dir, log: log, now: time.Now}
}

// Create writes a snapshot of the given sealed record. The optional reason
// becomes a filename suffix (e.g. "pre-delete").
func (m *BackupManager) Create(ctx context.Context, eventID string, sealed []byte, reason string) {
	name := eventID + "_" + m.now().UTC().Format(backupTimeLayout)
	if reason != "" {
		name += "_" + sanitizeReason(reason)
	}
	name += backupExt

	if err := os.MkdirAll(m.dir, 0o700); err != nil {
		m.log.Warn(ctx, "backup dir create failed", "event_id", eventID, "err", err)
		return
	}
	path := filepath.Join(m.dir, name)
	if err := os.WriteFile(path, sealed, 0o600); err != nil {
		m.log.Warn(ctx, "backup write failed", "event_id", eventID, "path", path, "err", err)
		return
	}
	m.log.Debug(ctx, "backup created", "event_id", eventID, "path", path)
}

// CleanupOld deletes all but the maxBackupsPerEvent most recent snapshots
// for the event id.
func (m *BackupManager) CleanupOld(ctx context.Context, eventID string) {
	names, err := m.list(eventID)
	if err != nil {
		m.log.Warn(ctx, "backup cleanup listing failed", "event_id", eventID, "err", err)
		return
	}
	for _, name := range names[min(len(names), maxBackupsPerEvent):] {
		path := filepath.Join(m.dir, name)
		if err := os.Remove(path); err != nil {
			m.log.Warn(ctx, "backup cleanup failed", "event_id", eventID, "path", path, "err", err)
		}
	}
}

// Recover walks the event's snapshots newest-first and returns the first one
// that decode can turn back into an event, or nil if none can.
func (m *BackupManager) Recover(ctx context.Context, eventID string, decode func([]byte) (*models.Event, error)) *models.Event {
	names, err := m.list(eventID)
	if err != nil {
		m.log.Warn(ctx, "backup recovery listing failed", "event_id", eventID, "err", err)
		return nil
	}
	for _, name := range names {
		path := filepath.Join(m.dir, name)
		sealed, err := os.ReadFile(path)
		if err != nil {
			m.log.Warn(ctx, "backup unreadable", "event_id", eventID, "path", path, "err", err)
			continue
		}
		ev, err := decode(sealed)
		if err != nil {
			m.log.Warn(ctx, "backup undecodable", "event_id", eventID, "path", path, "err", err)
			continue
		}
		m.log.Info(ctx, "event recovered from backup", "event_id", eventID, "path", path)
		return ev
	}
	return nil
}

// list returns the event's backup filenames sorted newest first.
func (m *BackupManager) list(eventID string) ([]string, error) {
	entries, err := os.ReadDir(m.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	prefix := eventID + "_"
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, backupExt) {
			names = append(names, name)
		}
	}
	// ISO timestamps order lexicographically; reverse for newest-first.
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

func sanitizeReason(reason string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		default:
			return '-'
		}
	}, reason)
}
