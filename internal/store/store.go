// Package store implements the encrypted transactional event store: sealed
// per-event record files, a plaintext metadata index, single-call
// transactional writes with rollback, and retention-capped backups with
// automatic recovery.
//
// On-disk layout under the store root:
//
//	events/<id>.event   sealed record (12-byte nonce || AES-GCM ciphertext)
//	event-index.json    plaintext id -> IndexEntry map
//	backups/<id>_<ts>[_<reason>].backup
//	store.salt          per-store key-derivation salt
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"famcal/internal/common"
	"famcal/internal/cryptox"
	"famcal/internal/logging"
	"famcal/internal/models"
)

const (
	eventExt  = ".event"
	backupExt = ".backup"

	eventsDirName = "events"
	backupDirName = "backups"
	indexFileName = "event-index.json"
	saltFileName  = "store.salt"
)

// Store is the encrypted record store. It must be initialized with a
// passphrase before use; any other call on an uninitialized store returns
// common.ErrNotInitialized.
type Store struct {
	root      string
	eventsDir string

	cipher  *cryptox.Cipher
	index   *Index
	backups *BackupManager
	log     logging.Logger

	initialized bool
}

func New(root string, log logging.Logger) *Store {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Store{
		root:      root,
		eventsDir: filepath.Join(root, eventsDirName),
		index:     NewIndex(filepath.Join(root, indexFileName), log),
		backups:   NewBackupManager(filepath.Join(root, backupDirName), log),
		log:       log,
	}
}

// Initialize derives the store key from the passphrase and the per-store
// salt (created on first use), then eagerly loads the index.
func (s *Store) Initialize(ctx context.Context, passphrase []byte) error {
	if err := os.MkdirAll(s.eventsDir, 0o700); err != nil {
		return fmt.Errorf("%w: creating store dirs: %v", common.ErrStorage, err)
	}

	salt, err := s.loadOrCreateSalt()
	if err != nil {
		return err
	}

	cipher, err := cryptox.NewCipher(cryptox.DeriveKey(passphrase, salt))
	if err != nil {
		return fmt.Errorf("%w: building cipher: %v", common.ErrStorage, err)
	}
	s.cipher = cipher

	if err := s.index.Load(ctx); err != nil {
		return fmt.Errorf("%w: %v", common.ErrStorage, err)
	}

	s.initialized = true
	s.log.Info(ctx, "store initialized", "root", s.root, "events", s.index.Len())
	return nil
}

func (s *Store) loadOrCreateSalt() ([]byte, error) {
	path := filepath.Join(s.root, saltFileName)
	salt, err := os.ReadFile(path)
	if err == nil {
		if len(salt) != cryptox.SaltSize {
			return nil, fmt.Errorf("%w: salt file %s has wrong size", common.ErrStorage, path)
		}
		return salt, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: reading salt: %v", common.ErrStorage, err)
	}
	salt, err = cryptox.NewSalt()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStorage, err)
	}
	if err := os.WriteFile(path, salt, 0o600); err != nil {
		return nil, fmt.Errorf("%w: persisting salt: %v", common.ErrStorage, err)
	}
	return salt, nil
}

// EventPath returns the primary record path for an event id.
func (s *Store) EventPath(id string) string {
	return filepath.Join(s.eventsDir, id+eventExt)
}

// Save seals the event and writes the record file plus the updated index in
// one transaction. A post-commit snapshot goes to the backup set.
func (s *Store) Save(ctx context.Context, ev *models.Event) error {
	if !s.initialized {
		return common.ErrNotInitialized
	}

	sealed, err := s.encode(ev)
	if err != nil {
		return err
	}

	path := s.EventPath(ev.ID)
	entry := ev.IndexEntry(path)

	indexData, err := s.index.EncodeWith(&entry, "")
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrStorage, err)
	}

	txn := NewTransaction(s.log)
	if err := txn.Write(path, sealed); err != nil {
		return fmt.Errorf("%w: %v", common.ErrStorage, err)
	}
	if err := txn.Write(s.index.path, indexData); err != nil {
		return fmt.Errorf("%w: %v", common.ErrStorage, err)
	}
	if err := txn.Commit(ctx); err != nil {
		return fmt.Errorf("%w: saving event %s: %v", common.ErrStorage, ev.ID, err)
	}
	s.index.Apply(&entry, "")

	// Best-effort: backup failure never fails the save.
	s.backups.Create(ctx, ev.ID, sealed, "")
	s.backups.CleanupOld(ctx, ev.ID)

	s.log.Debug(ctx, "event saved", "id", ev.ID, "path", path)
	return nil
}

// Get reads and opens the primary record. A missing, unreadable or
// undecryptable primary triggers backup recovery; only when that also fails
// does Get report an error (ErrNotFound for unknown ids).
func (s *Store) Get(ctx context.Context, id string) (*models.Event, error) {
	if !s.initialized {
		return nil, common.ErrNotInitialized
	}

	path := s.EventPath(id)
	if entry, ok := s.index.Get(id); ok && entry.FilePath != "" {
		path = entry.FilePath
	}

	sealed, err := os.ReadFile(path)
	if err == nil {
		ev, derr := s.decode(sealed)
		if derr == nil {
			return ev, nil
		}
		s.log.Warn(ctx, "primary record unreadable, trying backups", "id", id, "err", derr)
	} else if os.IsNotExist(err) {
		if _, ok := s.index.Get(id); !ok {
			return nil, fmt.Errorf("event %s: %w", id, common.ErrNotFound)
		}
		s.log.Warn(ctx, "primary record missing, trying backups", "id", id)
	} else {
		s.log.Warn(ctx, "primary record read failed, trying backups", "id", id, "err", err)
	}

	if ev := s.backups.Recover(ctx, id, s.decode); ev != nil {
		return ev, nil
	}
	return nil, fmt.Errorf("%w: event %s unreadable and no usable backup", common.ErrStorage, id)
}

// Delete backs up the current record, then removes the record file and its
// index entry in one transaction. Unknown ids return ErrNotFound.
func (s *Store) Delete(ctx context.Context, id string) error {
	if !s.initialized {
		return common.ErrNotInitialized
	}

	entry, ok := s.index.Get(id)
	if !ok {
		return fmt.Errorf("event %s: %w", id, common.ErrNotFound)
	}
	path := entry.FilePath
	if path == "" {
		path = s.EventPath(id)
	}

	// Pre-delete backup of whatever is currently on disk.
	if sealed, err := os.ReadFile(path); err == nil {
		s.backups.Create(ctx, id, sealed, "pre-delete")
		s.backups.CleanupOld(ctx, id)
	}

	indexData, err := s.index.EncodeWith(nil, id)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrStorage, err)
	}

	txn := NewTransaction(s.log)
	if err := txn.Delete(path); err != nil {
		return fmt.Errorf("%w: %v", common.ErrStorage, err)
	}
	if err := txn.Write(s.index.path, indexData); err != nil {
		return fmt.Errorf("%w: %v", common.ErrStorage, err)
	}
	if err := txn.Commit(ctx); err != nil {
		return fmt.Errorf("%w: deleting event %s: %v", common.ErrStorage, id, err)
	}
	s.index.Apply(nil, id)

	s.log.Debug(ctx, "event deleted", "id", id, "path", path)
	return nil
}

// Query filters the index, then decrypts each matching record. An entry
// whose record cannot be opened is skipped with a warning instead of
// aborting the whole query.
func (s *Store) Query(ctx context.Context, f models.EventFilter) ([]*models.Event, error) {
	if !s.initialized {
		return nil, common.ErrNotInitialized
	}

	entries := s.index.Query(f)
	out := make([]*models.Event, 0, len(entries))
	for _, entry := range entries {
		sealed, err := os.ReadFile(entry.FilePath)
		if err != nil {
			s.log.Warn(ctx, "skipping unreadable record in query", "id", entry.ID, "err", err)
			continue
		}
		ev, err := s.decode(sealed)
		if err != nil {
			s.log.Warn(ctx, "skipping undecryptable record in query", "id", entry.ID, "err", err)
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

// QueryIndex filters the index without touching any encrypted record.
func (s *Store) QueryIndex(f models.EventFilter) ([]models.IndexEntry, error) {
	if !s.initialized {
		return nil, common.ErrNotInitialized
	}
	return s.index.Query(f), nil
}

// Has reports whether the id is indexed, without decryption.
func (s *Store) Has(id string) bool {
	_, ok := s.index.Get(id)
	return ok
}

func (s *Store) encode(ev *models.Event) ([]byte, error) {
	plain, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("%w: serializing event %s: %v", common.ErrStorage, ev.ID, err)
	}
	sealed, err := s.cipher.Seal(plain)
	if err != nil {
		return nil, fmt.Errorf("%w: encrypting event %s: %v", common.ErrStorage, ev.ID, err)
	}
	return sealed, nil
}

func (s *Store) decode(sealed []byte) (*models.Event, error) {
	plain, err := s.cipher.Open(sealed)
	if err != nil {
		return nil, err
	}
	var ev models.Event
	if err := json.Unmarshal(plain, &ev); err != nil {
		return nil, fmt.Errorf("deserializing event: %w", err)
	}
	return &ev, nil
}
