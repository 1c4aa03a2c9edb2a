package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"famcal/internal/logging"
	"famcal/internal/models"
)

// Index is the in-memory projection of event metadata, mirrored to a single
// plaintext JSON file. The whole file is rewritten on every mutation, which
// keeps the format trivial and is fine up to the ~10^4 events a family
// calendar sees.
type Index struct {
	path    string
	entries map[string]models.IndexEntry
	log     logging.Logger
}

func NewIndex(path string, log logging.Logger) *Index {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Index{
		path:    path,
		entries: make(map[string]models.IndexEntry),
		log:     log,
	}
}

// Load reads the index file eagerly. A missing file means an empty index,
// never an error.
func (ix *Index) Load(ctx context.Context) error {
	data, err := os.ReadFile(ix.path)
	if os.IsNotExist(err) {
		ix.log.Debug(ctx, "index file absent, starting empty", "path", ix.path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading index: %w", err)
	}
	entries := make(map[string]models.IndexEntry)
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parsing index: %w", err)
	}
	ix.entries = entries
	ix.log.Debug(ctx, "index loaded", "path", ix.path, "entries", len(entries))
	return nil
}

// Get returns the entry for id, if present.
func (ix *Index) Get(id string) (models.IndexEntry, bool) {
	e, ok := ix.entries[id]
	return e, ok
}

// Len reports the number of indexed events.
func (ix *Index) Len() int { return len(ix.entries) }

// EncodeWith serializes the index as it will look after applying the given
// mutation, without mutating the in-memory map. The store writes these bytes
// inside the same transaction as the event file, then calls Apply once the
// commit succeeded.
func (ix *Index) EncodeWith(put *models.IndexEntry, removeID string) ([]byte, error) {
	next := make(map[string]models.IndexEntry, len(ix.entries)+1)
	for id, e := range ix.entries {
		next[id] = e
	}
	if removeID != "" {
		delete(next, removeID)
	}
	if put != nil {
		next[put.ID] = *put
	}
	data, err := json.MarshalIndent(next, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("serializing index: %w", err)
	}
	return data, nil
}

// Apply performs the mutation previously encoded with EncodeWith on the
// in-memory map.
func (ix *Index) Apply(put *models.IndexEntry, removeID string) {
	if removeID != "" {
		delete(ix.entries, removeID)
	}
	if put != nil {
		ix.entries[put.ID] = *put
	}
}

// Query returns the entries matching the filter, ordered by start time and
// then by id so repeated calls without intervening mutation are identical.
func (ix *Index) Query(f models.EventFilter) []models.IndexEntry {
	var out []models.IndexEntry
	for _, e := range ix.entries {
		if f.Matches(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
