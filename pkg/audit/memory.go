package audit

import (
	"context"
	"sort"
	"sync"
	"time"
)

// BackendMemory names the in-memory store.
const BackendMemory = "memory"

// MemoryStore keeps records in a map. Used for tests and for deployments
// that only want `aiguard audit list` against a live process.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
	closed  bool
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*Record)}
}

// Save stores a copy of record.
func (m *MemoryStore) Save(ctx context.Context, record *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return NewStorageError(BackendMemory, "save", ErrClosed)
	}
	copied := *record
	m.records[record.ID] = &copied
	return nil
}

// List returns copies of the matching records, newest first.
func (m *MemoryStore) List(ctx context.Context, filter Filter) ([]*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, NewStorageError(BackendMemory, "list", ErrClosed)
	}

	results := make([]*Record, 0)
	for _, record := range m.records {
		if filter.matches(record) {
			copied := *record
			results = append(results, &copied)
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Timestamp.Equal(results[j].Timestamp) {
			return results[i].ID > results[j].ID
		}
		return results[i].Timestamp.After(results[j].Timestamp)
	})

	if limit := filter.limit(); len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Prune deletes records older than before.
func (m *MemoryStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, NewStorageError(BackendMemory, "prune", ErrClosed)
	}

	var deleted int64
	for id, record := range m.records {
		if record.Timestamp.Before(before) {
			delete(m.records, id)
			deleted++
		}
	}
	return deleted, nil
}

// Ping fails once the store is closed.
func (m *MemoryStore) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return NewStorageError(BackendMemory, "ping", ErrClosed)
	}
	return nil
}

// Close drops all records.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.records = nil
	return nil
}
