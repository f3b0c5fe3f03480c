package cache

import (
	"context"
	"sync"
)

// MemoryStore keeps entries in process memory. Used by tests and by
// short-lived CLI runs that should not touch disk.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[Key]Entry
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[Key]Entry)}
}

func (s *MemoryStore) Driver() Driver { return DriverMemory }

func (s *MemoryStore) Read(_ context.Context, key Key) (Entry, bool, error) {
	if err := key.Validate(); err != nil {
		return Entry{}, false, err
	}

	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return Entry{}, false, nil
	}
	e.Data = cloneBytes(e.Data)
	return e, true, nil
}

func (s *MemoryStore) Write(_ context.Context, entry Entry) error {
	if err := entry.Key.Validate(); err != nil {
		return err
	}
	entry.Data = cloneBytes(entry.Data)

	s.mu.Lock()
	s.entries[entry.Key] = entry
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key Key) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[key]
	delete(s.entries, key)
	return ok, nil
}

func (s *MemoryStore) List(_ context.Context) ([]EntryInfo, error) {
	s.mu.RLock()
	infos := make([]EntryInfo, 0, len(s.entries))
	for k, e := range s.entries {
		infos = append(infos, EntryInfo{Key: k, Size: int64(len(e.Data)), StoredAt: e.StoredAt})
	}
	s.mu.RUnlock()

	sortInfos(infos)
	return infos, nil
}

func (s *MemoryStore) Close() error { return nil }

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
