package quota

import (
	"context"
	"sync"
	"time"
)

// DefaultRetention bounds how long idle records are kept.
const DefaultRetention = 7 * 24 * time.Hour

type memoryEntry struct {
	rec      Record
	lastSeen time.Time
}

// MemoryStore keeps records in process memory. Counters are lost on restart.
type MemoryStore struct {
	mu        sync.Mutex
	entries   map[string]memoryEntry
	retention time.Duration
	now       func() time.Time
}

// NewMemoryStore returns a store that drops records idle for longer than
// retention whenever a record is written.
func NewMemoryStore(retention time.Duration, now func() time.Time) *MemoryStore {
	if retention <= 0 {
		retention = DefaultRetention
	}
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		entries:   make(map[string]memoryEntry),
		retention: retention,
		now:       now,
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) (Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	return e.rec, ok, nil
}

func (s *MemoryStore) Put(_ context.Context, key string, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.pruneLocked(now)
	s.entries[key] = memoryEntry{rec: rec, lastSeen: now}
	return nil
}

// Len reports the number of retained records.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *MemoryStore) pruneLocked(now time.Time) {
	cutoff := now.Add(-s.retention)
	for k, e := range s.entries {
		if e.lastSeen.Before(cutoff) {
			delete(s.entries, k)
		}
	}
}
