package share

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps snapshots in process memory. Nothing survives a restart.
type MemoryStore struct {
	mu      sync.RWMutex
	seq     int64
	entries map[string]memoryEntry
}

type memoryEntry struct {
	snapshot Snapshot
	seq      int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memoryEntry)}
}

func (m *MemoryStore) SlugExists(_ context.Context, slug string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.entries[slug]
	return ok, nil
}

func (m *MemoryStore) InsertShare(_ context.Context, snapshot Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[snapshot.Slug]; ok {
		return ErrSlugTaken
	}
	m.seq++
	m.entries[snapshot.Slug] = memoryEntry{snapshot: snapshot.clone(), seq: m.seq}
	return nil
}

func (m *MemoryStore) GetShare(_ context.Context, slug string) (Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.entries[slug]
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	return entry.snapshot.clone(), nil
}

func (m *MemoryStore) ListShares(_ context.Context, opts ListOptions) ([]Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ordered := make([]memoryEntry, 0, len(m.entries))
	for _, entry := range m.entries {
		ordered = append(ordered, entry)
	}
	sort.Slice(ordered, func(i, j int) bool { return newerThan(ordered[i], ordered[j]) })

	start := 0
	if opts.Before != "" {
		cursor, ok := m.entries[opts.Before]
		if !ok {
			return nil, ErrInvalidCursor
		}
		for start < len(ordered) && !newerThan(cursor, ordered[start]) {
			start++
		}
	}

	limit := NormalizeLimit(opts.Limit)
	out := make([]Snapshot, 0, min(limit, len(ordered)-start))
	for _, entry := range ordered[start:] {
		if len(out) == limit {
			break
		}
		out = append(out, entry.snapshot.clone())
	}
	return out, nil
}

// Len reports the number of stored snapshots.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func newerThan(a, b memoryEntry) bool {
	if !a.snapshot.CreatedAt.Equal(b.snapshot.CreatedAt) {
		return a.snapshot.CreatedAt.After(b.snapshot.CreatedAt)
	}
	return a.seq > b.seq
}
