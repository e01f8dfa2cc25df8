package repository

import (
	"context"
	"errors"
	"sort"
	"sync"

	"palm-reader/internal/domain"
)

// Memory is a process-local history store used when no table is configured.
type Memory struct {
	mu      sync.RWMutex
	entries []domain.HistoryEntry
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Append(_ context.Context, entry domain.HistoryEntry) error {
	if entry.ID == "" {
		return errors.New("repository: Append: entry id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.ID == entry.ID {
			return errors.New("repository: Append: entry already exists")
		}
	}
	m.entries = append(m.entries, entry)
	sort.SliceStable(m.entries, func(i, j int) bool {
		return m.entries[i].Date.After(m.entries[j].Date)
	})
	return nil
}

// Load returns up to limit entries, newest first.
func (m *Memory) Load(_ context.Context, limit int) ([]domain.HistoryEntry, error) {
	if limit <= 0 {
		return nil, errors.New("repository: Load: limit must be positive")
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := min(limit, len(m.entries))
	out := make([]domain.HistoryEntry, n)
	copy(out, m.entries[:n])
	return out, nil
}
