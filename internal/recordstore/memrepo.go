package recordstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/park285/cheese-replay/internal/domain"
)

// memrepo is the in-memory Repository used when no DATABASE_URL is configured.
type memrepo struct {
	mu      sync.RWMutex
	records map[string]domain.GameRecord
	seq     map[string]int64 // insertion order for stable Recent ties
	next    int64
	now     func() time.Time
}

func NewMemoryRepository() Repository {
	return &memrepo{
		records: make(map[string]domain.GameRecord),
		seq:     make(map[string]int64),
		now:     time.Now,
	}
}

func (m *memrepo) Get(ctx context.Context, id string) (*domain.GameRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[strings.TrimSpace(id)]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (m *memrepo) Recent(ctx context.Context, limit int) ([]domain.GameRecord, error) {
	m.mu.RLock()
	items := make([]domain.GameRecord, 0, len(m.records))
	for _, r := range m.records {
		items = append(items, r)
	}
	seq := make(map[string]int64, len(m.seq))
	for k, v := range m.seq {
		seq[k] = v
	}
	m.mu.RUnlock()

	// EndedAt desc, then latest insert first
	sort.Slice(items, func(i, j int) bool {
		if !items[i].EndedAt.Equal(items[j].EndedAt) {
			return items[i].EndedAt.After(items[j].EndedAt)
		}
		return seq[items[i].ID] > seq[items[j].ID]
	})
	if limit = clampLimit(limit); len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (m *memrepo) Save(ctx context.Context, rec *domain.GameRecord) (string, error) {
	out, err := prepare(rec, m.now())
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.records[out.ID]; exists {
		return "", ErrDuplicate
	}
	m.next++
	m.records[out.ID] = out
	m.seq[out.ID] = m.next
	return out.ID, nil
}
