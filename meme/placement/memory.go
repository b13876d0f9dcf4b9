package placement

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an append-only placement log kept in process memory. Used in
// dry mode and by tests.
type MemoryStore struct {
	Now func() time.Time

	mu    sync.RWMutex
	items []Placement
	index map[string]int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		Now:   time.Now,
		index: map[string]int{},
	}
}

func (m *MemoryStore) Insert(ctx context.Context, d Draft) (Placement, error) {
	if err := ctx.Err(); err != nil {
		return Placement{}, err
	}
	if err := d.Validate(); err != nil {
		return Placement{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	p := Placement{
		ID:        NewID(),
		X:         d.X,
		Y:         d.Y,
		ImageURL:  d.ImageURL,
		CreatedAt: m.Now().UTC(),
	}
	m.index[p.ID] = len(m.items)
	m.items = append(m.items, p)
	return p, nil
}

func (m *MemoryStore) List(ctx context.Context, req PageRequest) (Page, error) {
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}
	req = req.Normalize()

	m.mu.RLock()
	defer m.mu.RUnlock()

	start := 0
	if req.After != "" {
		i, ok := m.index[req.After]
		if !ok {
			return Page{Placements: []Placement{}}, nil
		}
		start = i + 1
	}
	end := start + req.Limit
	if end > len(m.items) {
		end = len(m.items)
	}

	page := Page{Placements: append([]Placement{}, m.items[start:end]...)}
	if end < len(m.items) && len(page.Placements) > 0 {
		page.Next = page.Placements[len(page.Placements)-1].ID
	}
	return page, nil
}

// Get returns a single placement, or nil when id is unknown.
func (m *MemoryStore) Get(ctx context.Context, id string) (*Placement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	i, ok := m.index[id]
	if !ok {
		return nil, nil
	}
	p := m.items[i]
	return &p, nil
}

func (m *MemoryStore) ListAll(ctx context.Context) ([]Placement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Placement{}, m.items...), nil
}
