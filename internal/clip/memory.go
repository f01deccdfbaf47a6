package clip

import (
	"context"
	"sort"
	"sync"
)

// Compile-time check that MemoryRepository implements Repository.
var _ Repository = (*MemoryRepository)(nil)

// MemoryRepository is an in-memory implementation of Repository.
// Nothing survives the process; there is no resumption across restarts.
type MemoryRepository struct {
	mu    sync.RWMutex
	clips map[string]*Clip
}

// NewMemoryRepository creates a new in-memory clip repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		clips: make(map[string]*Clip),
	}
}

// Save stores a clone to avoid external mutations.
func (r *MemoryRepository) Save(_ context.Context, c *Clip) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clips[c.ID] = c.Clone()
	return nil
}

// List returns clones ordered by clip number, then creation time.
func (r *MemoryRepository) List(_ context.Context) ([]*Clip, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*Clip, 0, len(r.clips))
	for _, c := range r.clips {
		result = append(result, c.Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Number != result[j].Number {
			return result[i].Number < result[j].Number
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}
