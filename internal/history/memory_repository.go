package history

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository stores build runs in-memory.
type MemoryRepository struct {
	mu   sync.RWMutex
	runs []Run
	now  func() time.Time
}

// NewMemoryRepository constructs an in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{now: time.Now}
}

func (r *MemoryRepository) Record(_ context.Context, run Run) (Run, error) {
	run = prepare(run, r.now)
	r.mu.Lock()
	r.runs = append(r.runs, run)
	r.mu.Unlock()
	return run, nil
}

func (r *MemoryRepository) Get(_ context.Context, id uuid.UUID) (Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, run := range r.runs {
		if run.ID == id {
			return run, nil
		}
	}
	return Run{}, ErrRunNotFound
}

func (r *MemoryRepository) Recent(_ context.Context, limit int) ([]Run, error) {
	r.mu.RLock()
	sorted := r.sortedLocked()
	r.mu.RUnlock()
	limit = normalizeLimit(limit)
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted, nil
}

func (r *MemoryRepository) Prune(_ context.Context, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	sorted := r.sortedLocked()
	if len(sorted) <= keep {
		return 0, nil
	}
	removed := len(sorted) - keep
	r.runs = append([]Run(nil), sorted[:keep]...)
	return removed, nil
}

func (r *MemoryRepository) sortedLocked() []Run {
	sorted := append([]Run(nil), r.runs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].StartedAt.Equal(sorted[j].StartedAt) {
			return sorted[i].ID.String() < sorted[j].ID.String()
		}
		return sorted[i].StartedAt.After(sorted[j].StartedAt)
	})
	return sorted
}

var _ Repository = (*MemoryRepository)(nil)
