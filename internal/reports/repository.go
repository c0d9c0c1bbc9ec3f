package reports

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository stores reports. List returns newest first.
type Repository interface {
	Create(ctx context.Context, report Report) (Report, error)
	Get(ctx context.Context, id string) (Report, error)
	List(ctx context.Context) ([]Report, error)
}

// MemoryRepository is an in-memory Repository for local development and
// tests.
type MemoryRepository struct {
	mu      sync.RWMutex
	reports map[string]Report
	now     func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		reports: make(map[string]Report),
		now:     time.Now,
	}
}

func (r *MemoryRepository) Create(ctx context.Context, report Report) (Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	report.ID = uuid.NewString()
	report.Date = r.now().UTC()
	if report.IconName == "" {
		report.IconName = "LineChart"
	}
	r.reports[report.ID] = report
	return report, nil
}

func (r *MemoryRepository) Get(ctx context.Context, id string) (Report, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	report, ok := r.reports[id]
	if !ok {
		return Report{}, ErrNotFound
	}
	return report, nil
}

func (r *MemoryRepository) List(ctx context.Context) ([]Report, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Report, 0, len(r.reports))
	for _, report := range r.reports {
		out = append(out, report)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date)
	})
	return out, nil
}
