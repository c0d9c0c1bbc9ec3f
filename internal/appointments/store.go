package appointments

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store is the persistence boundary for appointment records. Subscribe
// delivers the full current set of records after every change, mirroring a
// live document-collection query; consumers re-derive display order from each
// snapshot rather than applying deltas.
type Store interface {
	Create(ctx context.Context, appt Appointment) (string, error)
	Delete(ctx context.Context, id string) error
	Snapshot(ctx context.Context) ([]Appointment, error)
	Subscribe(ctx context.Context) (<-chan []Appointment, func(), error)
}

// MemoryStore keeps appointments in process memory. It backs deployments with
// no database configured and doubles as the test store.
type MemoryStore struct {
	mu    sync.RWMutex
	appts map[string]Appointment
	subs  map[int]chan []Appointment
	next  int
	now   func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		appts: make(map[string]Appointment),
		subs:  make(map[int]chan []Appointment),
		now:   time.Now,
	}
}

// Create assigns an id and server timestamp, stores the record, and fans the
// new snapshot out to subscribers.
func (s *MemoryStore) Create(ctx context.Context, appt Appointment) (string, error) {
	s.mu.Lock()
	appt.ID = uuid.NewString()
	appt.RequestedAt = s.now().UTC().Format(time.RFC3339)
	s.appts[appt.ID] = appt
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.broadcast(snapshot)
	return appt.ID, nil
}

// Delete removes the record and fans the new snapshot out to subscribers.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	if _, ok := s.appts[id]; !ok {
		s.mu.Unlock()
		return ErrNotFound
	}
	delete(s.appts, id)
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.broadcast(snapshot)
	return nil
}

// Snapshot returns the full current set of records.
func (s *MemoryStore) Snapshot(ctx context.Context) ([]Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked(), nil
}

// Subscribe registers a snapshot channel. The current set is delivered first;
// the cancel func must be called to release the subscription.
func (s *MemoryStore) Subscribe(ctx context.Context) (<-chan []Appointment, func(), error) {
	ch := make(chan []Appointment, 8)

	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = ch
	initial := s.snapshotLocked()
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if sub, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub)
		}
		s.mu.Unlock()
	}
	return ch, cancel, nil
}

func (s *MemoryStore) snapshotLocked() []Appointment {
	out := make([]Appointment, 0, len(s.appts))
	for _, appt := range s.appts {
		out = append(out, appt)
	}
	return out
}

func (s *MemoryStore) broadcast(snapshot []Appointment) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subs {
		// Each subscriber gets its own copy; consumers sort in place.
		cp := make([]Appointment, len(snapshot))
		copy(cp, snapshot)
		select {
		case ch <- cp:
		default:
			// Slow subscriber: drop this snapshot, a newer one follows.
		}
	}
}
