package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/claude/nextrep/internal/models"
)

// MemoryStore keeps records in insertion order in memory.
type MemoryStore struct {
	mu      sync.Mutex
	order   []string
	records map[string]models.Workout
	feed    feed
}

// NewMemoryStore returns a store holding the given records.
func NewMemoryStore(seed ...models.Workout) *MemoryStore {
	s := &MemoryStore{
		records: make(map[string]models.Workout),
		feed:    newFeed(),
	}
	for _, w := range seed {
		s.put(w)
	}
	s.publish()
	return s
}

// ObserveAll implements Store.
func (s *MemoryStore) ObserveAll(ctx context.Context) (<-chan []models.Workout, error) {
	return s.feed.observe(ctx)
}

// Upsert implements Store.
func (s *MemoryStore) Upsert(ctx context.Context, w models.Workout) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(w)
	s.publish()
	return nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(ctx context.Context, w models.Workout) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[w.ID]; !ok {
		return fmt.Errorf("deleting workout %s: %w", w.ID, models.ErrNotFound)
	}
	delete(s.records, w.ID)
	for i, id := range s.order {
		if id == w.ID {
			s.order = append(s.order[:i:i], s.order[i+1:]...)
			break
		}
	}
	s.publish()
	return nil
}

func (s *MemoryStore) put(w models.Workout) {
	if _, ok := s.records[w.ID]; !ok {
		s.order = append(s.order, w.ID)
	}
	s.records[w.ID] = w.Clone()
}

// publish must be called with s.mu held.
func (s *MemoryStore) publish() {
	snapshot := make([]models.Workout, 0, len(s.order))
	for _, id := range s.order {
		snapshot = append(snapshot, s.records[id])
	}
	s.feed.publish(snapshot)
}
