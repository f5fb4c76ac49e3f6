package event

import (
	"sync"
	"time"
)

// Snapshot holds the most recently published calendar. The publish task
// swaps in a fresh bucket list; the API reads whatever is current. Buckets
// are rebuilt from scratch on every publish run and never mutated after
// publishing.
type Snapshot struct {
	mu        sync.RWMutex
	buckets   []*DayBucket
	updatedAt time.Time
}

func NewSnapshot() *Snapshot {
	return &Snapshot{}
}

func (s *Snapshot) Publish(buckets []*DayBucket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buckets = buckets
	s.updatedAt = time.Now()
}

func (s *Snapshot) Get() ([]*DayBucket, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.buckets, s.updatedAt
}
