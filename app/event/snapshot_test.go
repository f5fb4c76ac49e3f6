package event

import (
	"testing"
	"time"
)

func TestSnapshotPublishAndGet(t *testing.T) {
	s := NewSnapshot()

	buckets, updatedAt := s.Get()
	if buckets != nil {
		t.Error("Expected no buckets before first publish")
	}
	if !updatedAt.IsZero() {
		t.Error("Expected zero timestamp before first publish")
	}

	published := []*DayBucket{{Index: 0, Label: "Today"}}
	s.Publish(published)

	buckets, updatedAt = s.Get()
	if len(buckets) != 1 || buckets[0].Label != "Today" {
		t.Errorf("Expected published buckets back, got %v", buckets)
	}
	if time.Since(updatedAt) > time.Minute {
		t.Errorf("Expected a fresh timestamp, got %v", updatedAt)
	}
}
