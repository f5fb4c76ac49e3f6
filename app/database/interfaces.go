package database

import (
	"time"

	"github.com/lameiro/event-comb/app/event"
)

// EventRepository is the storage contract the core consumes. Append is
// best-effort and idempotent per link; read operations return records fresh
// for every publish run. QueryRange bounds are UTC RFC3339 strings.
type EventRepository interface {
	Append(records []*event.Record) int
	QueryRange(startISO, endISO string) ([]*event.Record, error)
	LastScraped(link string) (*time.Time, error)

	GetEventCount() (int, error)
	GetSourceCounts() (map[string]int, error)
}
