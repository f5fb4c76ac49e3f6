package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lameiro/event-comb/app/database"
	"github.com/lameiro/event-comb/app/event"
)

// PublishCalendarTask rebuilds the day-bucketed calendar from storage and
// swaps it into the published snapshot. The query window reaches back as far
// as it reaches forward so multi-day events that started before today still
// land in their remaining buckets.
type PublishCalendarTask struct {
	Task
	eventRepo  database.EventRepository
	binner     *event.Binner
	snapshot   *event.Snapshot
	windowDays int
}

func NewPublishCalendarTask(eventRepo database.EventRepository, binner *event.Binner,
	snapshot *event.Snapshot, windowDays int) *PublishCalendarTask {
	return &PublishCalendarTask{
		Task:       NewTask(TaskTypePublishCalendar, ""),
		eventRepo:  eventRepo,
		binner:     binner,
		snapshot:   snapshot,
		windowDays: windowDays,
	}
}

func (t *PublishCalendarTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	start := today.AddDate(0, 0, -t.windowDays)
	end := today.AddDate(0, 0, t.windowDays)

	records, err := t.eventRepo.QueryRange(
		start.UTC().Format(time.RFC3339), end.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to query events for window: %w", err)
	}

	buckets := t.binner.Bin(ctx, records, t.windowDays)
	t.snapshot.Publish(buckets)

	published := 0
	for _, bucket := range buckets {
		published += len(bucket.Events)
	}

	slog.Info("Task completed",
		"type", "PublishCalendar",
		"duration", t.GetDuration(),
		"window_days", t.windowDays,
		"records", len(records),
		"published", published)

	return nil
}
