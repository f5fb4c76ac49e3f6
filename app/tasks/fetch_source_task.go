package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lameiro/event-comb/app/database"
	"github.com/lameiro/event-comb/app/event"
	"github.com/lameiro/event-comb/app/sources"
)

// FetchSourceTask runs one source adapter end to end: fetch raw events,
// enrich, build canonical records, drop invalid ones, append to storage.
type FetchSourceTask struct {
	Task
	adapter   sources.Adapter
	enricher  sources.Enricher
	builder   *event.Builder
	eventRepo database.EventRepository
}

func NewFetchSourceTask(adapter sources.Adapter, enricher sources.Enricher,
	builder *event.Builder, eventRepo database.EventRepository) *FetchSourceTask {
	return &FetchSourceTask{
		Task:      NewTask(TaskTypeFetchSource, adapter.Name()),
		adapter:   adapter,
		enricher:  enricher,
		builder:   builder,
		eventRepo: eventRepo,
	}
}

func (t *FetchSourceTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	rawEvents, err := t.adapter.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch source: %w", err)
	}

	discarded := 0
	invalid := 0
	valid := make([]*event.Record, 0, len(rawEvents))

	for _, raw := range rawEvents {
		if err := t.enricher.Enrich(ctx, raw); err != nil {
			slog.Warn("Enrichment failed, continuing with raw fields",
				"source", t.SourceName, "link", raw["link"], "error", err)
		}

		rec, err := t.builder.Build(raw)
		if err != nil {
			var missing *event.MissingFieldError
			if errors.As(err, &missing) {
				slog.Warn("Discarding raw event", "source", t.SourceName,
					"link", raw["link"], "missing_field", missing.Field)
				discarded++
				continue
			}
			return fmt.Errorf("failed to build record: %w", err)
		}

		if !rec.IsValid {
			slog.Warn("Discarding record with unparseable date",
				"source", t.SourceName, "link", rec.Link, "init_date", fmt.Sprint(rec.InitDateRaw))
			invalid++
			continue
		}

		valid = append(valid, rec)
	}

	stored := t.eventRepo.Append(valid)

	slog.Info("Task completed",
		"type", "FetchSource",
		"source", t.SourceName,
		"duration", t.GetDuration(),
		"total", len(rawEvents),
		"discarded", discarded,
		"invalid", invalid,
		"stored", stored)

	return nil
}
