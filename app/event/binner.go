package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// ImageCache localizes a remote image and returns a handle usable by the
// perceptual duplicate check. Implemented by app/images.
type ImageCache interface {
	Materialize(ctx context.Context, remoteURL string) (string, error)
}

// Binner assigns validated records to the calendar days they span and
// deduplicates each day independently.
type Binner struct {
	clusterer *Clusterer
	images    ImageCache // nil disables image materialization

	now func() time.Time
}

func NewBinner(clusterer *Clusterer, images ImageCache) *Binner {
	return &Binner{
		clusterer: clusterer,
		images:    images,
		now:       time.Now,
	}
}

// Bin produces numDays buckets anchored at the start of the current day. A
// record lands in every bucket whose day it overlaps, so a multi-day event
// shows up on each day it spans. After image materialization the clusterer
// runs once per bucket; never across the whole window, which would conflate
// distinct occurrences of repeating events.
func (b *Binner) Bin(ctx context.Context, records []*Record, numDays int) []*DayBucket {
	buckets := b.generateBuckets(numDays)

	for _, bucket := range buckets {
		dayStart := bucket.Date
		dayEnd := dayStart.AddDate(0, 0, 1).Add(-time.Nanosecond)
		seen := make(map[string]bool)

		for _, rec := range records {
			if !rec.IsValid || rec.InitDate == nil || rec.EndDate == nil {
				continue
			}
			if seen[rec.Link] {
				continue
			}
			// Inclusive date-range overlap: started on or before the
			// day's end, ends on or after the day's start.
			if rec.EndDate.Before(dayStart) || rec.InitDate.After(dayEnd) {
				continue
			}
			seen[rec.Link] = true
			bucket.Events = append(bucket.Events, rec)
		}
	}

	b.materializeImages(ctx, buckets)

	for _, bucket := range buckets {
		bucket.Events = b.clusterer.Cluster(bucket.Events)
	}

	return buckets
}

func (b *Binner) generateBuckets(numDays int) []*DayBucket {
	now := b.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	buckets := make([]*DayBucket, 0, numDays)
	for i := 0; i < numDays; i++ {
		date := today.AddDate(0, 0, i)

		var label string
		switch i {
		case 0:
			label = "Today"
		case 1:
			label = "Tomorrow"
		default:
			label = fmt.Sprintf("%s %d", date.Weekday(), date.Day())
		}

		buckets = append(buckets, &DayBucket{
			Index: i,
			Date:  date,
			Label: label,
		})
	}

	return buckets
}

// materializeImages fetches each record's remote image once and attaches the
// local handle required by the perceptual duplicate check. Records shared
// across buckets are localized a single time; a failed fetch just leaves the
// record without image dedup.
func (b *Binner) materializeImages(ctx context.Context, buckets []*DayBucket) {
	if b.images == nil {
		return
	}

	for _, bucket := range buckets {
		for _, rec := range bucket.Events {
			if rec.Image == "" || rec.LocalImagePath != "" {
				continue
			}
			localPath, err := b.images.Materialize(ctx, rec.Image)
			if err != nil {
				slog.Warn("Failed to materialize event image",
					"link", rec.Link, "image", rec.Image, "error", err)
				continue
			}
			rec.LocalImagePath = localPath
		}
	}
}
