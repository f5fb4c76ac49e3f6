package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/lameiro/event-comb/app/event"
)

var _ EventRepository = (*SQLEventRepository)(nil)

// SQLEventRepository persists canonical event records in SQLite, keyed by
// link. Only valid records belong here; callers filter before appending.
type SQLEventRepository struct {
	db *DB
}

func NewEventRepository(db *DB) *SQLEventRepository {
	return &SQLEventRepository{db: db}
}

// Append inserts records one by one, skipping links already present.
// Individual insert failures are logged and skipped; a bad record never
// aborts the batch. Dates are stored as UTC RFC3339 so lexicographic
// order matches chronological order across local offset changes.
// Returns the number of newly stored records.
func (r *SQLEventRepository) Append(records []*event.Record) int {
	stored := 0
	for _, rec := range records {
		if !rec.IsValid || rec.InitDate == nil || rec.EndDate == nil {
			slog.Warn("Refusing to store invalid record", "link", rec.Link, "source", rec.Source)
			continue
		}

		categories, err := json.Marshal(rec.Categories)
		if err != nil {
			slog.Error("Failed to encode categories, skipping record", "link", rec.Link, "error", err)
			continue
		}

		res, err := r.db.Exec(`
			INSERT INTO events (
				link, title, price, description, image, source,
				location, categories,
				init_date_iso, end_date_iso, init_date_human, end_date_human,
				scraped_at_iso
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (link) DO NOTHING
		`, rec.Link, rec.Title, rec.Price, rec.Description, rec.Image, rec.Source,
			rec.Location, string(categories),
			rec.InitDate.UTC().Format(time.RFC3339),
			rec.EndDate.UTC().Format(time.RFC3339),
			rec.InitDateHuman, rec.EndDateHuman,
			rec.ScrapedAt.UTC().Format(time.RFC3339))
		if err != nil {
			slog.Error("Failed to store record", "link", rec.Link, "source", rec.Source, "error", err)
			continue
		}

		if n, err := res.RowsAffected(); err == nil && n > 0 {
			stored++
		}
	}
	return stored
}

// QueryRange returns records whose canonical start date falls inside
// [startISO, endISO]. Bounds must be UTC RFC3339; stored dates are UTC,
// so string comparison orders instants correctly even when the local
// zone changes offset inside the window.
func (r *SQLEventRepository) QueryRange(startISO, endISO string) ([]*event.Record, error) {
	rows, err := r.db.Query(`
		SELECT link, title, COALESCE(price, ''), COALESCE(description, ''),
		       COALESCE(image, ''), source,
		       COALESCE(location, ''), COALESCE(categories, '[]'),
		       init_date_iso, end_date_iso,
		       COALESCE(init_date_human, ''), COALESCE(end_date_human, ''),
		       scraped_at_iso
		FROM events
		WHERE init_date_iso >= ? AND init_date_iso <= ?
		ORDER BY init_date_iso ASC
	`, startISO, endISO)
	if err != nil {
		return nil, fmt.Errorf("failed to query events in range: %w", err)
	}
	defer rows.Close()

	var records []*event.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}

	return records, nil
}

// LastScraped returns the time a link was last stored, or nil when unknown.
// Adapters use it to skip recently revisited items.
func (r *SQLEventRepository) LastScraped(link string) (*time.Time, error) {
	var iso string
	err := r.db.QueryRow(`SELECT scraped_at_iso FROM events WHERE link = ?`, link).Scan(&iso)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up link: %w", err)
	}

	t, err := time.Parse(time.RFC3339, iso)
	if err != nil {
		return nil, fmt.Errorf("failed to parse scraped_at for %s: %w", link, err)
	}
	return &t, nil
}

func (r *SQLEventRepository) GetEventCount() (int, error) {
	var count int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM events`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return count, nil
}

func (r *SQLEventRepository) GetSourceCounts() (map[string]int, error) {
	rows, err := r.db.Query(`SELECT source, COUNT(*) FROM events GROUP BY source`)
	if err != nil {
		return nil, fmt.Errorf("failed to count events by source: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var source string
		var count int
		if err := rows.Scan(&source, &count); err != nil {
			return nil, fmt.Errorf("failed to scan source count: %w", err)
		}
		counts[source] = count
	}
	return counts, rows.Err()
}

func scanRecord(rows *sql.Rows) (*event.Record, error) {
	var rec event.Record
	var categoriesJSON, scrapedISO string

	err := rows.Scan(&rec.Link, &rec.Title, &rec.Price, &rec.Description,
		&rec.Image, &rec.Source,
		&rec.Location, &categoriesJSON,
		&rec.InitDateISO, &rec.EndDateISO,
		&rec.InitDateHuman, &rec.EndDateHuman,
		&scrapedISO)
	if err != nil {
		return nil, fmt.Errorf("failed to scan event row: %w", err)
	}

	if err := json.Unmarshal([]byte(categoriesJSON), &rec.Categories); err != nil {
		slog.Warn("Failed to decode categories", "link", rec.Link, "error", err)
	}

	// Stored dates are UTC; re-render the ISO strings in the configured
	// local zone for callers.
	if t, err := time.Parse(time.RFC3339, rec.InitDateISO); err == nil {
		local := t.In(time.Local)
		rec.InitDate = &local
		rec.InitDateISO = local.Format(time.RFC3339)
	}
	if t, err := time.Parse(time.RFC3339, rec.EndDateISO); err == nil {
		local := t.In(time.Local)
		rec.EndDate = &local
		rec.EndDateISO = local.Format(time.RFC3339)
	}
	if t, err := time.Parse(time.RFC3339, scrapedISO); err == nil {
		rec.ScrapedAt = t.In(time.Local)
	}

	// Only valid records are ever stored.
	rec.IsValid = rec.InitDate != nil

	return &rec, nil
}
