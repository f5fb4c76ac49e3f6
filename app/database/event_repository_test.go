package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/lameiro/event-comb/app/event"
)

func newTestRepository(t *testing.T) *SQLEventRepository {
	t.Helper()

	db, err := NewConnection(filepath.Join(t.TempDir(), "test.sqlite3"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	if _, _, err := RunMigrations(db); err != nil {
		t.Fatal(err)
	}

	return NewEventRepository(db)
}

func testRecord(link, source string, init time.Time) *event.Record {
	end := init.Add(2 * time.Hour)
	return &event.Record{
		Title:       "Concierto de Rock",
		Link:        link,
		Source:      source,
		Price:       event.FreeOrUnavailable,
		Description: "Una noche de rock",
		Categories:  []string{"music"},
		InitDate:    &init,
		EndDate:     &end,
		InitDateISO: init.Format(time.RFC3339),
		EndDateISO:  end.Format(time.RFC3339),
		ScrapedAt:   time.Now(),
		IsValid:     true,
	}
}

func TestAppendAndQueryRange(t *testing.T) {
	repo := newTestRepository(t)

	init := time.Date(2024, 3, 16, 21, 0, 0, 0, time.UTC)
	stored := repo.Append([]*event.Record{
		testRecord("https://a.example/1", "town-hall", init),
		testRecord("https://a.example/2", "town-hall", init.AddDate(0, 0, 5)),
	})
	if stored != 2 {
		t.Fatalf("Expected 2 stored records, got %d", stored)
	}

	records, err := repo.QueryRange(
		time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC).Format(time.RFC3339),
		time.Date(2024, 3, 18, 0, 0, 0, 0, time.UTC).Format(time.RFC3339))
	if err != nil {
		t.Fatal(err)
	}

	if len(records) != 1 {
		t.Fatalf("Expected 1 record in range, got %d", len(records))
	}

	rec := records[0]
	if rec.Link != "https://a.example/1" {
		t.Errorf("Expected first record, got %s", rec.Link)
	}
	if !rec.IsValid {
		t.Error("Expected stored record to come back valid")
	}
	if rec.InitDate == nil || !rec.InitDate.Equal(init) {
		t.Errorf("Expected InitDate %v, got %v", init, rec.InitDate)
	}
	if rec.Price != event.FreeOrUnavailable {
		t.Errorf("Expected sentinel price, got %q", rec.Price)
	}
	if len(rec.Categories) != 1 || rec.Categories[0] != "music" {
		t.Errorf("Expected categories to round trip, got %v", rec.Categories)
	}
}

func TestAppendIsIdempotentPerLink(t *testing.T) {
	repo := newTestRepository(t)

	init := time.Date(2024, 3, 16, 21, 0, 0, 0, time.UTC)
	rec := testRecord("https://a.example/1", "town-hall", init)

	if stored := repo.Append([]*event.Record{rec}); stored != 1 {
		t.Fatalf("Expected 1 stored record, got %d", stored)
	}
	if stored := repo.Append([]*event.Record{rec}); stored != 0 {
		t.Errorf("Expected duplicate link to be skipped, got %d", stored)
	}

	count, err := repo.GetEventCount()
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("Expected 1 event in storage, got %d", count)
	}
}

func TestAppendRefusesInvalidRecords(t *testing.T) {
	repo := newTestRepository(t)

	invalid := &event.Record{
		Title:   "Sin Fecha",
		Link:    "https://a.example/1",
		Source:  "town-hall",
		IsValid: false,
	}

	if stored := repo.Append([]*event.Record{invalid}); stored != 0 {
		t.Errorf("Expected invalid record to be refused, got %d stored", stored)
	}

	count, err := repo.GetEventCount()
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("Expected empty storage, got %d", count)
	}
}

func TestLastScraped(t *testing.T) {
	repo := newTestRepository(t)

	init := time.Date(2024, 3, 16, 21, 0, 0, 0, time.UTC)
	rec := testRecord("https://a.example/1", "town-hall", init)
	repo.Append([]*event.Record{rec})

	ts, err := repo.LastScraped("https://a.example/1")
	if err != nil {
		t.Fatal(err)
	}
	if ts == nil {
		t.Fatal("Expected a scraped timestamp")
	}
	if time.Since(*ts) > time.Minute {
		t.Errorf("Expected a recent timestamp, got %v", ts)
	}

	ts, err = repo.LastScraped("https://a.example/unknown")
	if err != nil {
		t.Fatal(err)
	}
	if ts != nil {
		t.Errorf("Expected nil for unknown link, got %v", ts)
	}
}

func TestQueryRangeOrdersAcrossOffsetChanges(t *testing.T) {
	repo := newTestRepository(t)

	// Around the autumn clock change the local offset flips from +02:00 to
	// +01:00, so local RFC3339 strings stop sorting chronologically. The
	// CEST record below is the earlier instant (00:50Z) even though its
	// local wall clock reads later than the CET one (01:10Z).
	earlier := time.Date(2024, 10, 27, 2, 50, 0, 0, time.FixedZone("CEST", 2*3600))
	later := time.Date(2024, 10, 27, 2, 10, 0, 0, time.FixedZone("CET", 3600))

	repo.Append([]*event.Record{
		testRecord("https://a.example/cet", "town-hall", later),
		testRecord("https://a.example/cest", "town-hall", earlier),
	})

	records, err := repo.QueryRange(
		time.Date(2024, 10, 27, 0, 0, 0, 0, time.UTC).Format(time.RFC3339),
		time.Date(2024, 10, 28, 0, 0, 0, 0, time.UTC).Format(time.RFC3339))
	if err != nil {
		t.Fatal(err)
	}

	if len(records) != 2 {
		t.Fatalf("Expected both records in range, got %d", len(records))
	}
	if records[0].Link != "https://a.example/cest" {
		t.Errorf("Expected the earlier instant first, got %s", records[0].Link)
	}
	if records[1].Link != "https://a.example/cet" {
		t.Errorf("Expected the later instant second, got %s", records[1].Link)
	}

	// A bound between the two instants must split them.
	records, err = repo.QueryRange(
		time.Date(2024, 10, 27, 1, 0, 0, 0, time.UTC).Format(time.RFC3339),
		time.Date(2024, 10, 28, 0, 0, 0, 0, time.UTC).Format(time.RFC3339))
	if err != nil {
		t.Fatal(err)
	}

	if len(records) != 1 || records[0].Link != "https://a.example/cet" {
		t.Errorf("Expected only the record after the bound, got %v", records)
	}
}

func TestGetSourceCounts(t *testing.T) {
	repo := newTestRepository(t)

	init := time.Date(2024, 3, 16, 21, 0, 0, 0, time.UTC)
	repo.Append([]*event.Record{
		testRecord("https://a.example/1", "town-hall", init),
		testRecord("https://a.example/2", "town-hall", init.Add(time.Hour)),
		testRecord("https://b.example/1", "ticket-site", init),
	})

	counts, err := repo.GetSourceCounts()
	if err != nil {
		t.Fatal(err)
	}

	if counts["town-hall"] != 2 {
		t.Errorf("Expected 2 events for town-hall, got %d", counts["town-hall"])
	}
	if counts["ticket-site"] != 1 {
		t.Errorf("Expected 1 event for ticket-site, got %d", counts["ticket-site"])
	}
}
