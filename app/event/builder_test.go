package event

import (
	"errors"
	"testing"
	"time"
)

func TestBuilderMandatoryFields(t *testing.T) {
	b := NewBuilder()

	base := map[string]any{
		"title":    "Concierto de Rock",
		"link":     "https://example.com/events/1",
		"source":   "town-hall",
		"initDate": "2024-03-14 21:00",
	}

	for _, field := range []string{"title", "link", "source", "initDate"} {
		fields := make(map[string]any, len(base))
		for k, v := range base {
			fields[k] = v
		}
		delete(fields, field)

		_, err := b.Build(fields)
		var missing *MissingFieldError
		if !errors.As(err, &missing) {
			t.Fatalf("Expected MissingFieldError without %q, got %v", field, err)
		}
		if missing.Field != field {
			t.Errorf("Expected missing field %q, got %q", field, missing.Field)
		}
	}

	// Empty and nil values count as missing too
	for _, empty := range []any{"", "   ", nil} {
		fields := make(map[string]any, len(base))
		for k, v := range base {
			fields[k] = v
		}
		fields["title"] = empty

		if _, err := b.Build(fields); err == nil {
			t.Errorf("Expected error for title %#v, got nil", empty)
		}
	}
}

func TestBuilderValidRecord(t *testing.T) {
	b := NewBuilder()

	rec, err := b.Build(map[string]any{
		"title":       "Concierto de Rock",
		"link":        "https://example.com/events/1",
		"source":      "town-hall",
		"initDate":    "2024-03-14 21:00",
		"endDate":     "2024-03-16 23:00",
		"price":       "gratis",
		"description": "Una noche de rock",
		"location":    "Plaza Mayor",
		"categories":  []string{"music", "rock"},
	})
	if err != nil {
		t.Fatal(err)
	}

	if !rec.IsValid {
		t.Error("Expected record to be valid")
	}
	if rec.InitDate == nil || rec.EndDate == nil {
		t.Fatal("Expected both dates to be set")
	}
	if rec.Price != FreeOrUnavailable {
		t.Errorf("Expected sentinel price, got %q", rec.Price)
	}
	if rec.InitDateISO == "" || rec.EndDateISO == "" {
		t.Error("Expected ISO dates to be rendered")
	}
	if rec.InitDateHuman != "Thursday, 14, 21:00" {
		t.Errorf("Expected human date 'Thursday, 14, 21:00', got %q", rec.InitDateHuman)
	}
	if rec.EndDateHuman != "Saturday, 16, 23:00" {
		t.Errorf("Expected human date 'Saturday, 16, 23:00', got %q", rec.EndDateHuman)
	}
	if len(rec.Categories) != 2 {
		t.Errorf("Expected 2 categories, got %d", len(rec.Categories))
	}
}

func TestBuilderInvalidDateFlagsRecord(t *testing.T) {
	b := NewBuilder()

	rec, err := b.Build(map[string]any{
		"title":    "Concierto de Rock",
		"link":     "https://example.com/events/1",
		"source":   "town-hall",
		"initDate": "2023-13-45",
	})
	if err != nil {
		t.Fatal(err)
	}

	if rec.IsValid {
		t.Error("Expected record with unparseable date to be invalid")
	}
	if rec.InitDate != nil {
		t.Errorf("Expected nil InitDate, got %v", rec.InitDate)
	}
	if rec.InitDateISO != "" {
		t.Errorf("Expected empty ISO date, got %q", rec.InitDateISO)
	}
}

func TestBuilderEndDateFallsBackToInitDate(t *testing.T) {
	b := NewBuilder()

	rec, err := b.Build(map[string]any{
		"title":    "Feria del Libro",
		"link":     "https://example.com/events/2",
		"source":   "town-hall",
		"initDate": "2024-03-14",
	})
	if err != nil {
		t.Fatal(err)
	}

	if rec.EndDate == nil {
		t.Fatal("Expected EndDate fallback")
	}
	if !rec.EndDate.Equal(*rec.InitDate) {
		t.Errorf("Expected EndDate to equal InitDate, got %v vs %v", rec.EndDate, rec.InitDate)
	}
	if rec.EndDateISO != rec.InitDateISO {
		t.Errorf("Expected matching ISO dates, got %q vs %q", rec.EndDateISO, rec.InitDateISO)
	}
}

func TestBuilderSanitizesTextFields(t *testing.T) {
	b := NewBuilder()

	rec, err := b.Build(map[string]any{
		"title":       "<b>Rock &amp; Roll</b>",
		"link":        "https://example.com/events/3",
		"source":      "town-hall",
		"initDate":    "2024-03-14",
		"description": "<p>Concert at O'Malley's</p>",
	})
	if err != nil {
		t.Fatal(err)
	}

	if rec.Title != "Rock & Roll" {
		t.Errorf("Expected stripped title 'Rock & Roll', got %q", rec.Title)
	}
	if rec.Description != "Concert at O''Malley''s" {
		t.Errorf("Expected quote-doubled description, got %q", rec.Description)
	}
}

func TestBuilderExtraFieldsPassThrough(t *testing.T) {
	b := NewBuilder()

	rec, err := b.Build(map[string]any{
		"title":    "Concierto de Rock",
		"link":     "https://example.com/events/1",
		"source":   "town-hall",
		"initDate": "2024-03-14",
		"venueId":  42,
	})
	if err != nil {
		t.Fatal(err)
	}

	if rec.Extra["venueId"] != 42 {
		t.Errorf("Expected extra field to pass through, got %v", rec.Extra)
	}
	if _, ok := rec.Extra["title"]; ok {
		t.Error("Expected interpreted fields to stay out of Extra")
	}
}

func TestBuilderAcceptsParsedTimeDates(t *testing.T) {
	b := NewBuilder()

	published := time.Date(2024, 3, 14, 21, 0, 0, 0, time.UTC)
	rec, err := b.Build(map[string]any{
		"title":    "Concierto de Rock",
		"link":     "https://example.com/events/1",
		"source":   "town-hall",
		"initDate": published,
	})
	if err != nil {
		t.Fatal(err)
	}

	if rec.InitDate == nil || !rec.InitDate.Equal(published) {
		t.Errorf("Expected InitDate %v, got %v", published, rec.InitDate)
	}
}
