package event

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
)

// humanDateLayout matches the display format the calendar template expects,
// e.g. "Thursday, 16, 21:00".
const humanDateLayout = "Monday, 02, 15:04"

// MissingFieldError is returned by Builder.Build when one of the mandatory
// raw fields (title, link, source, initDate) is absent. It is the only
// caller-visible hard failure in record construction.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing mandatory field %q", e.Field)
}

var stripPolicy = bluemonday.StrictPolicy()

// Sanitize strips HTML tags, resolves entities and escapes single quotes so
// the value embeds safely in SQL literals and templates.
func Sanitize(s string) string {
	stripped := html.UnescapeString(stripPolicy.Sanitize(s))
	return EscapeQuotes(strings.TrimSpace(stripped))
}

// EscapeQuotes doubles single quotes, the escaping the storage layer expects.
func EscapeQuotes(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// Builder assembles canonical records from the raw field maps handed over by
// source adapters.
type Builder struct {
	dates  *DateNormalizer
	prices *PriceNormalizer
}

func NewBuilder() *Builder {
	return &Builder{
		dates:  NewDateNormalizer(),
		prices: NewPriceNormalizer(),
	}
}

var interpretedFields = map[string]bool{
	"title":       true,
	"link":        true,
	"price":       true,
	"description": true,
	"image":       true,
	"source":      true,
	"initDate":    true,
	"endDate":     true,
	"location":    true,
	"categories":  true,
	"textContent": true,
	"htmlContent": true,
}

// Build constructs a Record from a raw field map. A date that fails to parse
// never fails construction: the record comes back flagged invalid instead.
// Only a missing mandatory field is an error.
func (b *Builder) Build(fields map[string]any) (*Record, error) {
	for _, mandatory := range []string{"title", "link", "source", "initDate"} {
		if !hasField(fields, mandatory) {
			return nil, &MissingFieldError{Field: mandatory}
		}
	}

	rec := &Record{
		Title:       Sanitize(asString(fields["title"])),
		Link:        asString(fields["link"]),
		Price:       b.prices.Normalize(fields["price"]),
		Description: Sanitize(asString(fields["description"])),
		Image:       asString(fields["image"]),
		Source:      asString(fields["source"]),
		Location:    Sanitize(asString(fields["location"])),
		Categories:  asStrings(fields["categories"]),
		TextContent: asString(fields["textContent"]),
		HTMLContent: asString(fields["htmlContent"]),
		InitDateRaw: fields["initDate"],
		EndDateRaw:  fields["endDate"],
		ScrapedAt:   time.Now(),
		IsValid:     true,
	}

	rec.InitDate = b.dates.Normalize(rec.InitDateRaw)
	if rec.InitDate == nil {
		rec.IsValid = false
	}

	rec.EndDate = b.dates.Normalize(rec.EndDateRaw)
	if rec.EndDate == nil {
		// Single-day events routinely come without an end date.
		rec.EndDate = rec.InitDate
	}

	rec.InitDateISO = FormatISO(rec.InitDate)
	rec.EndDateISO = FormatISO(rec.EndDate)
	if rec.InitDate != nil {
		rec.InitDateHuman = rec.InitDate.Format(humanDateLayout)
	}
	if rec.EndDate != nil {
		rec.EndDateHuman = rec.EndDate.Format(humanDateLayout)
	}

	for k, v := range fields {
		if interpretedFields[k] {
			continue
		}
		if rec.Extra == nil {
			rec.Extra = make(map[string]any)
		}
		rec.Extra[k] = v
	}

	return rec, nil
}

func hasField(fields map[string]any, key string) bool {
	v, ok := fields[key]
	if !ok || v == nil {
		return false
	}
	if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
		return false
	}
	return true
}

func asString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func asStrings(v any) []string {
	switch vs := v.(type) {
	case nil:
		return nil
	case []string:
		return vs
	case []any:
		out := make([]string, 0, len(vs))
		for _, item := range vs {
			out = append(out, asString(item))
		}
		return out
	case string:
		if vs == "" {
			return nil
		}
		return []string{vs}
	default:
		return nil
	}
}
