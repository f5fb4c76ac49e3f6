package event

import (
	"strings"
	"time"
)

// Layouts tried in priority order. Order matters: some layouts are ambiguous
// subsets of others, and the first one that parses wins.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"02/01/2006",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"2006-01-02T15:04:05.000Z07:00",
	"2006-01-02 15:04:05.0",
	"2006-01-02T15:04Z07:00",
}

type DateNormalizer struct {
	layouts []string
	loc     *time.Location
}

func NewDateNormalizer() *DateNormalizer {
	return &DateNormalizer{
		layouts: dateLayouts,
		loc:     time.Local,
	}
}

// Normalize converts any supported date representation to a canonical
// timestamp. Numeric input is treated as Unix epoch milliseconds. Returns nil
// when nothing parses, or when the result is not a real calendar date; the
// caller must mark the owning record invalid.
func (n *DateNormalizer) Normalize(raw any) *time.Time {
	switch v := raw.(type) {
	case nil:
		return nil
	case time.Time:
		if v.IsZero() {
			return nil
		}
		t := v.In(n.loc)
		return &t
	case *time.Time:
		if v == nil || v.IsZero() {
			return nil
		}
		t := v.In(n.loc)
		return &t
	case int:
		return n.fromEpochMillis(int64(v))
	case int64:
		return n.fromEpochMillis(v)
	case float64:
		return n.fromEpochMillis(int64(v))
	case string:
		return n.parseString(v)
	default:
		return nil
	}
}

func (n *DateNormalizer) fromEpochMillis(ms int64) *time.Time {
	if ms <= 0 {
		return nil
	}
	t := time.UnixMilli(ms).In(n.loc)
	return &t
}

func (n *DateNormalizer) parseString(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	for _, layout := range n.layouts {
		// time.ParseInLocation rejects semantically invalid dates
		// (Feb 30, month 13) rather than normalizing them.
		t, err := time.ParseInLocation(layout, raw, n.loc)
		if err == nil {
			return &t
		}
	}

	return nil
}

// FormatISO renders a canonical timestamp with explicit offset.
func FormatISO(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
