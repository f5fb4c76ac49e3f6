package sources

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// RawEvent is the untyped field dictionary a source adapter hands the core.
// Keys follow the builder contract (title, link, price, description, image,
// source, initDate, endDate, location?, categories?, textContent?,
// htmlContent?); extra keys pass through uninterpreted.
type RawEvent map[string]any

// Adapter is the plugin surface for event sources. The core is agnostic to
// adapter identity beyond the source tag it stamps on each raw event.
type Adapter interface {
	Name() string
	Fetch(ctx context.Context) ([]RawEvent, error)
}

// RevisitChecker reports when a link was last stored. Implemented by the
// event repository.
type RevisitChecker interface {
	LastScraped(link string) (*time.Time, error)
}

// shouldSkip is the revisit window: a link already scraped fewer than
// revisitDays ago is not fetched again.
func shouldSkip(checker RevisitChecker, link string, revisitDays int) bool {
	if checker == nil || revisitDays <= 0 {
		return false
	}

	lastScraped, err := checker.LastScraped(link)
	if err != nil {
		slog.Warn("Failed to check revisit window", "link", link, "error", err)
		return false
	}
	if lastScraped == nil {
		return false
	}

	age := time.Since(*lastScraped)
	if age < time.Duration(revisitDays)*24*time.Hour {
		slog.Debug("Link already scraped recently, skipping", "link", link, "age", age.String())
		return true
	}
	return false
}

// containsBannedWord walks every string in the raw event (including nested
// maps and slices) looking for any of the configured banned words, e.g.
// "online" for sources that mix in virtual events.
func containsBannedWord(value any, words []string) bool {
	if len(words) == 0 {
		return false
	}

	switch v := value.(type) {
	case string:
		lower := strings.ToLower(v)
		for _, word := range words {
			if strings.Contains(lower, strings.ToLower(word)) {
				return true
			}
		}
	case RawEvent:
		for _, item := range v {
			if containsBannedWord(item, words) {
				return true
			}
		}
	case map[string]any:
		for _, item := range v {
			if containsBannedWord(item, words) {
				return true
			}
		}
	case []any:
		for _, item := range v {
			if containsBannedWord(item, words) {
				return true
			}
		}
	case []string:
		for _, item := range v {
			if containsBannedWord(item, words) {
				return true
			}
		}
	}
	return false
}
