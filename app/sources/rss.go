package sources

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"
)

var _ Adapter = (*RSSAdapter)(nil)

// RSSAdapter turns a municipal RSS/Atom agenda feed into raw event
// dictionaries. Dates come from the feed's published timestamps; sites that
// only expose dates on the event page get them via the enrichment step.
type RSSAdapter struct {
	config     *Config
	httpClient *http.Client
	userAgent  string
	revisit    RevisitChecker
	extractor  *ContentExtractor
	parser     *gofeed.Parser
}

func NewRSSAdapter(config *Config, httpClient *http.Client, userAgent string, revisit RevisitChecker) *RSSAdapter {
	return &RSSAdapter{
		config:     config,
		httpClient: httpClient,
		userAgent:  userAgent,
		revisit:    revisit,
		extractor:  NewContentExtractor(),
		parser:     gofeed.NewParser(),
	}
}

func (a *RSSAdapter) Name() string {
	return a.config.Name
}

func (a *RSSAdapter) Fetch(ctx context.Context) ([]RawEvent, error) {
	timeout := time.Duration(a.config.Settings.Timeout) * time.Second
	data, err := fetchURL(ctx, a.httpClient, a.config.URL, a.userAgent, timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}

	feed, err := a.parser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	events := make([]RawEvent, 0, len(feed.Items))
	skipped := 0
	banned := 0

	for _, item := range feed.Items {
		if item.Link == "" || item.Title == "" {
			continue
		}

		if shouldSkip(a.revisit, item.Link, a.config.Settings.RevisitDays) {
			skipped++
			continue
		}

		raw := a.normalizeItem(item)

		if containsBannedWord(raw, a.config.Settings.BannedWords) {
			banned++
			continue
		}

		if a.config.Settings.FetchDetails {
			a.attachDetailText(ctx, raw, item.Link, timeout)
		}

		events = append(events, raw)
	}

	slog.Info("Source fetched", "source", a.config.Name, "type", TypeRSS,
		"total", len(feed.Items), "skipped", skipped, "banned", banned, "events", len(events))

	return events, nil
}

func (a *RSSAdapter) normalizeItem(item *gofeed.Item) RawEvent {
	raw := RawEvent{
		"title":  item.Title,
		"link":   item.Link,
		"source": a.config.Name,
	}

	if item.Description != "" {
		raw["description"] = item.Description
	}
	if len(item.Categories) > 0 {
		raw["categories"] = item.Categories
	}

	if item.PublishedParsed != nil {
		raw["initDate"] = *item.PublishedParsed
	} else if item.Published != "" {
		raw["initDate"] = item.Published
	}
	if item.UpdatedParsed != nil {
		raw["endDate"] = *item.UpdatedParsed
	}

	if item.Image != nil && item.Image.URL != "" {
		raw["image"] = item.Image.URL
	} else if len(item.Enclosures) > 0 && item.Enclosures[0] != nil {
		raw["image"] = item.Enclosures[0].URL
	}

	return raw
}

// attachDetailText fetches the event page and attaches its readable text so
// downstream enrichment has something to work with. Failures only cost the
// text content.
func (a *RSSAdapter) attachDetailText(ctx context.Context, raw RawEvent, link string, timeout time.Duration) {
	html, err := fetchURL(ctx, a.httpClient, link, a.userAgent, timeout)
	if err != nil {
		slog.Warn("Failed to fetch event page", "source", a.config.Name, "link", link, "error", err)
		return
	}

	raw["htmlContent"] = string(html)

	text, err := a.extractor.Run(html)
	if err != nil {
		slog.Debug("Content extraction failed", "source", a.config.Name, "link", link, "error", err)
		return
	}
	raw["textContent"] = text
}
