package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

var _ Adapter = (*JSONLDAdapter)(nil)

// JSONLDAdapter extracts schema.org Event objects from the
// <script type="application/ld+json"> blocks of a listing page. Ticketing
// sites embed these for SEO, which makes them the most stable thing on the
// page to scrape.
type JSONLDAdapter struct {
	config     *Config
	httpClient *http.Client
	userAgent  string
	revisit    RevisitChecker
}

func NewJSONLDAdapter(config *Config, httpClient *http.Client, userAgent string, revisit RevisitChecker) *JSONLDAdapter {
	return &JSONLDAdapter{
		config:     config,
		httpClient: httpClient,
		userAgent:  userAgent,
		revisit:    revisit,
	}
}

func (a *JSONLDAdapter) Name() string {
	return a.config.Name
}

func (a *JSONLDAdapter) Fetch(ctx context.Context) ([]RawEvent, error) {
	timeout := time.Duration(a.config.Settings.Timeout) * time.Second
	data, err := fetchURL(ctx, a.httpClient, a.config.URL, a.userAgent, timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch listing page: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse listing page: %w", err)
	}

	var nodes []map[string]any
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		var payload any
		if err := json.Unmarshal([]byte(s.Text()), &payload); err != nil {
			slog.Debug("Skipping malformed ld+json block", "source", a.config.Name, "error", err)
			return
		}
		nodes = append(nodes, collectEventNodes(payload)...)
	})

	events := make([]RawEvent, 0, len(nodes))
	skipped := 0
	banned := 0

	for _, node := range nodes {
		raw := a.normalizeNode(node)
		if raw == nil {
			continue
		}

		link, _ := raw["link"].(string)
		if shouldSkip(a.revisit, link, a.config.Settings.RevisitDays) {
			skipped++
			continue
		}
		if containsBannedWord(raw, a.config.Settings.BannedWords) {
			banned++
			continue
		}

		events = append(events, raw)
	}

	slog.Info("Source fetched", "source", a.config.Name, "type", TypeJSONLD,
		"total", len(nodes), "skipped", skipped, "banned", banned, "events", len(events))

	return events, nil
}

// collectEventNodes walks a decoded ld+json payload (single object, array,
// or @graph wrapper) and returns every node whose @type mentions "event".
func collectEventNodes(payload any) []map[string]any {
	var nodes []map[string]any

	switch v := payload.(type) {
	case []any:
		for _, item := range v {
			nodes = append(nodes, collectEventNodes(item)...)
		}
	case map[string]any:
		if nodeType, ok := v["@type"].(string); ok &&
			strings.Contains(strings.ToLower(nodeType), "event") {
			nodes = append(nodes, v)
		}
		if graph, ok := v["@graph"]; ok {
			nodes = append(nodes, collectEventNodes(graph)...)
		}
	}

	return nodes
}

func (a *JSONLDAdapter) normalizeNode(node map[string]any) RawEvent {
	title, _ := node["name"].(string)
	link, _ := node["url"].(string)
	if title == "" || link == "" {
		return nil
	}

	raw := RawEvent{
		"title":  title,
		"link":   link,
		"source": a.config.Name,
	}

	if desc, ok := node["description"].(string); ok && desc != "" {
		raw["description"] = desc
	}
	if start, ok := node["startDate"].(string); ok && start != "" {
		raw["initDate"] = start
	}
	if end, ok := node["endDate"].(string); ok && end != "" {
		raw["endDate"] = end
	}
	if image := firstString(node["image"]); image != "" {
		raw["image"] = image
	}
	if price := extractPrice(node["offers"]); price != "" {
		raw["price"] = price
	}
	if location := extractLocation(node["location"]); location != "" {
		raw["location"] = location
	}

	return raw
}

func firstString(v any) string {
	switch value := v.(type) {
	case string:
		return value
	case []any:
		for _, item := range value {
			if s, ok := item.(string); ok && s != "" {
				return s
			}
		}
	case map[string]any:
		if s, ok := value["url"].(string); ok {
			return s
		}
	}
	return ""
}

func extractPrice(offers any) string {
	switch v := offers.(type) {
	case map[string]any:
		for _, key := range []string{"price", "lowPrice"} {
			switch price := v[key].(type) {
			case string:
				if price != "" {
					return price
				}
			case float64:
				return fmt.Sprintf("%.2f", price)
			}
		}
	case []any:
		for _, item := range v {
			if price := extractPrice(item); price != "" {
				return price
			}
		}
	}
	return ""
}

func extractLocation(location any) string {
	if v, ok := location.(map[string]any); ok {
		if name, ok := v["name"].(string); ok && name != "" {
			return name
		}
		if address, ok := v["address"].(map[string]any); ok {
			if street, ok := address["streetAddress"].(string); ok {
				return street
			}
		}
	}
	if s, ok := location.(string); ok {
		return s
	}
	return ""
}
