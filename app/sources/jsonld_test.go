package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

const testListingHTML = `<!DOCTYPE html>
<html>
<head>
<script type="application/ld+json">
{
  "@context": "https://schema.org",
  "@type": "MusicEvent",
  "name": "Concierto de Rock",
  "url": "https://tickets.example/events/1",
  "startDate": "2024-03-14T21:00:00.000Z",
  "endDate": "2024-03-14T23:30:00.000Z",
  "description": "Una noche de rock",
  "image": ["https://tickets.example/poster1.jpg"],
  "location": {"@type": "Place", "name": "Plaza Mayor"},
  "offers": {"@type": "Offer", "price": "12.00", "priceCurrency": "EUR"}
}
</script>
<script type="application/ld+json">
{
  "@graph": [
    {
      "@type": "TheaterEvent",
      "name": "Obra de Teatro",
      "url": "https://tickets.example/events/2",
      "startDate": "2024-03-15T19:00:00.000Z",
      "location": {"@type": "Place", "address": {"streetAddress": "Calle Mayor 1"}}
    },
    {
      "@type": "Organization",
      "name": "Ticket Site"
    }
  ]
}
</script>
<script type="application/ld+json">not even json</script>
<script type="application/ld+json">
{"@type": "Event", "name": "Sin Enlace"}
</script>
</head>
<body></body>
</html>`

func newJSONLDTestConfig(url string) *Config {
	return &Config{
		Name: "ticket-site",
		URL:  url,
		Type: TypeJSONLD,
		Settings: ConfigSettings{
			Enabled: true,
			Timeout: 5,
		},
	}
}

func TestJSONLDAdapterFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(testListingHTML))
	}))
	defer server.Close()

	adapter := NewJSONLDAdapter(newJSONLDTestConfig(server.URL), server.Client(), "Event Comb Test/1.0", nil)

	if adapter.Name() != "ticket-site" {
		t.Errorf("Expected name 'ticket-site', got %q", adapter.Name())
	}

	events, err := adapter.Fetch(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	// The Organization node, the malformed block and the linkless event are dropped
	if len(events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(events))
	}

	concert := events[0]
	if concert["title"] != "Concierto de Rock" {
		t.Errorf("Expected title 'Concierto de Rock', got %v", concert["title"])
	}
	if concert["link"] != "https://tickets.example/events/1" {
		t.Errorf("Expected link, got %v", concert["link"])
	}
	if concert["source"] != "ticket-site" {
		t.Errorf("Expected source tag 'ticket-site', got %v", concert["source"])
	}
	if concert["initDate"] != "2024-03-14T21:00:00.000Z" {
		t.Errorf("Expected raw startDate, got %v", concert["initDate"])
	}
	if concert["endDate"] != "2024-03-14T23:30:00.000Z" {
		t.Errorf("Expected raw endDate, got %v", concert["endDate"])
	}
	if concert["image"] != "https://tickets.example/poster1.jpg" {
		t.Errorf("Expected first image, got %v", concert["image"])
	}
	if concert["price"] != "12.00" {
		t.Errorf("Expected offer price, got %v", concert["price"])
	}
	if concert["location"] != "Plaza Mayor" {
		t.Errorf("Expected place name, got %v", concert["location"])
	}

	theater := events[1]
	if theater["title"] != "Obra de Teatro" {
		t.Errorf("Expected title 'Obra de Teatro', got %v", theater["title"])
	}
	if theater["location"] != "Calle Mayor 1" {
		t.Errorf("Expected street address fallback, got %v", theater["location"])
	}
}

func TestCollectEventNodes(t *testing.T) {
	payload := map[string]any{
		"@type": "MusicEvent",
		"name":  "A",
	}
	nodes := collectEventNodes(payload)
	if len(nodes) != 1 {
		t.Errorf("Expected 1 node for event object, got %d", len(nodes))
	}

	nodes = collectEventNodes(map[string]any{"@type": "WebPage"})
	if len(nodes) != 0 {
		t.Errorf("Expected 0 nodes for non-event object, got %d", len(nodes))
	}

	nodes = collectEventNodes([]any{
		map[string]any{"@type": "Event", "name": "A"},
		map[string]any{"@type": "TheaterEvent", "name": "B"},
		map[string]any{"@type": "Person", "name": "C"},
	})
	if len(nodes) != 2 {
		t.Errorf("Expected 2 nodes from array, got %d", len(nodes))
	}
}

func TestExtractPrice(t *testing.T) {
	tests := []struct {
		offers any
		want   string
	}{
		{map[string]any{"price": "12.00"}, "12.00"},
		{map[string]any{"price": float64(0)}, "0.00"},
		{map[string]any{"lowPrice": "5.00", "highPrice": "20.00"}, "5.00"},
		{[]any{map[string]any{"price": "8.00"}}, "8.00"},
		{map[string]any{"availability": "InStock"}, ""},
		{nil, ""},
	}

	for _, tt := range tests {
		if got := extractPrice(tt.offers); got != tt.want {
			t.Errorf("Expected %q for %v, got %q", tt.want, tt.offers, got)
		}
	}
}
