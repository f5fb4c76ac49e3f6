package sources

// Source configuration types, one yaml file per source in the sources dir.

const (
	TypeRSS    = "rss"
	TypeJSONLD = "jsonld"
)

type Config struct {
	Name     string         // Derived from filename (without .yml extension)
	URL      string         `yaml:"url"`
	Type     string         `yaml:"type"`
	Settings ConfigSettings `yaml:"settings"`
}

type ConfigSettings struct {
	Enabled         bool     `yaml:"enabled"`
	RefreshInterval int      `yaml:"refresh_interval"` // seconds
	Timeout         int      `yaml:"timeout"`          // seconds
	TrustScore      float64  `yaml:"trust_score"`      // survivor election weight
	RevisitDays     int      `yaml:"revisit_days"`     // skip links scraped more recently
	FetchDetails    bool     `yaml:"fetch_details"`    // fetch per-event pages for text content
	BannedWords     []string `yaml:"banned_words"`     // drop raw events containing any of these
}
