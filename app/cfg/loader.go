package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage configuration
	DBPath string `long:"db-path" env:"DB_PATH" default:"./events.sqlite3" description:"Path to the SQLite database file"`

	// Application configuration
	SourcesDir        string `long:"sources-dir" env:"SOURCES_DIR" default:"./sources" description:"Directory containing source configuration files"`
	Port              string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	WorkerCount       int    `long:"worker-count" env:"WORKER_COUNT" default:"5" description:"Number of background workers for source processing"`
	SchedulerInterval int    `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"30" description:"Scheduler interval in seconds"`
	APIAccessKey      string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Calendar window
	WindowDays int `long:"window-days" env:"WINDOW_DAYS" default:"10" description:"Number of days in the rolling calendar window"`

	// Duplicate detection thresholds (empirically tuned, keep configurable)
	EditDistanceRatio      float64 `long:"edit-distance-ratio" env:"EDIT_DISTANCE_RATIO" default:"0.2" description:"Max edit distance between titles as a fraction of their average length"`
	ImageMismatchThreshold float64 `long:"image-mismatch-threshold" env:"IMAGE_MISMATCH_THRESHOLD" default:"75" description:"Perceptual image mismatch percentage below which two events are duplicates"`
	DefaultTrustScore      float64 `long:"default-trust-score" env:"DEFAULT_TRUST_SCORE" default:"1" description:"Trust score for sources without a configured score"`

	// Image cache
	ImageDir string `long:"image-dir" env:"IMAGE_DIR" default:"./images" description:"Directory for locally cached event images"`

	// Enrichment
	OpenAIKey   string `long:"openai-key" env:"OPENAI_API_KEY" description:"OpenAI API key for event enrichment (optional)"`
	OpenAIModel string `long:"openai-model" env:"OPENAI_MODEL" default:"gpt-4o-mini" description:"OpenAI model used for event enrichment"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Event Comb/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"Europe/Madrid" description:"Timezone for calendar days (e.g. UTC, Europe/Madrid)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:                 raw.DBPath,
		SourcesDir:             raw.SourcesDir,
		Port:                   raw.Port,
		WorkerCount:            raw.WorkerCount,
		SchedulerInterval:      raw.SchedulerInterval,
		APIAccessKey:           raw.APIAccessKey,
		WindowDays:             raw.WindowDays,
		EditDistanceRatio:      raw.EditDistanceRatio,
		ImageMismatchThreshold: raw.ImageMismatchThreshold,
		DefaultTrustScore:      raw.DefaultTrustScore,
		ImageDir:               raw.ImageDir,
		OpenAIKey:              raw.OpenAIKey,
		OpenAIModel:            raw.OpenAIModel,
		UserAgent:              raw.UserAgent,
		Timezone:               raw.Timezone,
		Debug:                  raw.Debug,
		Version:                GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
