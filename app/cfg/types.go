package cfg

type Cfg struct {
	// Storage configuration
	DBPath string

	// Application configuration
	SourcesDir        string
	Port              string
	WorkerCount       int
	SchedulerInterval int
	APIAccessKey      string

	// Calendar window
	WindowDays int

	// Duplicate detection
	EditDistanceRatio      float64
	ImageMismatchThreshold float64
	DefaultTrustScore      float64

	// Image cache
	ImageDir string

	// Enrichment
	OpenAIKey   string
	OpenAIModel string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
