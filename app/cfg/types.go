package cfg

type Cfg struct {
	// Database configuration
	DBPath string

	// Application configuration
	PodcastsFile  string
	Host          string
	Port          string
	CheckInterval int
	FetchTimeout  int
	WorkerCount   int

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
