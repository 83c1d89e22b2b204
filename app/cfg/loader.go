package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Database configuration
	DBPath string `long:"db-path" env:"DATABASE_PATH" default:"./podcast_tracker.db" description:"Path to the SQLite database file"`

	// Application configuration
	PodcastsFile  string `long:"podcasts-file" env:"PODCASTS_FILE" default:"./podcasts.yml" description:"YAML file with podcasts to track"`
	Host          string `long:"host" env:"HOST" default:"0.0.0.0" description:"HTTP server bind host"`
	Port          string `long:"port" env:"PORT" default:"8000" description:"HTTP server port"`
	CheckInterval int    `long:"check-interval" env:"CHECK_INTERVAL_HOURS" default:"1" description:"Interval between feed refreshes in hours"`
	FetchTimeout  int    `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"30" description:"Feed fetch timeout in seconds"`
	WorkerCount   int    `long:"worker-count" env:"WORKER_COUNT" default:"1" description:"Number of background workers for task processing"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Podcast Tracker/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	// Optional .env file, real environment variables take precedence
	_ = godotenv.Load()

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
		DBPath:        raw.DBPath,
		PodcastsFile:  raw.PodcastsFile,
		Host:          raw.Host,
		Port:          raw.Port,
		CheckInterval: raw.CheckInterval,
		FetchTimeout:  raw.FetchTimeout,
		WorkerCount:   raw.WorkerCount,
		UserAgent:     raw.UserAgent,
		Timezone:      raw.Timezone,
		Debug:         raw.Debug,
		Version:       GetVersion(),
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
