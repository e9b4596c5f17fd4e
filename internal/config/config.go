// Package config defines service configuration structures and loading hooks.
package config

// Config contains process configuration. Extend as needed.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":3030".
	Addr string `koanf:"addr"`

	// FeedBaseURL points at the upstream police events API.
	FeedBaseURL string `koanf:"feed_base_url"`

	// FeedTimeoutSeconds bounds each individual feed request.
	FeedTimeoutSeconds int `koanf:"feed_timeout_seconds"`

	// StoreDriver selects the incident store: "sqlite" or "memory".
	StoreDriver string `koanf:"store_driver"`

	// DataDir holds the SQLite database; ":memory:" for an ephemeral store.
	DataDir string `koanf:"data_dir"`

	// SyncIntervalMinutes is the live sync period.
	SyncIntervalMinutes int `koanf:"sync_interval_minutes"`

	// BackfillDays is the historical window fetched on startup.
	BackfillDays int `koanf:"backfill_days"`

	// BackfillDelayMS is the politeness delay between day queries.
	BackfillDelayMS int `koanf:"backfill_delay_ms"`

	// RetentionDays is the horizon beyond which incidents are pruned.
	RetentionDays int `koanf:"retention_days"`

	// MaxIncidentsLimit caps GET /api/incidents results.
	MaxIncidentsLimit int `koanf:"max_incidents_limit"`

	// TriggerPhrases overrides the administrative-noise phrase set used by
	// the scorer. Empty keeps the scorer's default (Swedish) list.
	TriggerPhrases []string `koanf:"trigger_phrases"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		Addr:                ":3030",
		FeedBaseURL:         "https://polisen.se/api",
		FeedTimeoutSeconds:  15,
		StoreDriver:         "sqlite",
		DataDir:             "./data",
		SyncIntervalMinutes: 10,
		BackfillDays:        7,
		BackfillDelayMS:     500,
		RetentionDays:       7,
		MaxIncidentsLimit:   1000,
	}
}
