package config

import (
	"context"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if VAKT_CONFIG is set
//  3. env (prefix VAKT_)
func Load(ctx context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("VAKT_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// Environment variables: VAKT_ADDR, VAKT_BACKFILL_DAYS, ...
	// Underscores are preserved to match the koanf tags on the struct.
	envProvider := env.Provider("VAKT_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "vakt_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, err
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Addr == "":
		return NewKind("addr must not be empty", ErrInvalidConfig)
	case c.FeedBaseURL == "":
		return NewKind("feed_base_url must not be empty", ErrInvalidConfig)
	case c.StoreDriver != "sqlite" && c.StoreDriver != "memory":
		return NewKind("store_driver must be sqlite or memory", ErrInvalidConfig)
	case c.SyncIntervalMinutes < 1:
		return NewKind("sync_interval_minutes must be positive", ErrInvalidConfig)
	case c.BackfillDays < 0:
		return NewKind("backfill_days must not be negative", ErrInvalidConfig)
	case c.RetentionDays < 1:
		return NewKind("retention_days must be positive", ErrInvalidConfig)
	case c.MaxIncidentsLimit < 1:
		return NewKind("max_incidents_limit must be positive", ErrInvalidConfig)
	}
	return nil
}
