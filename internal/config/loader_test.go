package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/hedvall/vakthund/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	Convey("Given no overrides", t, func() {
		cfg, err := config.Load(context.Background())

		Convey("Then the built-in defaults are returned", func() {
			So(err, ShouldBeNil)
			So(cfg.Addr, ShouldEqual, ":3030")
			So(cfg.FeedBaseURL, ShouldEqual, "https://polisen.se/api")
			So(cfg.StoreDriver, ShouldEqual, "sqlite")
			So(cfg.SyncIntervalMinutes, ShouldEqual, 10)
			So(cfg.BackfillDays, ShouldEqual, 7)
			So(cfg.RetentionDays, ShouldEqual, 7)
			So(cfg.MaxIncidentsLimit, ShouldEqual, 1000)
			So(cfg.TriggerPhrases, ShouldBeEmpty)
		})
	})
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("VAKT_ADDR", ":9999")
	t.Setenv("VAKT_STORE_DRIVER", "memory")
	t.Setenv("VAKT_BACKFILL_DAYS", "3")

	Convey("Given VAKT_ environment overrides", t, func() {
		cfg, err := config.Load(context.Background())

		Convey("Then the env values win over defaults", func() {
			So(err, ShouldBeNil)
			So(cfg.Addr, ShouldEqual, ":9999")
			So(cfg.StoreDriver, ShouldEqual, "memory")
			So(cfg.BackfillDays, ShouldEqual, 3)

			Convey("And untouched fields keep their defaults", func() {
				So(cfg.FeedBaseURL, ShouldEqual, "https://polisen.se/api")
				So(cfg.MaxIncidentsLimit, ShouldEqual, 1000)
			})
		})
	})
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vakthund.yaml")
	payload := []byte("addr: \":4040\"\nsync_interval_minutes: 5\ntrigger_phrases:\n  - \"press inquiries\"\n")
	if err := os.WriteFile(path, payload, 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("VAKT_CONFIG", path)
	t.Setenv("VAKT_ADDR", ":5050")

	Convey("Given a YAML file and an env override for the same key", t, func() {
		cfg, err := config.Load(context.Background())

		Convey("Then the file applies and env takes precedence over it", func() {
			So(err, ShouldBeNil)
			So(cfg.Addr, ShouldEqual, ":5050")
			So(cfg.SyncIntervalMinutes, ShouldEqual, 5)
			So(cfg.TriggerPhrases, ShouldResemble, []string{"press inquiries"})
		})
	})
}

func TestLoadValidation(t *testing.T) {
	t.Setenv("VAKT_STORE_DRIVER", "postgres")

	Convey("Given an unsupported store driver", t, func() {
		_, err := config.Load(context.Background())

		Convey("Then loading fails with an invalid-config error", func() {
			So(err, ShouldNotBeNil)
			So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
		})
	})
}
