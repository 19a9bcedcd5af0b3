package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/beewell/momentum/internal/config"
)

func TestDefaults(t *testing.T) {
	Convey("Given a fresh default config", t, func() {
		cfg := config.New()

		Convey("The service defaults are sane", func() {
			So(cfg.Addr, ShouldEqual, ":9080")
			So(cfg.DBPath, ShouldEqual, "momentum.db")
			So(cfg.LogLevel, ShouldEqual, "info")
			So(cfg.QueueSize, ShouldEqual, 100_000)
			So(cfg.WorkerCount, ShouldBeGreaterThan, 0)
		})

		Convey("The scoring defaults match the published algorithm", func() {
			So(cfg.HalfLifeDays, ShouldEqual, 10.0)
			So(cfg.RisingThreshold, ShouldEqual, 70.0)
			So(cfg.NeedsCareThreshold, ShouldEqual, 45.0)
			So(cfg.HysteresisBuffer, ShouldEqual, 2.0)
			So(cfg.MaxDailyScore, ShouldEqual, 100.0)
			So(cfg.MaxEventsPerType, ShouldEqual, 5)
			So(cfg.LookbackDays, ShouldEqual, 90)
			So(cfg.EventWeights["lesson_completion"], ShouldEqual, 15)
			So(cfg.EventWeights["streak_milestone"], ShouldEqual, 25)
			So(cfg.DefaultEventWeight, ShouldEqual, 5)
		})

		Convey("The rule and error-log defaults are set", func() {
			So(cfg.ScoreDropThreshold, ShouldEqual, 15.0)
			So(cfg.ScoreDropWindow, ShouldEqual, 3)
			So(cfg.ErrorRetentionDays, ShouldEqual, 90)
			So(cfg.DegradedTotal, ShouldEqual, 10)
			So(cfg.CriticalTotal, ShouldEqual, 50)
			So(cfg.CriticalHighSeverity, ShouldEqual, 5)
		})
	})
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MOMENTUM_CONFIG", "")

	Convey("Load on a clean environment returns the defaults", t, func() {
		cfg, err := config.Load(context.Background())
		So(err, ShouldBeNil)
		So(cfg.Addr, ShouldEqual, ":9080")
		So(cfg.HalfLifeDays, ShouldEqual, 10.0)
	})
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("MOMENTUM_CONFIG", "")
	t.Setenv("MOMENTUM_ADDR", ":7070")
	t.Setenv("MOMENTUM_DB_PATH", "/tmp/test-momentum.db")
	t.Setenv("MOMENTUM_LOG_LEVEL", "debug")

	Convey("Load applies environment values over the defaults", t, func() {
		cfg, err := config.Load(context.Background())
		So(err, ShouldBeNil)
		So(cfg.Addr, ShouldEqual, ":7070")
		So(cfg.DBPath, ShouldEqual, "/tmp/test-momentum.db")
		So(cfg.LogLevel, ShouldEqual, "debug")
		So(cfg.HalfLifeDays, ShouldEqual, 10.0)
	})
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "momentum.yaml")
	body := "addr: \":6060\"\nrising_threshold: 75\nneeds_care_threshold: 40\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv("MOMENTUM_CONFIG", path)

	Convey("File values override the defaults", t, func() {
		cfg, err := config.Load(context.Background())
		So(err, ShouldBeNil)
		So(cfg.Addr, ShouldEqual, ":6060")
		So(cfg.RisingThreshold, ShouldEqual, 75.0)
		So(cfg.NeedsCareThreshold, ShouldEqual, 40.0)
	})
}

func TestLoadFileEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "momentum.yaml")
	if err := os.WriteFile(path, []byte("addr: \":6060\"\n"), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	t.Setenv("MOMENTUM_CONFIG", path)
	t.Setenv("MOMENTUM_ADDR", ":5050")

	Convey("Environment values win over the file", t, func() {
		cfg, err := config.Load(context.Background())
		So(err, ShouldBeNil)
		So(cfg.Addr, ShouldEqual, ":5050")
	})
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("MOMENTUM_CONFIG", "/nonexistent/momentum.yaml")

	Convey("A missing config file surfaces as a load error", t, func() {
		_, err := config.Load(context.Background())
		So(err, ShouldNotBeNil)
		So(errors.Is(err, config.ErrLoadConfig), ShouldBeTrue)
	})
}

func TestLoadValidation(t *testing.T) {
	t.Setenv("MOMENTUM_CONFIG", "")
	t.Setenv("MOMENTUM_HALF_LIFE_DAYS", "0")

	Convey("A non-positive half life is rejected", t, func() {
		_, err := config.Load(context.Background())
		So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
	})
}

func TestLoadCrossedThresholds(t *testing.T) {
	t.Setenv("MOMENTUM_CONFIG", "")
	t.Setenv("MOMENTUM_RISING_THRESHOLD", "40")
	t.Setenv("MOMENTUM_NEEDS_CARE_THRESHOLD", "45")

	Convey("Thresholds out of order are rejected", t, func() {
		_, err := config.Load(context.Background())
		So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
	})
}
