package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/groove/internal/config"
)

// setenv sets a variable for the current Convey leaf only.
func setenv(key, value string) {
	prev, had := os.LookupEnv(key)
	_ = os.Setenv(key, value)
	convey.Reset(func() {
		if had {
			_ = os.Setenv(key, prev)
		} else {
			_ = os.Unsetenv(key)
		}
	})
}

func clearConfigEnvVars() {
	for _, kv := range os.Environ() {
		if key, _, _ := strings.Cut(kv, "="); strings.HasPrefix(key, config.EnvPrefix) {
			_ = os.Unsetenv(key)
		}
	}
}

func writeConfigFile(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "groove.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with defaults", t, func() {
		cfg := config.New()

		convey.Convey("Then the game loop defaults match the design", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.TickRateHz, convey.ShouldEqual, 60)
			convey.So(cfg.LookaheadFrames, convey.ShouldEqual, 4)
			convey.So(cfg.CountInBeats, convey.ShouldEqual, 4)
			convey.So(cfg.TrackingGrace().Seconds(), convey.ShouldEqual, 1)
			convey.So(cfg.PracticeRate, convey.ShouldEqual, 0.5)
			convey.So(cfg.PracticePhraseBeats, convey.ShouldEqual, 8)
			convey.So(cfg.HistoryLimit, convey.ShouldEqual, 20)
			convey.So(cfg.StoreBackend, convey.ShouldEqual, config.BackendMemory)
			convey.So(cfg.WorkerCount, convey.ShouldBeGreaterThanOrEqualTo, 1)
		})

		convey.Convey("Then it validates", func() {
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a config with several bad values", t, func() {
		cfg := config.New()
		cfg.Addr = ""
		cfg.TickRateHz = 0
		cfg.StoreBackend = "mongo"

		err := cfg.Validate()

		convey.Convey("Then every problem is reported under ErrInvalidConfig", func() {
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
			convey.So(err.Error(), convey.ShouldContainSubstring, "tick_rate_hz")
			convey.So(err.Error(), convey.ShouldContainSubstring, `unknown store_backend "mongo"`)
		})
	})

	convey.Convey("Given a sqlite backend without a path", t, func() {
		cfg := config.New()
		cfg.StoreBackend = config.BackendSQLite
		cfg.SQLitePath = ""

		convey.So(cfg.Validate(), convey.ShouldNotBeNil)
	})
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load()

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldResemble, config.New())
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			setenv("GROOVE_ADDR", ":8080")
			setenv("GROOVE_QUEUE_SIZE", "512")
			setenv("GROOVE_TRACKING_GRACE_MS", "1500")
			setenv("GROOVE_MIN_POSE_CONFIDENCE", "0.3")
			setenv("GROOVE_UPPER_BODY_ONLY", "true")
			setenv("GROOVE_STORE_BACKEND", "redis")

			cfg, err := config.Load()

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.EventQueueSize, convey.ShouldEqual, 512)
				convey.So(cfg.TrackingGrace().Milliseconds(), convey.ShouldEqual, 1500)
				convey.So(cfg.MinPoseConfidence, convey.ShouldEqual, 0.3)
				convey.So(cfg.UpperBodyOnly, convey.ShouldBeTrue)
				convey.So(cfg.StoreBackend, convey.ShouldEqual, config.BackendRedis)
			})
		})

		convey.Convey("When loading config with a YAML file", func() {
			path := writeConfigFile(t, `
addr: ":7070"
tick_rate_hz: 120
store_backend: sqlite
sqlite_path: /tmp/runs.db
history_limit: 5
`)
			setenv(config.FileEnv, path)

			cfg, err := config.Load()

			convey.Convey("Then file values apply and the rest keep defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.TickRateHz, convey.ShouldEqual, 120)
				convey.So(cfg.StoreBackend, convey.ShouldEqual, config.BackendSQLite)
				convey.So(cfg.SQLitePath, convey.ShouldEqual, "/tmp/runs.db")
				convey.So(cfg.HistoryLimit, convey.ShouldEqual, 5)
				convey.So(cfg.CountInBeats, convey.ShouldEqual, 4)
			})

			convey.Convey("And an env var sets the same key", func() {
				setenv("GROOVE_TICK_RATE_HZ", "30")
				cfg, err := config.Load()

				convey.Convey("Then the env var wins", func() {
					convey.So(err, convey.ShouldBeNil)
					convey.So(cfg.TickRateHz, convey.ShouldEqual, 30)
					convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				})
			})
		})

		convey.Convey("When the YAML file is malformed", func() {
			setenv(config.FileEnv, writeConfigFile(t, `invalid: yaml: content: [`))

			cfg, err := config.Load()

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the YAML file does not exist", func() {
			setenv(config.FileEnv, "/non/existent/file.yaml")

			cfg, err := config.Load()

			convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			convey.So(cfg, convey.ShouldBeNil)
		})

		convey.Convey("When the addr is empty", func() {
			setenv("GROOVE_ADDR", "")

			cfg, err := config.Load()

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When a numeric env var does not parse", func() {
			setenv("GROOVE_QUEUE_SIZE", "invalid")

			cfg, err := config.Load()

			convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			convey.So(cfg, convey.ShouldBeNil)
		})
	})
}
