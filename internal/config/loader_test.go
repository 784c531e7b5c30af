package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/modelfusion/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.StaticCatalogPath, convey.ShouldEqual, "configs/models.json")
				convey.So(cfg.ConsolidationSchedule, convey.ShouldEqual, "@every 1h")
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("FUSION_ADDR", ":8080")
			_ = os.Setenv("FUSION_REDIS_ADDR", "localhost:6379")
			_ = os.Setenv("FUSION_REDIS_DB", "3")
			_ = os.Setenv("FUSION_CACHE_TTL_SECONDS", "60")
			_ = os.Setenv("FUSION_WARM_START", "false")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.RedisAddr, convey.ShouldEqual, "localhost:6379")
				convey.So(cfg.RedisDB, convey.ShouldEqual, 3)
				convey.So(cfg.CacheTTLSeconds, convey.ShouldEqual, 60)
				convey.So(cfg.WarmStart, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When loading config with legacy variables", func() {
			_ = os.Setenv("ANALYTICS_API_KEY", "legacy-key")
			_ = os.Setenv("SCRAPED_DATA_DIR", "/data/scraped")
			_ = os.Setenv("MODELS_JSON_PATH", "/data/models.json")

			cfg, err := config.Load(ctx)

			convey.Convey("Then they populate the matching fields", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.AnalyticsAPIKey, convey.ShouldEqual, "legacy-key")
				convey.So(cfg.BenchmarkDir, convey.ShouldEqual, "/data/scraped")
				convey.So(cfg.StaticCatalogPath, convey.ShouldEqual, "/data/models.json")
			})

			convey.Convey("Then prefixed variables still win", func() {
				_ = os.Setenv("FUSION_ANALYTICS_API_KEY", "new-key")
				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.AnalyticsAPIKey, convey.ShouldEqual, "new-key")
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			tmpFile := createTempConfigFile(`
addr: ":9090"
benchmark_dir: "/srv/bench"
cache_ttl_seconds: 120
categories:
  coding:
    formula: balanced_average
    weights:
      humaneval: 2
`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv(config.EnvConfigFile, tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.BenchmarkDir, convey.ShouldEqual, "/srv/bench")
				convey.So(cfg.CacheTTLSeconds, convey.ShouldEqual, 120)
				convey.So(cfg.Categories["coding"].Formula, convey.ShouldEqual, "balanced_average")
				convey.So(cfg.Categories["coding"].Weights["humaneval"], convey.ShouldEqual, 2)
			})

			convey.Convey("Then environment variables should override file values", func() {
				_ = os.Setenv("FUSION_ADDR", ":7070")
				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.BenchmarkDir, convey.ShouldEqual, "/srv/bench")
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(`invalid: yaml: content: [`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv(config.EnvConfigFile, tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv(config.EnvConfigFile, "/non/existent/file.yaml")

			cfg, err := config.Load(ctx)

			convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			convey.So(cfg, convey.ShouldBeNil)
		})

		convey.Convey("When the file sets an empty addr", func() {
			tmpFile := createTempConfigFile(`addr: ""`)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv(config.EnvConfigFile, tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When a numeric variable is not a number", func() {
			_ = os.Setenv("FUSION_CACHE_TTL_SECONDS", "soon")

			cfg, err := config.Load(ctx)

			convey.So(err, convey.ShouldNotBeNil)
			convey.So(cfg, convey.ShouldBeNil)
		})
	})
}

func clearConfigEnvVars() {
	envVars := []string{
		config.EnvConfigFile,
		"FUSION_ADDR",
		"FUSION_REDIS_ADDR",
		"FUSION_REDIS_DB",
		"FUSION_CACHE_TTL_SECONDS",
		"FUSION_WARM_START",
		"FUSION_ANALYTICS_API_KEY",
		"ANALYTICS_API_KEY",
		"SCRAPED_DATA_DIR",
		"MODELS_JSON_PATH",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "fusion-config-*.yaml")
	if err != nil {
		panic(err)
	}
	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}
	if err := tmpFile.Close(); err != nil {
		panic(err)
	}
	return tmpFile.Name()
}
