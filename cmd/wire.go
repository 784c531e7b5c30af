package main

import (
	"context"
	"net/http"
	"sort"

	"github.com/okian/modelfusion/internal/adapters/http/api"
	"github.com/okian/modelfusion/internal/adapters/http/site"
	"github.com/okian/modelfusion/internal/adapters/http/swagger"
	"github.com/okian/modelfusion/internal/adapters/repository"
	"github.com/okian/modelfusion/internal/adapters/sources"
	service "github.com/okian/modelfusion/internal/app"
	"github.com/okian/modelfusion/internal/config"
	"github.com/okian/modelfusion/internal/domain/matching"
	"github.com/okian/modelfusion/internal/domain/scoring"
	"github.com/okian/modelfusion/pkg/logger"
)

func buildSources(cfg *config.Config, log logger.Logger) []sources.Source {
	return []sources.Source{
		sources.NewStatic(cfg.StaticCatalogPath, sources.WithLogger(log.Named("static"))),
		sources.NewBenchmark(cfg.BenchmarkDir, cfg.BenchmarkPattern, sources.WithLogger(log.Named("benchmarks"))),
		sources.NewAnalytics(cfg.AnalyticsURL, cfg.AnalyticsAPIKey,
			sources.WithLogger(log.Named("analytics")),
			sources.WithHTTPClient(&http.Client{Timeout: cfg.AnalyticsTimeout()}),
			sources.WithRate(cfg.AnalyticsRatePerSec),
		),
	}
}

// buildScorer applies configured category overrides on top of the
// built-in table. Names were validated by config.Load.
func buildScorer(cfg *config.Config) *scoring.Scorer {
	names := make([]string, 0, len(cfg.Categories))
	for name := range cfg.Categories {
		names = append(names, name)
	}
	sort.Strings(names)

	var opts []scoring.Option
	for _, name := range names {
		c, ok := scoring.ParseCategory(name)
		if !ok {
			continue
		}
		cc := cfg.Categories[name]
		opts = append(opts, scoring.WithDefinition(c, cc.Weights, cc.Formula))
	}
	return scoring.New(opts...)
}

// buildCache returns the tiered cache. An unreachable redis is not fatal:
// the memory tier serves until it answers again.
func buildCache(ctx context.Context, cfg *config.Config, log logger.Logger) *repository.TieredCache {
	cacheLog := log.Named("cache")
	if cfg.RedisAddr == "" {
		return repository.NewTieredCache(nil, repository.WithLogger(cacheLog))
	}

	primary := repository.NewRedisCache(
		repository.RedisConfig{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB},
		repository.WithTTL(cfg.CacheTTL()),
		repository.WithKeyPrefix(cfg.CacheKeyPrefix),
	)
	if err := primary.Ping(ctx); err != nil {
		cacheLog.Warn(ctx, "redis unreachable at startup; serving from memory", logger.String("addr", cfg.RedisAddr), logger.Error(err))
	}
	return repository.NewTieredCache(primary, repository.WithLogger(cacheLog))
}

// buildService wires every component from cfg. extra options are applied last.
func buildService(ctx context.Context, cfg *config.Config, log logger.Logger, extra ...service.Option) *service.Service {
	opts := []service.Option{
		service.WithLogger(log.Named("service")),
		service.WithSources(buildSources(cfg, log)...),
		service.WithMatcher(matching.New(matching.WithLogger(log.Named("matcher")))),
		service.WithScorer(buildScorer(cfg)),
		service.WithCache(buildCache(ctx, cfg, log)),
		service.WithSchedule(cfg.ConsolidationSchedule),
		service.WithFetchTimeout(cfg.FetchTimeout()),
		service.WithSnapshotPath(cfg.SnapshotPath),
		service.WithWarmStart(cfg.WarmStart),
		service.WithConsolidateOnStart(cfg.ConsolidateOnStart),
		service.WithMaxRankingLimit(cfg.MaxRankingLimit),
	}
	return service.New(append(opts, extra...)...)
}

// newMux registers the dashboard, the API docs and the business API.
func newMux(ctx context.Context, svc *service.Service, log logger.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	site.Register(ctx, mux)
	swagger.Register(ctx, mux)
	api.NewServer(svc, svc, api.WithLogger(log.Named("http"))).Register(ctx, mux)
	return mux
}
