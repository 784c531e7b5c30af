package service

import (
	"time"

	"github.com/okian/modelfusion/internal/adapters/repository"
	"github.com/okian/modelfusion/internal/adapters/sources"
	"github.com/okian/modelfusion/internal/domain/matching"
	"github.com/okian/modelfusion/internal/domain/scoring"
	"github.com/okian/modelfusion/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithSources sets the upstreams read by every pass.
func WithSources(srcs ...sources.Source) Option {
	return func(s *Service) {
		s.sources = append([]sources.Source(nil), srcs...)
	}
}

// WithMatcher replaces the identity matcher.
func WithMatcher(m *matching.Matcher) Option {
	return func(s *Service) {
		if m != nil {
			s.matcher = m
		}
	}
}

// WithScorer replaces the category scorer.
func WithScorer(sc *scoring.Scorer) Option {
	return func(s *Service) {
		if sc != nil {
			s.scorer = sc
		}
	}
}

// WithCache sets the point-lookup cache tiers.
func WithCache(c *repository.TieredCache) Option {
	return func(s *Service) {
		if c != nil {
			s.cache = c
		}
	}
}

// WithSchedule sets the cron spec for periodic passes. Empty disables it.
func WithSchedule(spec string) Option {
	return func(s *Service) {
		s.schedule = spec
	}
}

// WithFetchTimeout bounds each source fetch.
func WithFetchTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.fetchTimeout = d
		}
	}
}

// WithSnapshotPath sets the durable snapshot file. Empty disables it.
func WithSnapshotPath(path string) Option {
	return func(s *Service) {
		s.snapshotPath = path
	}
}

// WithWarmStart loads the snapshot file on Start.
func WithWarmStart(enabled bool) Option {
	return func(s *Service) {
		s.warmStart = enabled
	}
}

// WithConsolidateOnStart queues a pass as soon as the service starts.
func WithConsolidateOnStart(enabled bool) Option {
	return func(s *Service) {
		s.consolidateOnStart = enabled
	}
}

// WithMaxRankingLimit caps ranking page sizes.
func WithMaxRankingLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxRankingLimit = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock injects the time source stamped on passes.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithPassIDs replaces the pass id generator.
func WithPassIDs(next func() string) Option {
	return func(s *Service) {
		if next != nil {
			s.newPassID = next
		}
	}
}
