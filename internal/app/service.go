// Package service is the consolidation orchestrator: it runs passes over the
// configured sources, publishes their results and answers queries about them.
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rotisserie/eris"

	"github.com/okian/modelfusion/internal/adapters/mq/queue"
	"github.com/okian/modelfusion/internal/adapters/mq/worker"
	"github.com/okian/modelfusion/internal/adapters/repository"
	"github.com/okian/modelfusion/internal/adapters/sources"
	"github.com/okian/modelfusion/internal/domain/matching"
	"github.com/okian/modelfusion/internal/domain/scoring"
	"github.com/okian/modelfusion/pkg/logger"
)

const (
	defaultFetchTimeout    = 45 * time.Second
	defaultMaxRankingLimit = 100
)

// Service owns the pass pipeline and the published state.
type Service struct {
	mu sync.RWMutex

	// Core components
	sources []sources.Source
	matcher *matching.Matcher
	scorer  *scoring.Scorer
	state   *repository.State
	cache   *repository.TieredCache
	queue   queue.Queue
	worker  *worker.PassWorker
	cron    *cron.Cron

	// Configuration
	schedule           string
	fetchTimeout       time.Duration
	snapshotPath       string
	warmStart          bool
	consolidateOnStart bool
	maxRankingLimit    int
	now                func() time.Time
	newPassID          func() string

	// passMu keeps passes strictly sequential, including ones run directly.
	passMu sync.Mutex

	// State
	started bool
	cancel  context.CancelFunc

	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		matcher:         matching.New(),
		scorer:          scoring.New(),
		state:           repository.NewState(),
		cache:           repository.NewTieredCache(nil),
		queue:           queue.NewInMemoryQueue(),
		fetchTimeout:    defaultFetchTimeout,
		maxRankingLimit: defaultMaxRankingLimit,
		now:             time.Now,
		newPassID:       uuid.NewString,
		logger:          logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start loads the warm snapshot, starts the pass worker and the scheduler,
// and queues the startup pass when configured.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting consolidation service...")

	if s.warmStart && s.snapshotPath != "" {
		s.loadWarmSnapshot(ctx)
	}

	runCtx, cancel := context.WithCancel(ctx)

	if s.schedule != "" {
		c := cron.New()
		if _, err := c.AddFunc(s.schedule, func() { s.enqueue(runCtx, queue.ReasonSchedule) }); err != nil {
			cancel()
			return eris.Wrapf(ErrInvalidSchedule, "%q: %v", s.schedule, err)
		}
		s.cron = c
		c.Start()
	}

	s.worker = worker.NewPassWorker(s.queue, s, worker.WithName("consolidation"), worker.WithLogger(s.logger.Named("worker")))
	go s.worker.Run(runCtx)

	s.cancel = cancel
	s.started = true

	if s.consolidateOnStart {
		s.enqueue(runCtx, queue.ReasonStartup)
	}

	s.logger.Info(ctx, "consolidation service started",
		logger.Int("sources", len(s.sources)),
		logger.String("schedule", s.schedule),
		logger.Bool("primary_cache", s.cache.PrimaryConfigured()),
	)
	return nil
}

// Stop halts the scheduler, lets the pass in flight finish within ctx and
// releases the cache.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	s.logger.Info(ctx, "stopping consolidation service...")

	if s.cron != nil {
		stopped := s.cron.Stop()
		select {
		case <-stopped.Done():
		case <-ctx.Done():
		}
	}

	_ = s.queue.Close()

	var err error
	if s.worker != nil {
		err = s.worker.Shutdown(ctx)
	}
	s.cancel()

	if cerr := s.cache.Close(); cerr != nil {
		s.logger.Warn(ctx, "error closing cache", logger.Error(cerr))
	}

	s.started = false
	s.logger.Info(ctx, "consolidation service stopped")
	return err
}

// TriggerResult reports what happened to a consolidation request.
type TriggerResult struct {
	Accepted bool `json:"accepted"`
	// Coalesced is set when a pass was already waiting and will cover this request.
	Coalesced bool   `json:"coalesced"`
	Message   string `json:"message"`
}

// TriggerConsolidation requests an asynchronous pass. It never waits for
// the pass itself.
func (s *Service) TriggerConsolidation(ctx context.Context) TriggerResult {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if !started {
		return TriggerResult{Message: "service is not running"}
	}

	err := s.queue.Enqueue(ctx, queue.Trigger{Reason: queue.ReasonManual, RequestedAt: s.now()})
	switch {
	case err == nil:
		return TriggerResult{Accepted: true, Message: "consolidation queued"}
	case errors.Is(err, queue.ErrQueueFull):
		return TriggerResult{Accepted: true, Coalesced: true, Message: "consolidation already pending"}
	default:
		s.logger.Warn(ctx, "trigger rejected", logger.Error(err))
		return TriggerResult{Message: "service is shutting down"}
	}
}

func (s *Service) enqueue(ctx context.Context, reason string) {
	err := s.queue.Enqueue(ctx, queue.Trigger{Reason: reason, RequestedAt: s.now()})
	if err != nil && !errors.Is(err, queue.ErrQueueFull) {
		s.logger.Warn(ctx, "trigger dropped", logger.String("reason", reason), logger.Error(err))
	}
}

func (s *Service) loadWarmSnapshot(ctx context.Context) {
	snap, err := repository.LoadSnapshotFile(s.snapshotPath)
	if err != nil {
		s.logger.Warn(ctx, "warm start skipped", logger.String("path", s.snapshotPath), logger.Error(err))
		return
	}
	if err := s.cache.Put(ctx, snap.Models); err != nil {
		s.logger.Warn(ctx, "warm start cache write failed", logger.Error(err))
	}
	s.state.Publish(snap)
	s.logger.Info(ctx, "warm start loaded",
		logger.Int("models", len(snap.Models)),
		logger.String("pass_id", snap.PassID),
	)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":         s.started,
		"sources":         len(s.sources),
		"schedule":        s.schedule,
		"totalModels":     s.state.Count(),
		"queueLength":     s.queue.Len(ctx),
		"primaryCache":    s.cache.PrimaryConfigured(),
		"fallbackInUse":   s.cache.FallbackInUse(),
		"maxRankingLimit": s.maxRankingLimit,
	}
	if snap := s.state.Current(); snap != nil {
		stats["lastPassID"] = snap.PassID
		stats["lastTrigger"] = snap.Trigger
		stats["lastPassDurationMs"] = snap.Duration.Milliseconds()
		stats["ambiguousMatches"] = snap.Ambiguities
		stats["synthesizedModels"] = snap.Synthesized
		stats["skippedModels"] = snap.Skipped
	}
	if s.worker != nil {
		stats["passRunning"] = s.worker.Busy()
		stats["passesCompleted"] = s.worker.Completed()
	}
	return stats
}
