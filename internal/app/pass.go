package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/okian/modelfusion/internal/adapters/mq/queue"
	"github.com/okian/modelfusion/internal/adapters/repository"
	"github.com/okian/modelfusion/internal/domain/model"
	"github.com/okian/modelfusion/internal/domain/scoring"
	"github.com/okian/modelfusion/pkg/logger"
	"github.com/okian/modelfusion/pkg/metrics"
)

type fetchResult struct {
	kind    model.SourceKind
	records model.RecordSet
	quality model.DataQuality
	enabled bool
}

// RunPass executes one consolidation pass and publishes its result. Source
// failures and per-model failures reduce coverage; only cancellation aborts
// the pass, in which case the previous state stays published.
func (s *Service) RunPass(ctx context.Context, t queue.Trigger) error {
	s.passMu.Lock()
	defer s.passMu.Unlock()

	start := time.Now()
	passID := s.newPassID()
	log := s.logger.Named("pass")
	log.Info(ctx, "consolidation pass started", logger.String("pass_id", passID), logger.String("trigger", t.Reason))

	fetched := s.fetchAll(ctx, passID)
	if err := ctx.Err(); err != nil {
		return eris.Wrapf(ErrPassAborted, "pass %s: %v", passID, err)
	}

	byKind := map[model.SourceKind]model.RecordSet{}
	statuses := map[model.SourceKind]repository.SourceStatus{}
	for _, f := range fetched {
		byKind[f.kind] = f.records
		statuses[f.kind] = repository.SourceStatus{Quality: f.quality, Records: len(f.records), Enabled: f.enabled}
	}

	matched := s.matcher.Match(ctx, byKind[model.SourceStatic], byKind[model.SourceBenchmarks], byKind[model.SourceAnalytics])
	metrics.RecordAmbiguousMatches(len(matched.Ambiguities))
	for _, amb := range matched.Ambiguities {
		log.Warn(ctx, "ambiguous match, keeping first candidate",
			logger.String("pass_id", passID),
			logger.String("model_id", amb.ModelID),
			logger.String("source", string(amb.Source)),
			logger.String("chosen", amb.Chosen),
			logger.Int("candidates", len(amb.Candidates)),
		)
	}

	completedAt := s.now()
	models := make(map[string]model.EnhancedModel, len(matched.Bundles))
	skipped := 0
	for _, id := range sortedBundleIDs(matched.Bundles) {
		em, err := s.consolidate(matched.Bundles[id], statuses, passID, completedAt)
		if errors.Is(err, ErrNoScores) {
			skipped++
			metrics.RecordModelSkipped("no_scores")
			log.Debug(ctx, "model has no scorable category", logger.String("pass_id", passID), logger.String("model_id", id))
			continue
		}
		if err != nil {
			skipped++
			metrics.RecordModelSkipped("processing_failure")
			log.Warn(ctx, "model skipped", logger.String("pass_id", passID), logger.String("model_id", id), logger.Error(err))
			continue
		}
		models[id] = em
	}

	if err := ctx.Err(); err != nil {
		return eris.Wrapf(ErrPassAborted, "pass %s: %v", passID, err)
	}

	if err := s.cache.Put(ctx, models); err != nil {
		log.Warn(ctx, "primary cache write failed", logger.String("pass_id", passID), logger.Error(err))
	}

	duration := time.Since(start)
	s.state.Publish(&repository.Snapshot{
		PassID:      passID,
		Trigger:     t.Reason,
		CompletedAt: completedAt,
		Duration:    duration,
		Models:      models,
		Sources:     statuses,
		Ambiguities: len(matched.Ambiguities),
		Synthesized: matched.Synthesized,
		Skipped:     skipped,
	})

	if s.snapshotPath != "" {
		if err := repository.WriteSnapshotFile(s.snapshotPath, models); err != nil {
			log.Warn(ctx, "snapshot write failed", logger.String("pass_id", passID), logger.Error(err))
		}
	}

	metrics.RecordPass(t.Reason, float64(duration.Milliseconds()), len(models), matched.Synthesized)
	log.Info(ctx, "consolidation pass completed",
		logger.String("pass_id", passID),
		logger.Int("models", len(models)),
		logger.Int("synthesized", matched.Synthesized),
		logger.Int("ambiguous", len(matched.Ambiguities)),
		logger.Int("skipped", skipped),
		logger.Duration("duration", duration),
	)
	return nil
}

// fetchAll reads every source concurrently, each under its own timeout.
// A failing source contributes an empty set.
func (s *Service) fetchAll(ctx context.Context, passID string) []fetchResult {
	results := make([]fetchResult, len(s.sources))
	g, gctx := errgroup.WithContext(ctx)

	for i, src := range s.sources {
		g.Go(func() error {
			fctx, cancel := context.WithTimeout(gctx, s.fetchTimeout)
			defer cancel()

			kind := src.Kind()
			start := time.Now()
			records, _, err := src.Fetch(fctx)
			if err != nil {
				metrics.RecordSourceError(string(kind), "fetch")
				s.logger.Warn(ctx, "source unavailable, continuing without it",
					logger.String("pass_id", passID),
					logger.String("source", string(kind)),
					logger.Error(err),
				)
				records = model.RecordSet{}
			}
			q := src.Quality()
			metrics.RecordSourceFetch(string(kind), float64(time.Since(start).Milliseconds()), len(records), q.Composite)
			results[i] = fetchResult{kind: kind, records: records, quality: q, enabled: src.Enabled()}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// consolidate scores one bundle. A bundle without a single scored category
// yields ErrNoScores and is not published. A panic anywhere in scoring only
// costs this model.
func (s *Service) consolidate(b model.Bundle, statuses map[model.SourceKind]repository.SourceStatus, passID string, at time.Time) (em model.EnhancedModel, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = eris.Errorf("panic consolidating %s: %v", b.ID, r)
		}
	}()

	scores, err := s.scorer.Score(b)
	if err != nil {
		return model.EnhancedModel{}, err
	}
	if len(scores) == 0 {
		return model.EnhancedModel{}, eris.Wrapf(ErrNoScores, "model %s", b.ID)
	}

	var static model.StaticSnapshot
	if b.Static != nil {
		static = *b.Static
	}

	provenance := map[model.SourceKind]model.DataQuality{}
	for _, kind := range model.Sources {
		if b.Has(kind) {
			provenance[kind] = statuses[kind].Quality
		}
	}

	return model.EnhancedModel{
		ModelID:        b.ID,
		Provider:       static.Provider,
		DisplayName:    static.DisplayName,
		StaticSnapshot: static,
		CategoryScores: scores,
		Provenance:     provenance,
		Performance:    scoring.Summarize(scores),
		OverallQuality: scoring.OverallQuality(b),
		Synthesized:    b.Synthesized,
		PassID:         passID,
		ConsolidatedAt: at,
	}, nil
}

func sortedBundleIDs(bundles map[string]model.Bundle) []string {
	ids := make([]string, 0, len(bundles))
	for id := range bundles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
