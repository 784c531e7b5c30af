package probe

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/okian/modelfusion/pkg/logger"
)

// Run executes the complete probe. A ranking or lookup that disagrees with
// the published data fails the run; a pass published mid-run by the
// scheduler only produces a warning.
func Run(ctx context.Context, cfg Config) (Stats, error) {
	cfg.withDefaults()
	start := time.Now()
	log := cfg.Logger
	client := newHTTPClient(cfg.BaseURL, cfg.Timeout)
	var stats Stats

	log.Info(ctx, "starting probe",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("categories", len(cfg.Categories)),
		logger.Int("limit", cfg.Limit),
	)

	// Step 1: health
	if err := client.getJSON(ctx, "/healthz", nil); err != nil {
		return stats, eris.Wrapf(ErrUnhealthy, "%v", err)
	}

	// Step 2: baseline and trigger
	var before Status
	if err := client.getJSON(ctx, "/status", &before); err != nil {
		return stats, err
	}
	current := before
	if !cfg.SkipTrigger {
		if err := client.do(ctx, http.MethodPost, "/consolidate", http.StatusAccepted, nil); err != nil {
			return stats, err
		}
		log.Info(ctx, "consolidation triggered", logger.String("previousPass", before.LastPassID))

		var err error
		if current, err = waitForPass(ctx, client, before.LastPassID, cfg); err != nil {
			return stats, err
		}
	}
	stats.PassID = current.LastPassID
	stats.Models = current.TotalModels
	log.Info(ctx, "pass published",
		logger.String("passID", current.LastPassID),
		logger.Int("models", current.TotalModels),
		logger.Float64("dataQuality", current.DataQuality),
	)

	// Step 3: rankings
	rankings, err := fetchRankings(ctx, client, cfg)
	if err != nil {
		return stats, err
	}
	for _, r := range rankings {
		if err := verifyRanking(r, cfg.Limit); err != nil {
			return stats, err
		}
		stats.CategoriesChecked++
		stats.EntriesChecked += len(r.Rankings)
	}

	// Step 4: point lookups of each category leader
	for _, r := range rankings {
		if len(r.Rankings) == 0 {
			stats.Warnings = append(stats.Warnings, fmt.Sprintf("%s: no models scored", r.Category))
			continue
		}
		top := r.Rankings[0]
		var ms ModelScores
		if err := client.getJSON(ctx, "/models/"+url.PathEscape(top.ModelID)+"/scores", &ms); err != nil {
			return stats, err
		}
		if ms.PassID != stats.PassID {
			stats.Warnings = append(stats.Warnings, fmt.Sprintf("%s: served from pass %s while verifying %s", top.ModelID, ms.PassID, stats.PassID))
			continue
		}
		if err := verifyModel(r.Category, top, ms); err != nil {
			return stats, err
		}
		stats.ModelsChecked++
	}

	stats.Duration = time.Since(start)
	for _, w := range stats.Warnings {
		log.Warn(ctx, "probe warning", logger.String("detail", w))
	}
	log.Info(ctx, "probe completed",
		logger.String("passID", stats.PassID),
		logger.Int("categoriesChecked", stats.CategoriesChecked),
		logger.Int("entriesChecked", stats.EntriesChecked),
		logger.Int("modelsChecked", stats.ModelsChecked),
		logger.Duration("duration", stats.Duration),
	)
	return stats, nil
}

// waitForPass polls /status until a pass other than previous is published
// and no pass is running.
func waitForPass(ctx context.Context, client *httpClient, previous string, cfg Config) (Status, error) {
	deadline := time.NewTimer(cfg.Wait)
	defer deadline.Stop()
	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()

	for {
		var st Status
		if err := client.getJSON(ctx, "/status", &st); err != nil {
			return st, err
		}
		if st.LastPassID != "" && st.LastPassID != previous && !st.PassRunning {
			return st, nil
		}

		select {
		case <-ctx.Done():
			return st, ctx.Err()
		case <-deadline.C:
			return st, eris.Wrapf(ErrPassTimeout, "waited %s after pass %q", cfg.Wait, previous)
		case <-ticker.C:
		}
	}
}

// fetchRankings reads every category concurrently, bounded by cfg.Workers.
func fetchRankings(ctx context.Context, client *httpClient, cfg Config) ([]Ranking, error) {
	out := make([]Ranking, len(cfg.Categories))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)

	for i, category := range cfg.Categories {
		g.Go(func() error {
			path := fmt.Sprintf("/rankings/%s?limit=%d", url.PathEscape(category), cfg.Limit)
			return client.getJSON(gctx, path, &out[i])
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
