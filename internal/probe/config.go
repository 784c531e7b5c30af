// Package probe runs an end-to-end check against a running server: it
// triggers a consolidation, waits for the new pass and verifies what the
// query endpoints return.
package probe

import (
	"time"

	"github.com/okian/modelfusion/pkg/logger"
)

// Defaults for Config fields left zero.
const (
	DefaultLimit        = 10
	DefaultTimeout      = 30 * time.Second
	DefaultWait         = 2 * time.Minute
	DefaultPollInterval = time.Second
)

// Config holds configuration for a probe run.
type Config struct {
	BaseURL      string
	Categories   []string
	Limit        int
	Workers      int
	Timeout      time.Duration // per request
	Wait         time.Duration // for the triggered pass
	PollInterval time.Duration
	// SkipTrigger verifies the currently published pass instead.
	SkipTrigger bool
	Logger      logger.Logger
}

func (c *Config) withDefaults() {
	if c.Limit <= 0 {
		c.Limit = DefaultLimit
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Wait <= 0 {
		c.Wait = DefaultWait
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if len(c.Categories) == 0 {
		c.Categories = []string{"coding", "math", "reasoning", "creative_writing", "general", "question", "chat"}
	}
	if c.Logger == nil {
		c.Logger = logger.Nop()
	}
}

// Status is the subset of GET /status the probe reads.
type Status struct {
	Status            string     `json:"status"`
	TotalModels       int        `json:"total_models"`
	DataQuality       float64    `json:"data_quality"`
	LastConsolidation *time.Time `json:"last_consolidation"`
	LastPassID        string     `json:"last_pass_id"`
	PassRunning       bool       `json:"pass_running"`
}

// Entry is one ranking row.
type Entry struct {
	Rank       int     `json:"rank"`
	ModelID    string  `json:"model_id"`
	Score      float64 `json:"score"`
	Confidence float64 `json:"confidence"`
}

// Ranking is the GET /rankings/{category} response.
type Ranking struct {
	Category    string  `json:"category"`
	Rankings    []Entry `json:"rankings"`
	TotalModels int     `json:"total_models"`
}

// ModelScores is the subset of GET /models/{id}/scores the probe reads.
type ModelScores struct {
	ModelID        string                    `json:"model_id"`
	PassID         string                    `json:"pass_id"`
	CategoryScores map[string]map[string]any `json:"category_scores"`
}

// Stats summarises a probe run.
type Stats struct {
	PassID            string
	Models            int
	CategoriesChecked int
	EntriesChecked    int
	ModelsChecked     int
	Warnings          []string
	Duration          time.Duration
}
