package worker

import (
	"github.com/okian/modelfusion/pkg/logger"
)

// Option applies a configuration option to the PassWorker.
type Option func(*PassWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *PassWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(logger logger.Logger) Option {
	return func(w *PassWorker) {
		if logger != nil {
			w.logger = logger
		}
	}
}
