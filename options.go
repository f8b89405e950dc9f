package kresource

import (
	"github.com/go-kresource/kresource/internal/interfaces"
	"github.com/go-kresource/kresource/internal/logging"
)

// Options configures a set of Managers/Events/Workers sharing a
// logger, metrics collector, and worker tuning.
type Options struct {
	Logger   interfaces.Logger
	Observer interfaces.Observer
	Worker   WorkerOptions
}

// DefaultOptions returns the package defaults: the process-wide
// default logger, a fresh Metrics collector, and default worker
// tuning.
func DefaultOptions() Options {
	return Options{
		Logger:   logging.Default(),
		Observer: NewMetrics(),
		Worker:   DefaultWorkerOptions(),
	}
}
