package reconciler

import (
	"github.com/agentstation/cmdbsync/pkg/errors"
	"github.com/agentstation/cmdbsync/pkg/metrics"
)

// options configures a reconciler.
type options struct {
	deleteNonLocal bool
	dryRun         bool
	runID          string
	metrics        *metrics.Recorder
}

func defaultOptions() *options {
	return &options{}
}

// Option is a function that configures a Reconciler.
type Option func(*options) error

func (o *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// newOptions returns reconciler options with default values.
func newOptions(opts ...Option) (*options, error) {
	return defaultOptions().apply(opts...)
}

// WithDeleteNonLocal enables destructive sync: remote images with no local
// counterpart are deleted.
func WithDeleteNonLocal(enabled bool) Option {
	return func(o *options) error {
		o.deleteNonLocal = enabled
		return nil
	}
}

// WithDryRun partitions and reports without any write call.
func WithDryRun(enabled bool) Option {
	return func(o *options) error {
		o.dryRun = enabled
		return nil
	}
}

// WithRunID tags the result with a run identifier.
func WithRunID(id string) Option {
	return func(o *options) error {
		if id == "" {
			return errors.NewConfigError("reconciler", "run id cannot be empty", nil)
		}
		o.runID = id
		return nil
	}
}

// WithMetrics records every operation on m.
func WithMetrics(m *metrics.Recorder) Option {
	return func(o *options) error {
		o.metrics = m
		return nil
	}
}
