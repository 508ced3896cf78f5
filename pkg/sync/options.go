// Package sync runs one complete catalog sync: it resolves the site's
// service, loads the remote inventory and hands both inventories to the
// reconciler.
package sync

import (
	"time"

	"github.com/agentstation/cmdbsync/pkg/errors"
	"github.com/agentstation/cmdbsync/pkg/metrics"
)

// Options controls the overall sync orchestration.
type Options struct {
	SiteName       string        // Site whose service is reconciled
	DryRun         bool          // Show changes without applying them
	DeleteNonLocal bool          // Delete remote images missing from the local inventory
	Timeout        time.Duration // Timeout for the entire sync operation
	RunID          string        // Identifier attached to logs and the result
	Metrics        *metrics.Recorder
}

// Apply applies the given options to the sync options.
func (s *Options) Apply(opts ...Option) *Options {
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Defaults returns the default sync options.
func Defaults() *Options {
	return &Options{}
}

// NewOptions returns the defaults with opts applied.
func NewOptions(opts ...Option) *Options {
	return Defaults().Apply(opts...)
}

// Option is a function that configures sync Options.
type Option func(*Options)

// Validate checks if the sync options are valid.
func (s *Options) Validate() error {
	if s.SiteName == "" {
		return errors.NewConfigError("sync", "site name is required", nil)
	}
	if s.Timeout < 0 {
		return errors.NewConfigError("sync", "timeout must be non-negative", nil)
	}
	return nil
}

// WithSiteName sets the site to reconcile.
func WithSiteName(site string) Option {
	return func(opts *Options) {
		opts.SiteName = site
	}
}

// WithDryRun configures dry run mode.
func WithDryRun(dryRun bool) Option {
	return func(opts *Options) {
		opts.DryRun = dryRun
	}
}

// WithDeleteNonLocal enables destructive sync.
func WithDeleteNonLocal(enabled bool) Option {
	return func(opts *Options) {
		opts.DeleteNonLocal = enabled
	}
}

// WithTimeout configures the sync timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(opts *Options) {
		opts.Timeout = timeout
	}
}

// WithRunID sets the run identifier.
func WithRunID(id string) Option {
	return func(opts *Options) {
		opts.RunID = id
	}
}

// WithMetrics records the run on m.
func WithMetrics(m *metrics.Recorder) Option {
	return func(opts *Options) {
		opts.Metrics = m
	}
}
