// Package application provides the application interface for cmdbsync
// commands.
//
// Commands accept this interface rather than the concrete App type so they
// can be tested with Mock:
//
//	mock := &application.Mock{
//	    SettingsFunc: func() application.Settings {
//	        return application.Settings{SiteName: "CYFRONET-CLOUD"}
//	    },
//	}
//	cmd := images.NewCommand(mock)
package application

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/cmdbsync/internal/auth"
	"github.com/agentstation/cmdbsync/pkg/metrics"
	"github.com/agentstation/cmdbsync/pkg/reconciler"
	"github.com/agentstation/cmdbsync/pkg/sync"
)

// Settings are the resolved run settings a command acts on.
type Settings struct {
	SiteName       string
	DryRun         bool
	DeleteNonLocal bool
	Input          string // Local inventory file, stdin when empty
	MetricsFile    string // Prometheus textfile written after a sync
	Timeout        time.Duration
}

// Application provides the dependencies commands need.
type Application interface {
	// Settings returns the resolved configuration for this invocation.
	Settings() Settings

	// Reader returns the read API client. Missing read settings are
	// reported as a configuration error before any network call.
	Reader() (sync.Reader, error)

	// Writer returns the write API client. Missing credentials are
	// reported as a configuration error before any network call.
	Writer() (reconciler.CatalogWriter, error)

	// Credentials returns the configured OIDC settings.
	Credentials() auth.Credentials

	// TokenProvider returns the OIDC token source shared with Writer.
	// Missing credentials are reported as a configuration error.
	TokenProvider() (auth.TokenProvider, error)

	// Metrics returns the run recorder, or nil when metrics are disabled.
	Metrics() *metrics.Recorder

	// Logger returns the configured logger instance.
	Logger() *zerolog.Logger

	// OutputFormat returns the configured output format (table, wide, json, yaml).
	OutputFormat() string

	Version() string
	Commit() string
	Date() string
	BuiltBy() string
}
