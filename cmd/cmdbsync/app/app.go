// Package app provides the application context and dependency management
// for the cmdbsync CLI. It centralizes configuration, logging and the
// catalog clients, which are created lazily once configuration has been
// validated.
package app

import (
	"context"
	"net/http"
	"sync"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/agentstation/cmdbsync/internal/auth"
	"github.com/agentstation/cmdbsync/internal/cmd/application"
	"github.com/agentstation/cmdbsync/internal/transport"
	"github.com/agentstation/cmdbsync/pkg/cmdb"
	"github.com/agentstation/cmdbsync/pkg/metrics"
	"github.com/agentstation/cmdbsync/pkg/reconciler"
	pkgsync "github.com/agentstation/cmdbsync/pkg/sync"
)

// App represents the cmdbsync application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	// Configuration, fixed when injected with WithConfig
	viper       *viper.Viper
	config      *Config
	fixedConfig bool

	// Logger
	logger *zerolog.Logger

	// HTTP client shared by every catalog and token request, nil for the
	// transport default
	httpClient *http.Client

	// Clients (lazy-initialized, singletons)
	mu      sync.Mutex
	reader  *cmdb.ReadClient
	writer  *cmdb.WriteClient
	tokens  *auth.PasswordGrant
	metrics *metrics.Recorder
	clients []*http.Client
}

var _ application.Application = (*App)(nil)

// New creates a new App instance with the given version information.
// The app is initialized from environment, .env files and the config file;
// flags are applied when a command runs.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
		viper:   newViper(),
	}

	config, err := LoadConfig(app.viper)
	if err != nil {
		return nil, err
	}
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Commit returns the git commit hash.
func (a *App) Commit() string {
	return a.commit
}

// Date returns the build date.
func (a *App) Date() string {
	return a.date
}

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string {
	return a.builtBy
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// OutputFormat returns the configured output format.
func (a *App) OutputFormat() string {
	return a.config.Format
}

// Settings returns the run settings of this invocation.
func (a *App) Settings() application.Settings {
	return application.Settings{
		SiteName:       a.config.SiteName,
		DryRun:         a.config.DryRun,
		DeleteNonLocal: a.config.DeleteNonLocal,
		Input:          a.config.Input,
		MetricsFile:    a.config.MetricsFile,
		Timeout:        a.config.Timeout,
	}
}

// Reader returns the read API client, creating it on first use.
func (a *App) Reader() (pkgsync.Reader, error) {
	if err := a.config.ValidateRead(); err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.reader == nil {
		t := a.newTransport()
		a.reader = cmdb.NewReadClient(a.config.ReadEndpoint, t)
	}
	return a.reader, nil
}

// Writer returns the write API client, creating it on first use. The OIDC
// token exchange goes through an HTTP client with the same TLS settings as
// catalog calls.
func (a *App) Writer() (reconciler.CatalogWriter, error) {
	if err := a.config.ValidateWrite(); err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.writer == nil {
		base := a.newTransport()
		t := transport.New(
			transport.WithHTTPClient(base.HTTPClient()),
			transport.WithTokenProvider(a.tokenProvider(base.HTTPClient())),
		)
		a.writer = cmdb.NewWriteClient(a.config.WriteEndpoint, t)
	}
	return a.writer, nil
}

// Credentials returns the configured OIDC settings.
func (a *App) Credentials() auth.Credentials {
	return a.config.Credentials()
}

// TokenProvider returns the password grant used by the writer.
func (a *App) TokenProvider() (auth.TokenProvider, error) {
	if err := a.config.ValidateCredentials(); err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	return a.tokenProvider(nil), nil
}

// tokenProvider returns the shared password grant, creating it with hc (or a
// fresh transport client when hc is nil). Callers hold a.mu.
func (a *App) tokenProvider(hc *http.Client) *auth.PasswordGrant {
	if a.tokens == nil {
		if hc == nil {
			hc = a.newTransport().HTTPClient()
		}
		a.tokens = auth.NewPasswordGrant(a.config.Credentials(), hc)
	}
	return a.tokens
}

// Metrics returns the run recorder when a metrics file is configured.
func (a *App) Metrics() *metrics.Recorder {
	if a.config.MetricsFile == "" {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.metrics == nil {
		a.metrics = metrics.New()
	}
	return a.metrics
}

// Shutdown performs graceful shutdown of the application, releasing idle
// catalog connections.
func (a *App) Shutdown(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, hc := range a.clients {
		hc.CloseIdleConnections()
	}
	a.clients = nil
	return nil
}

// newTransport builds a transport from the configuration. Callers hold a.mu.
func (a *App) newTransport() *transport.Client {
	t := transport.New(
		transport.WithHTTPClient(a.httpClient),
		transport.WithInsecureSkipVerify(a.config.AllowInsecure),
	)
	a.clients = append(a.clients, t.HTTPClient())
	return t
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration. Flags and environment are then
// ignored when a command runs.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		a.fixedConfig = true
		logger := NewLogger(config)
		a.logger = &logger
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithHTTPClient sets the HTTP client used for every catalog and token
// request (useful for testing).
func WithHTTPClient(hc *http.Client) Option {
	return func(a *App) error {
		a.httpClient = hc
		return nil
	}
}
