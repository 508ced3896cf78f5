package application

import (
	"github.com/rs/zerolog"

	"github.com/agentstation/cmdbsync/internal/auth"
	"github.com/agentstation/cmdbsync/pkg/metrics"
	"github.com/agentstation/cmdbsync/pkg/reconciler"
	"github.com/agentstation/cmdbsync/pkg/sync"
)

// Mock provides a mock implementation of Application for testing.
// Each method can be customized by setting the corresponding function field.
// If a function field is nil, the method returns a default/zero value.
type Mock struct {
	SettingsFunc     func() Settings
	ReaderFunc       func() (sync.Reader, error)
	WriterFunc       func() (reconciler.CatalogWriter, error)
	CredentialsFunc  func() auth.Credentials
	TokensFunc       func() (auth.TokenProvider, error)
	MetricsFunc      func() *metrics.Recorder
	LoggerFunc       func() *zerolog.Logger
	OutputFormatFunc func() string
	VersionFunc      func() string
	CommitFunc       func() string
	DateFunc         func() string
	BuiltByFunc      func() string
}

// Settings returns settings using the mock function or zero settings.
func (m *Mock) Settings() Settings {
	if m.SettingsFunc != nil {
		return m.SettingsFunc()
	}
	return Settings{}
}

// Reader returns a reader using the mock function or nil.
func (m *Mock) Reader() (sync.Reader, error) {
	if m.ReaderFunc != nil {
		return m.ReaderFunc()
	}
	return nil, nil
}

// Writer returns a writer using the mock function or nil.
func (m *Mock) Writer() (reconciler.CatalogWriter, error) {
	if m.WriterFunc != nil {
		return m.WriterFunc()
	}
	return nil, nil
}

// Credentials returns credentials using the mock function or zero credentials.
func (m *Mock) Credentials() auth.Credentials {
	if m.CredentialsFunc != nil {
		return m.CredentialsFunc()
	}
	return auth.Credentials{}
}

// TokenProvider returns a token provider using the mock function or nil.
func (m *Mock) TokenProvider() (auth.TokenProvider, error) {
	if m.TokensFunc != nil {
		return m.TokensFunc()
	}
	return nil, nil
}

// Metrics returns a recorder using the mock function or nil.
func (m *Mock) Metrics() *metrics.Recorder {
	if m.MetricsFunc != nil {
		return m.MetricsFunc()
	}
	return nil
}

// Logger returns a logger using the mock function or a no-op logger.
func (m *Mock) Logger() *zerolog.Logger {
	if m.LoggerFunc != nil {
		return m.LoggerFunc()
	}
	logger := zerolog.Nop()
	return &logger
}

// OutputFormat returns output format using the mock function or "table".
func (m *Mock) OutputFormat() string {
	if m.OutputFormatFunc != nil {
		return m.OutputFormatFunc()
	}
	return "table"
}

// Version returns version using the mock function or "dev".
func (m *Mock) Version() string {
	if m.VersionFunc != nil {
		return m.VersionFunc()
	}
	return "dev"
}

// Commit returns commit using the mock function or "unknown".
func (m *Mock) Commit() string {
	if m.CommitFunc != nil {
		return m.CommitFunc()
	}
	return "unknown"
}

// Date returns date using the mock function or "unknown".
func (m *Mock) Date() string {
	if m.DateFunc != nil {
		return m.DateFunc()
	}
	return "unknown"
}

// BuiltBy returns builtBy using the mock function or "test".
func (m *Mock) BuiltBy() string {
	if m.BuiltByFunc != nil {
		return m.BuiltByFunc()
	}
	return "test"
}

// Ensure Mock implements Application at compile time.
var _ Application = (*Mock)(nil)
