// Package errors provides custom error types for the cmdbsync system.
// These errors let callers tell fatal, run-aborting failures apart from
// per-record failures that are logged and skipped.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Is and As are re-exported so callers need a single errors import.
var (
	Is = errors.Is
	As = errors.As
)

// Common sentinel errors for the cmdbsync system
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates that the catalog rejected the bearer token
	ErrUnauthorized = errors.New("unauthorized")

	// ErrStaleRevision indicates that a write targeted a revision that is no longer current
	ErrStaleRevision = errors.New("stale revision")

	// ErrServiceResolution indicates that the site name did not map to exactly one service
	ErrServiceResolution = errors.New("service resolution failed")

	// ErrCatalogUnavailable indicates that the catalog answered with a server error
	ErrCatalogUnavailable = errors.New("catalog unavailable")

	// ErrTimeout indicates that an operation timed out
	ErrTimeout = errors.New("operation timed out")

	// ErrCanceled indicates that an operation was canceled
	ErrCanceled = errors.New("operation canceled")
)

// APIError represents a non-success response from one of the catalog APIs.
type APIError struct {
	Endpoint   string
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("API error from %s (status %d): %s", e.Endpoint, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error from %s: %s", e.Endpoint, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *APIError) Is(target error) bool {
	switch {
	case e.StatusCode == http.StatusUnauthorized:
		return target == ErrUnauthorized
	case e.StatusCode == http.StatusConflict:
		return target == ErrStaleRevision
	case e.StatusCode == http.StatusNotFound:
		return target == ErrNotFound
	case e.StatusCode >= 500:
		return target == ErrCatalogUnavailable
	}
	return false
}

// NewAPIError creates a new APIError
func NewAPIError(endpoint string, statusCode int, message string) *APIError {
	return &APIError{
		Endpoint:   endpoint,
		StatusCode: statusCode,
		Message:    message,
	}
}

// ConfigError represents a missing or invalid setting detected before any
// network call is made.
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewConfigError creates a new ConfigError
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{
		Component: component,
		Message:   message,
		Err:       err,
	}
}

// AuthenticationError represents a failed token exchange.
type AuthenticationError struct {
	Endpoint string
	Method   string // "password", "refresh"
	Message  string
	Err      error
}

// Error implements the error interface
func (e *AuthenticationError) Error() string {
	if e.Endpoint != "" {
		return fmt.Sprintf("authentication error against %s (%s): %s", e.Endpoint, e.Method, e.Message)
	}
	return fmt.Sprintf("authentication error (%s): %s", e.Method, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *AuthenticationError) Is(target error) bool {
	return target == ErrUnauthorized
}

// NewAuthenticationError creates a new AuthenticationError
func NewAuthenticationError(endpoint, method, message string, err error) *AuthenticationError {
	return &AuthenticationError{
		Endpoint: endpoint,
		Method:   method,
		Message:  message,
		Err:      err,
	}
}

// ServiceResolutionError is returned when a site name matches zero or
// several services.
type ServiceResolutionError struct {
	SiteName string
	Matches  int
}

// Error implements the error interface
func (e *ServiceResolutionError) Error() string {
	if e.Matches == 0 {
		return fmt.Sprintf("no service found for site %s", e.SiteName)
	}
	return fmt.Sprintf("multiple services (%d) found for site %s", e.Matches, e.SiteName)
}

// Is implements errors.Is support
func (e *ServiceResolutionError) Is(target error) bool {
	return target == ErrServiceResolution
}

// NewServiceResolutionError creates a new ServiceResolutionError
func NewServiceResolutionError(siteName string, matches int) *ServiceResolutionError {
	return &ServiceResolutionError{SiteName: siteName, Matches: matches}
}

// QueryError represents a failed call against the read API.
type QueryError struct {
	Operation string // "resolve service", "list images", "scan images", "fetch image"
	Target    string
	Err       error
}

// Error implements the error interface
func (e *QueryError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("catalog query %s for %s failed: %v", e.Operation, e.Target, e.Err)
	}
	return fmt.Sprintf("catalog query %s failed: %v", e.Operation, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *QueryError) Unwrap() error {
	return e.Err
}

// NewQueryError creates a new QueryError
func NewQueryError(operation, target string, err error) *QueryError {
	return &QueryError{Operation: operation, Target: target, Err: err}
}

// WriteError represents a failed create or delete against the write API.
type WriteError struct {
	Operation string // "create", "delete"
	LogicalID string
	CatalogID string
	Err       error
}

// Error implements the error interface
func (e *WriteError) Error() string {
	switch {
	case e.CatalogID != "" && e.LogicalID != "":
		return fmt.Sprintf("failed to %s image %s (%s): %v", e.Operation, e.LogicalID, e.CatalogID, e.Err)
	case e.CatalogID != "":
		return fmt.Sprintf("failed to %s image %s: %v", e.Operation, e.CatalogID, e.Err)
	default:
		return fmt.Sprintf("failed to %s image %s: %v", e.Operation, e.LogicalID, e.Err)
	}
}

// Unwrap implements errors.Unwrap
func (e *WriteError) Unwrap() error {
	return e.Err
}

// NewWriteError creates a new WriteError
func NewWriteError(operation, logicalID, catalogID string, err error) *WriteError {
	return &WriteError{
		Operation: operation,
		LogicalID: logicalID,
		CatalogID: catalogID,
		Err:       err,
	}
}

// ParseError represents an error when parsing data formats. It is the
// malformed-input error of the local inventory loader.
type ParseError struct {
	Format  string // "json", "yaml"
	File    string
	Index   int // element index in the input array, -1 when not applicable
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	source := e.File
	if source == "" {
		source = "input"
	}
	if e.Index >= 0 {
		return fmt.Sprintf("%s parse error in %s at element %d: %s", e.Format, source, e.Index, e.Message)
	}
	return fmt.Sprintf("%s parse error in %s: %s", e.Format, source, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *ParseError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewParseError creates a new ParseError
func NewParseError(format, file string, message string, err error) *ParseError {
	return &ParseError{
		Format:  format,
		File:    file,
		Index:   -1,
		Message: message,
		Err:     err,
	}
}

// IOError represents an error during I/O operations
type IOError struct {
	Operation string // "read", "write", "open", "close"
	Path      string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("IO error during %s of %s: %s", e.Operation, e.Path, e.Message)
	}
	return fmt.Sprintf("IO error during %s: %s", e.Operation, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *IOError) Unwrap() error {
	return e.Err
}

// NewIOError creates a new IOError
func NewIOError(operation, path string, err error) *IOError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &IOError{
		Operation: operation,
		Path:      path,
		Message:   message,
		Err:       err,
	}
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsUnauthorized checks if an error means the bearer token was rejected
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsStaleRevision checks if an error is an optimistic concurrency conflict
func IsStaleRevision(err error) bool {
	return errors.Is(err, ErrStaleRevision)
}

// IsAuthentication checks if an error is a token exchange failure
func IsAuthentication(err error) bool {
	var authErr *AuthenticationError
	return errors.As(err, &authErr)
}

// IsFatal reports whether err must abort the whole run rather than a
// single record. A *WriteError is per-record whatever it wraps, unless the
// token exchange failed or the run was canceled.
func IsFatal(err error) bool {
	if IsAuthentication(err) || errors.Is(err, ErrCanceled) {
		return true
	}
	var writeErr *WriteError
	if errors.As(err, &writeErr) {
		return false
	}
	var (
		cfgErr   *ConfigError
		svcErr   *ServiceResolutionError
		parseErr *ParseError
	)
	return errors.As(err, &cfgErr) ||
		errors.As(err, &svcErr) ||
		errors.As(err, &parseErr)
}

// Helper wrapping functions for common patterns

// WrapIO wraps an error as an IOError
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return NewIOError(operation, path, err)
}

// WrapParse wraps an error as a ParseError
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, file, err.Error(), err)
}

// WrapQuery wraps an error as a QueryError
func WrapQuery(operation, target string, err error) error {
	if err == nil {
		return nil
	}
	return NewQueryError(operation, target, err)
}

// WrapAPI wraps an error as an APIError
func WrapAPI(endpoint string, statusCode int, err error) error {
	if err == nil {
		return nil
	}
	return &APIError{
		Endpoint:   endpoint,
		StatusCode: statusCode,
		Message:    err.Error(),
		Err:        err,
	}
}
