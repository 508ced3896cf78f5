// Package constants provides shared constants used throughout the cmdbsync codebase.
// This includes timeouts, default endpoints, catalog document keys and file
// permissions that should be consistent across the application.
package constants

import "time"

// Timeout constants define various timeout durations used in the application
const (
	// DefaultHTTPTimeout is the standard timeout for a single catalog or token request
	DefaultHTTPTimeout = 30 * time.Second

	// SyncTimeout bounds a complete reconciliation run
	SyncTimeout = 30 * time.Minute

	// ShutdownTimeout is how long shutdown work may take after a failed run
	ShutdownTimeout = 5 * time.Second
)

// File permission constants define standard Unix file permissions
const (
	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)

// Default endpoints of the catalog deployment the tool was first written against.
const (
	// DefaultReadEndpoint is the base URL of the catalog read API
	DefaultReadEndpoint = "http://indigo.cloud.plgrid.pl/cmdb"

	// DefaultWriteEndpoint is the base URL of the catalog document-store write API
	DefaultWriteEndpoint = "http://couch.cloud.plgrid.pl/indigo-cmdb-v2"
)

// OIDC constants
const (
	// DefaultOIDCScopes are requested with the password grant
	DefaultOIDCScopes = "openid email"
)

// Catalog document keys
const (
	// ImageIDField is the record field carrying the logical image id
	ImageIDField = "image_id"

	// ImageNameField is the record field carrying the human readable image name
	ImageNameField = "image_name"

	// ServiceField is the record field linking an image to its service
	ServiceField = "service"

	// ImageDocumentType tags write API documents as images
	ImageDocumentType = "image"
)

// Environment and config file names
const (
	// EnvPrefix is the prefix of environment variables read by the CLI
	EnvPrefix = "CMDBSYNC"

	// ConfigFileName is the base name of the optional YAML config file
	ConfigFileName = ".cmdbsync"
)
