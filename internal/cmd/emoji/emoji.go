// Package emoji provides symbol constants for CLI output.
package emoji

// Symbol constants used as status indicators in tables and summaries.
const (
	// Success marks a completed catalog operation.
	Success = "✓"

	// Error marks a failed catalog operation.
	Error = "✗"

	// Optional marks an operation that was deliberately not performed.
	Optional = "-"

	// Planned marks an operation a dry run would perform.
	Planned = "~"

	// Unknown represents unknown or indeterminate states.
	Unknown = "?"
)

// ForStatus returns the symbol of an outcome status.
func ForStatus(status string) string {
	switch status {
	case "success":
		return Success
	case "failed":
		return Error
	case "skipped":
		return Optional
	case "planned":
		return Planned
	default:
		return Unknown
	}
}
