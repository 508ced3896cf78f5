package sync

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/agentstation/cmdbsync/internal/cmd/application"
	"github.com/agentstation/cmdbsync/internal/cmd/output"
	"github.com/agentstation/cmdbsync/pkg/inventory"
	"github.com/agentstation/cmdbsync/pkg/logging"
	"github.com/agentstation/cmdbsync/pkg/reconciler"
	pkgsync "github.com/agentstation/cmdbsync/pkg/sync"
)

// Execute runs one sync. Configuration and local inventory problems are
// reported before any catalog call.
func Execute(ctx context.Context, app application.Application, stdin io.Reader, stdout io.Writer) error {
	settings := app.Settings()
	runID := uuid.NewString()

	ctx = logging.WithLogger(ctx, app.Logger())
	ctx = logging.WithRunID(ctx, runID)
	logger := logging.FromContext(ctx)

	// Step 1: Clients, validating configuration
	reader, err := app.Reader()
	if err != nil {
		return err
	}
	var writer reconciler.CatalogWriter
	if !settings.DryRun {
		if writer, err = app.Writer(); err != nil {
			return err
		}
	}

	// Step 2: Local inventory
	local, err := loadLocal(settings.Input, stdin)
	if err != nil {
		return err
	}
	logger.Info().Int("images", len(local)).Str("input", inputName(settings.Input)).Msg("Loaded local inventory")

	// Step 3: Reconcile
	recorder := app.Metrics()
	result, err := pkgsync.Run(ctx, reader, writer, local,
		pkgsync.WithSiteName(settings.SiteName),
		pkgsync.WithDryRun(settings.DryRun),
		pkgsync.WithDeleteNonLocal(settings.DeleteNonLocal),
		pkgsync.WithTimeout(settings.Timeout),
		pkgsync.WithRunID(runID),
		pkgsync.WithMetrics(recorder),
	)

	// Step 4: Report whatever was done, even when the run aborted
	if result != nil {
		format := output.DetectFormat(app.OutputFormat())
		if ferr := output.FormatResult(stdout, result, format); ferr != nil {
			logger.Warn().Err(ferr).Msg("Failed to write sync report")
		}
	}
	if settings.MetricsFile != "" {
		if merr := recorder.WriteTextfile(settings.MetricsFile); merr != nil {
			logger.Warn().Err(merr).Str("path", settings.MetricsFile).Msg("Failed to write metrics")
		}
	}
	return err
}

func loadLocal(path string, stdin io.Reader) (inventory.Local, error) {
	if path == "" || path == "-" {
		return inventory.LoadLocal(stdin)
	}
	return inventory.LoadLocalFile(path)
}

func inputName(path string) string {
	if path == "" || path == "-" {
		return "stdin"
	}
	return path
}
