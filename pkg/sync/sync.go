package sync

import (
	"context"

	"github.com/agentstation/cmdbsync/pkg/catalogs"
	"github.com/agentstation/cmdbsync/pkg/inventory"
	"github.com/agentstation/cmdbsync/pkg/logging"
	"github.com/agentstation/cmdbsync/pkg/reconciler"
)

// Reader is the read API surface a sync needs.
type Reader interface {
	ResolveService(ctx context.Context, siteName string) (catalogs.Service, error)
	inventory.Lister
	reconciler.CatalogReader
}

// Run reconciles the catalog of the configured site against local. The
// writer may be nil for dry runs. Failing to resolve the service or to load
// the remote inventory aborts the run before any write.
func Run(ctx context.Context, reader Reader, writer reconciler.CatalogWriter, local inventory.Local, opts ...Option) (*reconciler.Result, error) {
	// Step 1: Parse and validate options
	options := NewOptions(opts...)
	if err := options.Validate(); err != nil {
		return nil, err
	}

	// Step 2: Setup context with timeout
	var cancel context.CancelFunc
	if options.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, options.Timeout)
	} else {
		cancel = func() {}
	}
	defer cancel()
	ctx = logging.WithSite(ctx, options.SiteName)
	if options.RunID != "" && logging.RunID(ctx) != options.RunID {
		ctx = logging.WithRunID(ctx, options.RunID)
	}

	// Step 3: Build the reconciler so configuration errors surface first
	recOpts := []reconciler.Option{
		reconciler.WithDryRun(options.DryRun),
		reconciler.WithDeleteNonLocal(options.DeleteNonLocal),
		reconciler.WithMetrics(options.Metrics),
	}
	if options.RunID != "" {
		recOpts = append(recOpts, reconciler.WithRunID(options.RunID))
	}
	rec, err := reconciler.New(reader, writer, recOpts...)
	if err != nil {
		return nil, err
	}

	// Step 4: Resolve the service and load its images
	service, remote, err := Inspect(ctx, reader, options.SiteName)
	if err != nil {
		return nil, err
	}

	// Step 5: Reconcile
	result, err := rec.Run(ctx, service, local, remote)
	if err != nil {
		return result, err
	}

	logging.FromContext(ctx).Info().
		Int("failed", result.Failed()).
		Dur("duration", result.Duration).
		Msg(result.Summary())
	return result, nil
}

// Inspect resolves the service of siteName and loads its remote inventory.
func Inspect(ctx context.Context, reader Reader, siteName string) (catalogs.Service, inventory.Remote, error) {
	service, err := reader.ResolveService(ctx, siteName)
	if err != nil {
		return catalogs.Service{}, nil, err
	}

	remote, err := inventory.LoadRemote(ctx, reader, service.ID)
	if err != nil {
		return service, nil, err
	}
	return service, remote, nil
}
