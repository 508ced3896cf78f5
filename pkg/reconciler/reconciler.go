// Package reconciler makes the catalog mirror the local inventory. It
// partitions both inventories, creates new and updated records, prunes the
// revisions an update supersedes and optionally deletes remote-only images.
//
// The catalog offers no transactions. Every operation is applied on its own
// and a failure only affects the record it concerns; re-running the sync is
// the recovery path.
package reconciler

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/agentstation/cmdbsync/pkg/catalogs"
	"github.com/agentstation/cmdbsync/pkg/errors"
	"github.com/agentstation/cmdbsync/pkg/inventory"
	"github.com/agentstation/cmdbsync/pkg/logging"
	"github.com/agentstation/cmdbsync/pkg/metrics"
)

//go:generate mockgen -destination=mock_catalog.go -package=reconciler -source=reconciler.go CatalogReader,CatalogWriter

// CatalogReader is the part of the read API the prune protocol needs.
type CatalogReader interface {
	ScanImagesByLogicalID(ctx context.Context, serviceID, logicalID string) ([]catalogs.Handle, error)
	FetchRevision(ctx context.Context, catalogID string) (string, error)
}

// CatalogWriter creates and deletes image documents.
type CatalogWriter interface {
	Create(ctx context.Context, record catalogs.Record, serviceID string) (catalogs.Handle, error)
	Delete(ctx context.Context, handle catalogs.Handle) error
}

// Reconciler applies the difference between a local and a remote inventory.
type Reconciler interface {
	// Run reconciles the service's remote inventory against local. The
	// returned error is non-nil only for failures that abort the run; the
	// partial result is returned alongside it.
	Run(ctx context.Context, service catalogs.Service, local inventory.Local, remote inventory.Remote) (*Result, error)

	// Prune deletes every image of serviceID carrying logicalID except keep.
	// Running it again once pruning succeeded finds nothing to delete.
	Prune(ctx context.Context, serviceID, logicalID string, keep catalogs.Handle) ([]Outcome, error)
}

// reconciler is the default implementation of Reconciler.
type reconciler struct {
	reader         CatalogReader
	writer         CatalogWriter
	deleteNonLocal bool
	dryRun         bool
	runID          string
	metrics        *metrics.Recorder
}

// New creates a Reconciler. The writer may be nil for dry runs.
func New(reader CatalogReader, writer CatalogWriter, opts ...Option) (Reconciler, error) {
	options, err := newOptions(opts...)
	if err != nil {
		return nil, err
	}

	if reader == nil {
		return nil, errors.NewConfigError("reconciler", "catalog reader is required", nil)
	}
	if writer == nil && !options.dryRun {
		return nil, errors.NewConfigError("reconciler", "catalog writer is required unless dry run is enabled", nil)
	}

	runID := options.runID
	if runID == "" {
		runID = uuid.NewString()
	}

	return &reconciler{
		reader:         reader,
		writer:         writer,
		deleteNonLocal: options.deleteNonLocal,
		dryRun:         options.dryRun,
		runID:          runID,
		metrics:        options.metrics,
	}, nil
}

// Run performs reconciliation: adds, then updates with pruning, then
// deletes. Operations run strictly one after another in logical id order.
func (r *reconciler) Run(ctx context.Context, service catalogs.Service, local inventory.Local, remote inventory.Remote) (*Result, error) {
	if logging.RunID(ctx) != r.runID {
		ctx = logging.WithRunID(ctx, r.runID)
	}
	ctx = logging.WithField(ctx, "service_id", service.ID)
	logger := logging.FromContext(ctx)

	result := NewResult(r.runID)
	result.SiteName = service.SiteName
	result.ServiceID = service.ID
	result.DryRun = r.dryRun
	result.DeleteNonLocal = r.deleteNonLocal

	plan := Partition(local, remote)
	result.Plan = plan.Counts()
	r.metrics.Inventory("local", len(local))
	r.metrics.Inventory("remote", len(remote))

	logger.Info().
		Int("local", len(local)).
		Int("remote", len(remote)).
		Int("add", result.Plan.Add).
		Int("update", result.Plan.Update).
		Int("delete", result.Plan.Delete).
		Bool("dry_run", r.dryRun).
		Msg("Reconciliation plan")

	if plan.IsEmpty() {
		logger.Info().Msg("Nothing to do")
		return r.finish(result, nil)
	}
	if r.dryRun {
		r.plan(result, plan)
		return r.finish(result, nil)
	}

	for _, record := range plan.ToAdd {
		if err := r.add(ctx, result, service.ID, record); err != nil {
			return r.finish(result, err)
		}
	}
	for _, update := range plan.ToUpdate {
		if err := r.update(ctx, result, service.ID, update); err != nil {
			return r.finish(result, err)
		}
	}
	for _, img := range plan.ToDelete {
		if err := r.delete(ctx, result, img); err != nil {
			return r.finish(result, err)
		}
	}

	return r.finish(result, nil)
}

func (r *reconciler) finish(result *Result, err error) (*Result, error) {
	result.Finalize()
	r.metrics.RunFinished(result.StartedAt.Time, result.FinishedAt.Time)
	return result, err
}

// plan records the dry-run outcomes.
func (r *reconciler) plan(result *Result, plan Plan) {
	for _, record := range plan.ToAdd {
		result.add(Outcome{Action: ActionAdd, Status: StatusPlanned, LogicalID: record.LogicalID(), Name: record.Name()})
	}
	for _, u := range plan.ToUpdate {
		result.add(Outcome{
			Action:    ActionUpdate,
			Status:    StatusPlanned,
			LogicalID: u.Record.LogicalID(),
			Name:      u.Record.Name(),
			CatalogID: u.Current.Handle.CatalogID,
			Revision:  u.Current.Handle.Revision,
		})
	}
	status := StatusSkipped
	if r.deleteNonLocal {
		status = StatusPlanned
	}
	for _, img := range plan.ToDelete {
		result.add(Outcome{
			Action:    ActionDelete,
			Status:    status,
			LogicalID: img.LogicalID(),
			Name:      img.Record.Name(),
			CatalogID: img.Handle.CatalogID,
			Revision:  img.Handle.Revision,
		})
	}
}

func (r *reconciler) add(ctx context.Context, result *Result, serviceID string, record catalogs.Record) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	outcome := Outcome{Action: ActionAdd, LogicalID: record.LogicalID(), Name: record.Name()}
	handle, err := r.writer.Create(ctx, record, serviceID)
	if err != nil {
		return r.fail(ctx, result, outcome, err)
	}

	outcome.CatalogID = handle.CatalogID
	outcome.Revision = handle.Revision
	r.succeed(result, outcome)
	return nil
}

// update stores a new revision of the record and prunes the ones it
// supersedes. The image loaded into the remote inventory is not trusted as
// the only sibling: pruning re-scans the service.
func (r *reconciler) update(ctx context.Context, result *Result, serviceID string, u Update) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	outcome := Outcome{Action: ActionUpdate, LogicalID: u.Record.LogicalID(), Name: u.Record.Name()}
	handle, err := r.writer.Create(ctx, u.Record, serviceID)
	if err != nil {
		return r.fail(ctx, result, outcome, err)
	}

	outcome.CatalogID = handle.CatalogID
	outcome.Revision = handle.Revision
	r.succeed(result, outcome)

	// Without the new catalog id every sibling, the new one included, would
	// look superseded.
	if handle.IsZero() {
		logging.FromContext(ctx).Warn().
			Str("image_id", outcome.LogicalID).
			Msg("Store returned no catalog id for the new revision, skipping prune")
		return nil
	}

	pruned, err := r.Prune(ctx, serviceID, u.Record.LogicalID(), handle)
	for _, o := range pruned {
		result.add(o)
	}
	return err
}

func (r *reconciler) delete(ctx context.Context, result *Result, img catalogs.Image) error {
	outcome := Outcome{
		Action:    ActionDelete,
		LogicalID: img.LogicalID(),
		Name:      img.Record.Name(),
		CatalogID: img.Handle.CatalogID,
		Revision:  img.Handle.Revision,
	}

	if !r.deleteNonLocal {
		logging.FromContext(ctx).Info().
			Str("image_id", outcome.LogicalID).
			Str("catalog_id", outcome.CatalogID).
			Msg("Image not in local inventory, keeping it (destructive sync disabled)")
		outcome.Status = StatusSkipped
		result.add(outcome)
		r.metrics.Operation(string(ActionDelete), metrics.StatusSkipped)
		return nil
	}

	if err := checkContext(ctx); err != nil {
		return err
	}
	if err := r.writer.Delete(ctx, img.Handle); err != nil {
		return r.fail(ctx, result, outcome, err)
	}
	r.succeed(result, outcome)
	return nil
}

// Prune implements Reconciler. A failed scan skips pruning for the record;
// a failed revision lookup or delete skips that handle only.
func (r *reconciler) Prune(ctx context.Context, serviceID, logicalID string, keep catalogs.Handle) ([]Outcome, error) {
	logger := logging.FromContext(ctx).With().Str("image_id", logicalID).Logger()

	handles, err := r.reader.ScanImagesByLogicalID(ctx, serviceID, logicalID)
	if err != nil {
		logger.Warn().Err(err).Msg("Could not list image revisions, skipping prune")
		r.metrics.Operation(string(ActionPrune), metrics.StatusFailed)
		return []Outcome{{Action: ActionPrune, Status: StatusFailed, LogicalID: logicalID, Err: err, Error: err.Error()}}, nil
	}

	var outcomes []Outcome
	for _, h := range handles {
		if h.CatalogID == keep.CatalogID {
			continue
		}
		if err := checkContext(ctx); err != nil {
			return outcomes, err
		}

		outcome := Outcome{Action: ActionPrune, LogicalID: logicalID, CatalogID: h.CatalogID}
		rev, err := r.reader.FetchRevision(ctx, h.CatalogID)
		if err != nil {
			outcomes = append(outcomes, r.pruneFailed(&logger, outcome, err))
			continue
		}

		h.Revision = rev
		outcome.Revision = rev
		if err := r.writer.Delete(ctx, h); err != nil {
			if errors.IsFatal(err) {
				return outcomes, err
			}
			outcomes = append(outcomes, r.pruneFailed(&logger, outcome, err))
			continue
		}

		logger.Info().
			Str("catalog_id", h.CatalogID).
			Str("revision", rev).
			Msg("Pruned superseded image revision")
		outcome.Status = StatusSuccess
		r.metrics.Operation(string(ActionPrune), metrics.StatusSuccess)
		outcomes = append(outcomes, outcome)
	}

	if len(outcomes) == 0 {
		logger.Debug().Int("revisions", len(handles)).Msg("Nothing to prune")
	}
	return outcomes, nil
}

func (r *reconciler) pruneFailed(logger *zerolog.Logger, outcome Outcome, err error) Outcome {
	switch {
	case errors.IsNotFound(err):
		logger.Warn().Err(err).Str("catalog_id", outcome.CatalogID).Msg("Image revision already gone, not pruned")
	case errors.IsStaleRevision(err):
		logger.Warn().Err(err).Str("catalog_id", outcome.CatalogID).Msg("Image revision changed concurrently, not pruned")
	default:
		logger.Warn().Err(err).Str("catalog_id", outcome.CatalogID).Msg("Could not prune image revision")
	}
	r.metrics.Operation(string(ActionPrune), metrics.StatusFailed)
	outcome.Status = StatusFailed
	outcome.Err = err
	outcome.Error = err.Error()
	return outcome
}

func (r *reconciler) succeed(result *Result, outcome Outcome) {
	outcome.Status = StatusSuccess
	result.add(outcome)
	r.metrics.Operation(string(outcome.Action), metrics.StatusSuccess)
}

// fail records a failed operation. Fatal errors are returned so the run
// stops; anything else is logged and the run continues.
func (r *reconciler) fail(ctx context.Context, result *Result, outcome Outcome, err error) error {
	outcome.Status = StatusFailed
	outcome.Err = err
	result.add(outcome)
	r.metrics.Operation(string(outcome.Action), metrics.StatusFailed)

	if errors.IsFatal(err) {
		return err
	}
	logging.FromContext(ctx).Error().
		Err(err).
		Str("action", outcome.Action.String()).
		Str("image_id", outcome.LogicalID).
		Str("catalog_id", outcome.CatalogID).
		Msg("Catalog operation failed, continuing")
	return nil
}


func checkContext(ctx context.Context) error {
	err := ctx.Err()
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w, %w: %w", errors.ErrCanceled, errors.ErrTimeout, err)
	default:
		return fmt.Errorf("%w: %w", errors.ErrCanceled, err)
	}
}
