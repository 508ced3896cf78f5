package reconciler

import (
	"fmt"
	"time"

	"github.com/agentstation/utc"
)

// Action is what the reconciler did, or planned to do, for one record.
type Action string

// Actions.
const (
	ActionAdd    Action = "add"
	ActionUpdate Action = "update"
	ActionPrune  Action = "prune"
	ActionDelete Action = "delete"
)

// String implements fmt.Stringer.
func (a Action) String() string {
	return string(a)
}

// Status is the outcome of one action.
type Status string

// Statuses.
const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped" // destructive sync disabled
	StatusPlanned Status = "planned" // dry run
)

// String implements fmt.Stringer.
func (s Status) String() string {
	return string(s)
}

// Outcome records one catalog operation.
type Outcome struct {
	Action    Action `json:"action" yaml:"action"`
	Status    Status `json:"status" yaml:"status"`
	LogicalID string `json:"image_id" yaml:"image_id"`
	Name      string `json:"image_name,omitempty" yaml:"image_name,omitempty"`
	CatalogID string `json:"catalog_id,omitempty" yaml:"catalog_id,omitempty"`
	Revision  string `json:"revision,omitempty" yaml:"revision,omitempty"`
	Error     string `json:"error,omitempty" yaml:"error,omitempty"`
	Err       error  `json:"-" yaml:"-"`
}

// Result represents the outcome of a sync run.
type Result struct {
	RunID          string        `json:"run_id" yaml:"run_id"`
	SiteName       string        `json:"sitename" yaml:"sitename"`
	ServiceID      string        `json:"service_id" yaml:"service_id"`
	DryRun         bool          `json:"dry_run" yaml:"dry_run"`
	DeleteNonLocal bool          `json:"delete_non_local" yaml:"delete_non_local"`
	StartedAt      utc.Time      `json:"started_at" yaml:"started_at"`
	FinishedAt     utc.Time      `json:"finished_at" yaml:"finished_at"`
	Duration       time.Duration `json:"duration" yaml:"duration"`
	Plan           PlanCounts    `json:"plan" yaml:"plan"`
	Outcomes       []Outcome     `json:"outcomes" yaml:"outcomes"`
}

// NewResult creates a result with its start time set.
func NewResult(runID string) *Result {
	return &Result{
		RunID:     runID,
		StartedAt: utc.Now(),
		Outcomes:  []Outcome{},
	}
}

// Finalize records the completion time and duration.
func (r *Result) Finalize() {
	r.FinishedAt = utc.Now()
	r.Duration = r.FinishedAt.Sub(r.StartedAt)
}

func (r *Result) add(o Outcome) {
	if o.Err != nil && o.Error == "" {
		o.Error = o.Err.Error()
	}
	r.Outcomes = append(r.Outcomes, o)
}

// Count returns the number of outcomes with the given action and status.
func (r *Result) Count(action Action, status Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Action == action && o.Status == status {
			n++
		}
	}
	return n
}

// Failed returns the number of failed operations.
func (r *Result) Failed() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == StatusFailed {
			n++
		}
	}
	return n
}

// IsSuccess returns true when no operation failed.
func (r *Result) IsSuccess() bool {
	return r.Failed() == 0
}

// Summary returns a human-readable summary of the result.
func (r *Result) Summary() string {
	if r.DryRun {
		return fmt.Sprintf("Dry run for %s: %d to add, %d to update, %d to delete",
			r.SiteName, r.Plan.Add, r.Plan.Update, r.Plan.Delete)
	}

	summary := fmt.Sprintf("Synced %s: %d added, %d updated, %d pruned, %d deleted",
		r.SiteName,
		r.Count(ActionAdd, StatusSuccess),
		r.Count(ActionUpdate, StatusSuccess),
		r.Count(ActionPrune, StatusSuccess),
		r.Count(ActionDelete, StatusSuccess))
	if skipped := r.Count(ActionDelete, StatusSkipped); skipped > 0 {
		summary += fmt.Sprintf(", %d not deleted", skipped)
	}
	if failed := r.Failed(); failed > 0 {
		summary += fmt.Sprintf(", %d failed", failed)
	}
	return summary
}
