package reconciler

import (
	"github.com/agentstation/cmdbsync/pkg/catalogs"
	"github.com/agentstation/cmdbsync/pkg/inventory"
)

// Update pairs a local record with the image currently stored for it.
type Update struct {
	Record  catalogs.Record
	Current catalogs.Image
}

// Plan is the three-way partition of the local and remote inventories.
// Each list is sorted by logical id.
type Plan struct {
	ToAdd    []catalogs.Record
	ToUpdate []Update
	ToDelete []catalogs.Image
}

// PlanCounts summarises a plan.
type PlanCounts struct {
	Add    int `json:"add" yaml:"add"`
	Update int `json:"update" yaml:"update"`
	Delete int `json:"delete" yaml:"delete"`
}

// Partition splits the logical ids of both inventories into adds (local
// only), updates (present on both sides) and deletes (remote only). Every id
// present on both sides is an update; payloads are not compared.
func Partition(local inventory.Local, remote inventory.Remote) Plan {
	var plan Plan
	for _, id := range local.IDs() {
		if current, ok := remote[id]; ok {
			plan.ToUpdate = append(plan.ToUpdate, Update{Record: local[id], Current: current})
			continue
		}
		plan.ToAdd = append(plan.ToAdd, local[id])
	}
	for _, id := range remote.IDs() {
		if _, ok := local[id]; !ok {
			plan.ToDelete = append(plan.ToDelete, remote[id])
		}
	}
	return plan
}

// Counts returns the size of each partition.
func (p Plan) Counts() PlanCounts {
	return PlanCounts{
		Add:    len(p.ToAdd),
		Update: len(p.ToUpdate),
		Delete: len(p.ToDelete),
	}
}

// IsEmpty reports whether the plan has nothing to do.
func (p Plan) IsEmpty() bool {
	return len(p.ToAdd) == 0 && len(p.ToUpdate) == 0 && len(p.ToDelete) == 0
}
