// Package table provides common table formatting utilities for CLI commands.
package table

import (
	"fmt"
	"strings"
	"time"

	"github.com/agentstation/cmdbsync/internal/auth"
	"github.com/agentstation/cmdbsync/internal/cmd/emoji"
	"github.com/agentstation/cmdbsync/pkg/catalogs"
	"github.com/agentstation/cmdbsync/pkg/reconciler"
)

// Align represents column alignment in tables.
type Align int

const (
	// AlignDefault uses the default alignment (skip).
	AlignDefault Align = iota
	// AlignLeft aligns content to the left.
	AlignLeft
	// AlignCenter centers content.
	AlignCenter
	// AlignRight aligns content to the right.
	AlignRight
)

// Data represents table formatting data to avoid import cycles.
type Data struct {
	Headers         []string
	Rows            [][]string
	ColumnAlignment []Align // Optional: column alignment
}

// maxErrorWidth truncates error messages in wide tables.
const maxErrorWidth = 60

// OutcomesToTableData converts the outcomes of a run to table format.
func OutcomesToTableData(outcomes []reconciler.Outcome, wide bool) Data {
	headers := []string{"", "Action", "Image ID", "Name", "Catalog ID"}
	align := []Align{AlignCenter, AlignLeft, AlignLeft, AlignLeft, AlignLeft}
	if wide {
		headers = append(headers, "Revision", "Error")
		align = append(align, AlignLeft, AlignLeft)
	}

	rows := make([][]string, 0, len(outcomes))
	for _, o := range outcomes {
		row := []string{
			emoji.ForStatus(o.Status.String()),
			o.Action.String(),
			o.LogicalID,
			orDash(o.Name),
			orDash(o.CatalogID),
		}
		if wide {
			row = append(row, orDash(o.Revision), orDash(truncate(o.Error, maxErrorWidth)))
		}
		rows = append(rows, row)
	}

	return Data{Headers: headers, Rows: rows, ColumnAlignment: align}
}

// ImagesToTableData converts stored images to table format. Wide tables
// list every payload field name.
func ImagesToTableData(images []catalogs.Image, wide bool) Data {
	headers := []string{"Image ID", "Name", "Catalog ID", "Revision"}
	if wide {
		headers = append(headers, "Fields")
	}

	rows := make([][]string, 0, len(images))
	for _, img := range images {
		row := []string{
			img.LogicalID(),
			orDash(img.Record.String("image_name")),
			img.Handle.CatalogID,
			orDash(img.Handle.Revision),
		}
		if wide {
			row = append(row, strings.Join(img.Record.Keys(), ", "))
		}
		rows = append(rows, row)
	}

	return Data{Headers: headers, Rows: rows}
}

// ResultToTableData converts the run metadata to a key-value table.
func ResultToTableData(result *reconciler.Result) Data {
	rows := [][]string{
		{"Run ID", result.RunID},
		{"Site", result.SiteName},
		{"Service ID", orDash(result.ServiceID)},
		{"Dry Run", fmt.Sprintf("%t", result.DryRun)},
		{"Delete Non-Local", fmt.Sprintf("%t", result.DeleteNonLocal)},
		{"Plan", fmt.Sprintf("%d add, %d update, %d delete", result.Plan.Add, result.Plan.Update, result.Plan.Delete)},
		{"Failed", fmt.Sprintf("%d", result.Failed())},
		{"Duration", result.Duration.Round(time.Millisecond).String()},
	}
	return Data{Headers: []string{"Property", "Value"}, Rows: rows}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

// CredentialsToTableData converts credential checks to table format.
func CredentialsToTableData(statuses []auth.Status) Data {
	rows := make([][]string, 0, len(statuses))
	for _, s := range statuses {
		symbol := emoji.Success
		if s.State != auth.StateConfigured {
			symbol = emoji.Error
		}
		rows = append(rows, []string{symbol, s.Setting, s.State.String(), s.Summary})
	}
	return Data{
		Headers:         []string{"", "Setting", "Status", "Detail"},
		Rows:            rows,
		ColumnAlignment: []Align{AlignCenter, AlignLeft, AlignLeft, AlignLeft},
	}
}
