// Package report renders the operator-facing summary of a reconciliation
// run: bucket counts, request spend, and the rows that need attention.
package report

import (
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/catalogops/oclcrecon/internal/pipeline"
	"github.com/catalogops/oclcrecon/pkg/quota"
)

// bucketOrder fixes the row order of the summary table across runs.
var bucketOrder = []pipeline.Bucket{
	pipeline.BucketUpdated,
	pipeline.BucketNoUpdateNeeded,
	pipeline.BucketNoMatch,
	pipeline.BucketOneMatch,
	pipeline.BucketMultiMatch,
	pipeline.BucketCurrent,
	pipeline.BucketSuperseded,
	pipeline.BucketHoldingSet,
	pipeline.BucketHoldingUnset,
	pipeline.BucketError,
}

// Report accumulates one run's rendering context.
type Report struct {
	// RunID identifies the run in logs and output files.
	RunID string

	// Workflow names the workflow that ran ("update", "search", ...).
	Workflow string

	// Started is when the run began.
	Started time.Time

	printer *message.Printer
}

// New creates a report for one workflow run.
func New(workflow string) *Report {
	return &Report{
		RunID:    uuid.NewString(),
		Workflow: workflow,
		Started:  time.Now(),
		printer:  message.NewPrinter(language.English),
	}
}

// Summary renders the per-bucket tally plus the run's request spend.
func (r *Report) Summary(s *pipeline.Summary, tracker *quota.Tracker) string {
	counts := s.Counts()

	tw := newTable()
	tw.AppendHeader(table.Row{"outcome", "records"})
	for _, bucket := range bucketOrder {
		if n, ok := counts[bucket]; ok {
			tw.AppendRow(table.Row{string(bucket), r.count(n)})
		}
	}
	tw.AppendFooter(table.Row{"total", r.count(len(s.Outcomes))})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft, AlignHeader: text.AlignLeft},
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignLeft, AlignFooter: text.AlignRight},
	})

	out := r.heading() + "\n" + tw.Render()
	if tracker != nil {
		out += "\n" + r.printer.Sprintf("API requests made: %d, remaining today: %d",
			tracker.Requests(), tracker.Remaining())
	}
	if s.Halted {
		out += "\nrun halted early; unattempted rows are counted under \"error\""
	}
	return out
}

// Problems renders the rows that landed in the error bucket, in input
// order. Returns "" when the run was clean.
func (r *Report) Problems(s *pipeline.Summary) string {
	failed := s.InBucket(pipeline.BucketError)
	if len(failed) == 0 {
		return ""
	}

	tw := newTable()
	tw.AppendHeader(table.Row{"record ID", "value", "problem"})
	for _, o := range failed {
		tw.AppendRow(table.Row{o.Row.RecordID, o.Row.Value, o.Detail})
	}
	return tw.Render()
}

// Comparison renders the three-way identifier diff with the unparsable
// values each side contributed.
func (r *Report) Comparison(c pipeline.Comparison) string {
	tw := newTable()
	tw.AppendHeader(table.Row{"bucket", "numbers"})
	tw.AppendRow(table.Row{"held both locally and remotely", r.count(c.Result.Both.Len())})
	tw.AppendRow(table.Row{"local only (holding to set)", r.count(c.Result.LocalOnly.Len())})
	tw.AppendRow(table.Row{"remote only (holding to unset)", r.count(c.Result.RemoteOnly.Len())})
	if n := len(c.InvalidLocal); n > 0 {
		tw.AppendRow(table.Row{"unparsable local values", r.count(n)})
	}
	if n := len(c.InvalidRemote); n > 0 {
		tw.AppendRow(table.Row{"unparsable remote values", r.count(n)})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft, AlignHeader: text.AlignLeft},
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})

	return r.heading() + "\n" + tw.Render()
}

func (r *Report) heading() string {
	return r.Workflow + " run " + r.RunID
}

// count formats a tally with thousands separators.
func (r *Report) count(n int) string {
	return r.printer.Sprintf("%d", n)
}

func newTable() table.Writer {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	return tw
}
