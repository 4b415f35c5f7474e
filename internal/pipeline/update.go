package pipeline

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/catalogops/oclcrecon/internal/alma"
	"github.com/catalogops/oclcrecon/pkg/batch"
	"github.com/catalogops/oclcrecon/pkg/bib"
	"github.com/catalogops/oclcrecon/pkg/errors"
	"github.com/catalogops/oclcrecon/pkg/logging"
	"github.com/catalogops/oclcrecon/pkg/oclc"
)

// Updater rewrites local records so each carries its authoritative OCLC
// number. Input rows pair a record ID with the authoritative number
// previously resolved against the union catalog.
type Updater struct {
	client    *alma.Client
	batchSize int
	logger    *zerolog.Logger
}

// UpdaterOption configures an Updater.
type UpdaterOption func(*Updater)

// WithUpdaterLogger sets the logger.
func WithUpdaterLogger(logger *zerolog.Logger) UpdaterOption {
	return func(u *Updater) { u.logger = logger }
}

// NewUpdater creates an update workflow. batchSize is the configured number
// of records per read request; it is clamped to the service cap.
func NewUpdater(client *alma.Client, batchSize int, opts ...UpdaterOption) *Updater {
	u := &Updater{
		client:    client,
		batchSize: batch.Clamp(batchSize, alma.MaxRecordsPerRead),
		logger:    logging.Default(),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

type updateItem struct {
	row    Row
	id     string
	number oclc.Number
}

// Run processes the rows in order: validation, batched record reads, then
// one migrate-and-write per record needing an update. Rows that fail
// validation or read never reach the write phase; quota exhaustion or a
// credential failure halts the write phase with every remaining row
// reported against the halting error.
func (u *Updater) Run(ctx context.Context, rows []Row) *Summary {
	summary := &Summary{}

	items, prevalidated := u.validate(rows)

	// Read phase: one request per chunk, all-or-nothing.
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.id
	}
	fetched := make(map[string]alma.Record, len(ids))
	failures := batch.Run(ctx, ids, u.batchSize, func(ctx context.Context, chunk []string) error {
		records, err := u.client.GetBibs(ctx, chunk)
		if err != nil {
			return err
		}
		for _, rec := range records {
			fetched[rec.MMSID] = rec
		}
		return nil
	})
	readErrs := make(map[string]error, len(failures))
	for _, f := range failures {
		readErrs[f.Item] = f.Err
		if haltsRun(f.Err) {
			summary.Halted = true
		}
	}

	// Write phase, halting in place on quota or credential failure.
	var haltErr error
	byID := make(map[string]Outcome, len(items))
	for _, it := range items {
		switch {
		case readErrs[it.id] != nil:
			err := readErrs[it.id]
			byID[it.id] = Outcome{Row: it.row, Bucket: BucketError, Detail: err.Error(), Err: err}
		case haltErr != nil:
			byID[it.id] = Outcome{Row: it.row, Bucket: BucketError, Detail: haltErr.Error(), Err: haltErr}
		default:
			rec, ok := fetched[it.id]
			if !ok {
				err := errors.New("record not returned by the read")
				byID[it.id] = Outcome{Row: it.row, Bucket: BucketError, Detail: err.Error(), Err: err}
				continue
			}
			outcome := u.updateRecord(ctx, it, rec)
			if outcome.Err != nil && haltsRun(outcome.Err) {
				haltErr = outcome.Err
				summary.Halted = true
			}
			byID[it.id] = outcome
		}
	}

	// Re-interleave with the validation failures so the summary follows
	// input order.
	for i, row := range rows {
		if err := prevalidated[i]; err != nil {
			summary.addError(row, err)
			continue
		}
		id, _ := bib.ValidateRecordID(row.RecordID)
		summary.add(byID[id])
	}

	u.logger.Info().
		Int("rows", len(rows)).
		Bool("halted", summary.Halted).
		Msg("record update run finished")

	return summary
}

// validate screens the rows and returns the processable items plus a
// per-row error slice aligned with the input (nil entries passed).
func (u *Updater) validate(rows []Row) ([]updateItem, []error) {
	items := make([]updateItem, 0, len(rows))
	rowErrs := make([]error, len(rows))
	seen := make(map[string]bool, len(rows))

	for i, row := range rows {
		id, err := bib.ValidateRecordID(row.RecordID)
		if err != nil {
			rowErrs[i] = err
			continue
		}
		n := oclc.Parse(row.Value)
		if !n.Valid {
			rowErrs[i] = errors.NewValidationError("OCLC number", row.Value, n.Reason)
			continue
		}
		if seen[id] {
			rowErrs[i] = errors.NewValidationError("MMS ID", row.RecordID, "duplicate record ID in input")
			continue
		}
		seen[id] = true
		items = append(items, updateItem{row: row, id: id, number: n})
	}

	return items, rowErrs
}

func (u *Updater) updateRecord(ctx context.Context, it updateItem, rec alma.Record) Outcome {
	if len(rec.SubfieldAnomalies) > 0 {
		err := errors.NewValidationError("035 field", it.id, strings.Join(rec.SubfieldAnomalies, "; "))
		return Outcome{Row: it.row, Bucket: BucketError, Detail: err.Error(), Err: err}
	}

	current, secondary := splitControlNumbers(rec)
	migration, err := bib.Migrate(current, secondary, it.number)
	if err != nil {
		return Outcome{Row: it.row, Bucket: BucketError, Detail: err.Error(), Err: err}
	}

	if !migration.Updated {
		return Outcome{
			Row:    it.row,
			Bucket: BucketNoUpdateNeeded,
			Detail: "record already carries " + migration.Primary,
		}
	}

	body, err := alma.ApplyMigration(rec, migration)
	if err != nil {
		return Outcome{Row: it.row, Bucket: BucketError, Detail: err.Error(), Err: err}
	}
	if err := u.client.UpdateBib(ctx, it.id, body); err != nil {
		return Outcome{Row: it.row, Bucket: BucketError, Detail: err.Error(), Err: err}
	}

	outcome := Outcome{Row: it.row, Bucket: BucketUpdated}
	if len(migration.DroppedInvalid) > 0 {
		var dropped []string
		for _, v := range migration.DroppedInvalid {
			dropped = append(dropped, v.Raw)
		}
		outcome.Detail = "dropped invalid values: " + strings.Join(dropped, ", ")
	}

	u.logger.Debug().
		Str("mms_id", it.id).
		Str("oclc_number", migration.Primary).
		Strs("former_numbers", migration.Secondary).
		Msg("record updated")

	return outcome
}

// splitControlNumbers picks the record's OCLC identifier fields apart: the
// first recognized primary value, then any further recognized primaries and
// all historical numbers. Values from other identifier systems stay out of
// the migration entirely.
func splitControlNumbers(rec alma.Record) (current string, secondary []string) {
	for _, value := range rec.ControlNumbers {
		if !oclc.Recognized(value) {
			continue
		}
		if current == "" {
			current = value
		} else {
			secondary = append(secondary, value)
		}
	}
	secondary = append(secondary, rec.FormerNumbers...)
	return current, secondary
}
