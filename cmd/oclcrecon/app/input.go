package app

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"

	"github.com/catalogops/oclcrecon/internal/pipeline"
	"github.com/catalogops/oclcrecon/pkg/errors"
)

// Input and output file handling for the workflow commands. The engine
// packages consume already-parsed rows; this boundary layer turns CSV files
// into those rows and bucket classifications back into files.

// readRows reads a two-column CSV file into pipeline rows: the first column
// is the record ID (or the sole value, for single-column files) and the
// second the row's value. A header row is skipped when detected.
func readRows(path string) ([]pipeline.Row, error) {
	records, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	var rows []pipeline.Row
	for i, record := range records {
		if len(record) == 0 {
			continue
		}
		if i == 0 && looksLikeHeader(record) {
			continue
		}
		row := pipeline.Row{RecordID: strings.TrimSpace(record[0])}
		if len(record) > 1 {
			row.Value = strings.TrimSpace(record[1])
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// readValues reads the first column of a CSV file into value-only rows.
func readValues(path string) ([]pipeline.Row, error) {
	records, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	var rows []pipeline.Row
	for i, record := range records {
		if len(record) == 0 {
			continue
		}
		if i == 0 && looksLikeHeader(record) {
			continue
		}
		rows = append(rows, pipeline.Row{Value: strings.TrimSpace(record[0])})
	}
	return rows, nil
}

// readColumn reads the first column of a CSV file into plain strings.
func readColumn(path string) ([]string, error) {
	rows, err := readValues(path)
	if err != nil {
		return nil, err
	}
	values := make([]string, len(rows))
	for i, row := range rows {
		values[i] = row.Value
	}
	return values, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &errors.ConfigError{Key: "input", Message: "failed to open input file " + path, Err: err}
	}
	defer func() {
		_ = f.Close()
	}()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, &errors.ConfigError{Key: "input", Message: "failed to parse input file " + path, Err: err}
	}
	return records, nil
}

// looksLikeHeader reports whether a CSV row is a header: identifier data
// rows always carry at least one digit in their first field, header labels
// don't.
func looksLikeHeader(record []string) bool {
	return !strings.ContainsAny(record[0], "0123456789")
}

// writeBuckets writes one CSV per outcome bucket into dir, named
// "<workflow>-<bucket>.csv", mirroring the per-bucket output files
// operators feed into the next workflow.
func writeBuckets(dir, workflow string, s *pipeline.Summary) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &errors.ConfigError{Key: "output", Message: "failed to create output directory", Err: err}
	}

	for bucket := range s.Counts() {
		outcomes := s.InBucket(bucket)
		name := workflow + "-" + strings.ReplaceAll(string(bucket), " ", "-") + ".csv"
		if err := writeBucketFile(filepath.Join(dir, name), outcomes); err != nil {
			return err
		}
	}
	return nil
}

func writeBucketFile(path string, outcomes []pipeline.Outcome) error {
	f, err := os.Create(path)
	if err != nil {
		return &errors.ConfigError{Key: "output", Message: "failed to create output file " + path, Err: err}
	}
	defer func() {
		_ = f.Close()
	}()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"record_id", "value", "detail"}); err != nil {
		return &errors.ConfigError{Key: "output", Message: "failed to write output file " + path, Err: err}
	}
	for _, o := range outcomes {
		if err := w.Write([]string{o.Row.RecordID, o.Row.Value, o.Detail}); err != nil {
			return &errors.ConfigError{Key: "output", Message: "failed to write output file " + path, Err: err}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return &errors.ConfigError{Key: "output", Message: "failed to write output file " + path, Err: err}
	}
	return nil
}
