// Package pipeline drives the reconciliation workflows over already-parsed
// input rows: updating local records, searching the union catalog, managing
// institution holdings, and comparing identifier universes. Each workflow
// classifies every input row into exactly one outcome bucket and never
// aborts mid-run except on quota exhaustion or credential failure, and even
// then every remaining row is accounted for.
package pipeline

import (
	"github.com/catalogops/oclcrecon/pkg/errors"
)

// Bucket classifies a processed row's outcome.
type Bucket string

// Update workflow buckets.
const (
	BucketUpdated        Bucket = "updated"
	BucketNoUpdateNeeded Bucket = "no update needed"
	BucketError          Bucket = "error"
)

// Search workflow buckets, keyed by match count.
const (
	BucketNoMatch    Bucket = "no matches"
	BucketOneMatch   Bucket = "one match"
	BucketMultiMatch Bucket = "multiple matches"
)

// Holdings workflow buckets.
const (
	BucketCurrent      Bucket = "current"
	BucketSuperseded   Bucket = "superseded"
	BucketHoldingSet   Bucket = "holding set"
	BucketHoldingUnset Bucket = "holding unset"
)

// Row is one already-parsed input row. RecordID is the local record
// identifier (empty for workflows keyed on the value alone) and Value the
// row's identifier or query term.
type Row struct {
	RecordID string
	Value    string
}

// Outcome is the classification of one input row.
type Outcome struct {
	Row    Row
	Bucket Bucket

	// Detail is a human-readable note for the report ("" when the bucket
	// says it all).
	Detail string

	// Err is set iff Bucket is BucketError.
	Err error
}

// Summary is the complete, input-ordered account of one workflow run.
type Summary struct {
	Outcomes []Outcome

	// Halted reports that the run stopped submitting work early; the rows
	// not attempted carry the halting error in their outcomes.
	Halted bool
}

func (s *Summary) add(o Outcome) {
	s.Outcomes = append(s.Outcomes, o)
}

func (s *Summary) addError(row Row, err error) {
	s.add(Outcome{Row: row, Bucket: BucketError, Detail: err.Error(), Err: err})
}

// Counts tallies outcomes per bucket.
func (s *Summary) Counts() map[Bucket]int {
	counts := make(map[Bucket]int)
	for _, o := range s.Outcomes {
		counts[o.Bucket]++
	}
	return counts
}

// InBucket returns the outcomes classified into the given bucket, in input
// order.
func (s *Summary) InBucket(b Bucket) []Outcome {
	var matched []Outcome
	for _, o := range s.Outcomes {
		if o.Bucket == b {
			matched = append(matched, o)
		}
	}
	return matched
}

// haltsRun reports whether an error must stop the run rather than fail the
// row alone.
func haltsRun(err error) bool {
	return errors.IsQuotaExhausted(err) || errors.IsCredential(err)
}
