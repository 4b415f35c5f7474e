package pipeline

import (
	"context"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/catalogops/oclcrecon/internal/worldcat"
	"github.com/catalogops/oclcrecon/pkg/errors"
	"github.com/catalogops/oclcrecon/pkg/logging"
)

// Searcher looks each input row up in the union catalog and classifies it
// by match count. A row with exactly one match carries the matched OCLC
// number in its outcome detail so downstream workflows can adopt it.
type Searcher struct {
	client   *worldcat.Client
	heldOnly bool
	logger   *zerolog.Logger
}

// SearcherOption configures a Searcher.
type SearcherOption func(*Searcher)

// WithHeldOnly restricts every search to records already held by the
// institution.
func WithHeldOnly() SearcherOption {
	return func(s *Searcher) { s.heldOnly = true }
}

// WithSearcherLogger sets the logger.
func WithSearcherLogger(logger *zerolog.Logger) SearcherOption {
	return func(s *Searcher) { s.logger = logger }
}

// NewSearcher creates a search workflow.
func NewSearcher(client *worldcat.Client, opts ...SearcherOption) *Searcher {
	s := &Searcher{
		client: client,
		logger: logging.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run searches for each row's Value in input order. Quota exhaustion or a
// credential failure halts the run; every remaining row reports the
// halting error.
func (s *Searcher) Run(ctx context.Context, rows []Row) *Summary {
	summary := &Summary{}

	var haltErr error
	for _, row := range rows {
		if haltErr != nil {
			summary.addError(row, haltErr)
			continue
		}

		query := strings.TrimSpace(row.Value)
		if query == "" {
			summary.addError(row, errors.NewValidationError("query", row.Value, "empty value"))
			continue
		}

		result, err := s.client.SearchBriefBibs(ctx, query, s.heldOnly)
		if err != nil {
			if haltsRun(err) {
				haltErr = err
				summary.Halted = true
			}
			summary.addError(row, err)
			continue
		}

		summary.add(classifySearch(row, result))
	}

	s.logger.Info().
		Int("rows", len(rows)).
		Bool("halted", summary.Halted).
		Msg("catalog search run finished")

	return summary
}

func classifySearch(row Row, result worldcat.SearchResult) Outcome {
	switch {
	case result.Total == 0:
		return Outcome{Row: row, Bucket: BucketNoMatch}
	case result.Total == 1:
		o := Outcome{Row: row, Bucket: BucketOneMatch}
		if len(result.Numbers) > 0 && result.Numbers[0].Valid {
			o.Detail = result.Numbers[0].Digits
		}
		return o
	default:
		return Outcome{
			Row:    row,
			Bucket: BucketMultiMatch,
			Detail: strconv.Itoa(result.Total) + " matching records",
		}
	}
}
