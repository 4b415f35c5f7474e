package pipeline

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/catalogops/oclcrecon/internal/worldcat"
	"github.com/catalogops/oclcrecon/pkg/errors"
	"github.com/catalogops/oclcrecon/pkg/logging"
	"github.com/catalogops/oclcrecon/pkg/oclc"
)

// HoldingAction selects what the holdings workflow does with each number.
type HoldingAction string

const (
	// HoldingGet resolves each number against the union catalog and
	// reports whether it is still current.
	HoldingGet HoldingAction = "get"

	// HoldingSet registers the institution's holding on each number.
	HoldingSet HoldingAction = "set"

	// HoldingUnset withdraws the institution's holding from each number.
	HoldingUnset HoldingAction = "unset"
)

// HoldingsManager runs one holdings action per input row against the union
// catalog.
type HoldingsManager struct {
	client  *worldcat.Client
	cascade string
	logger  *zerolog.Logger
}

// HoldingsOption configures a HoldingsManager.
type HoldingsOption func(*HoldingsManager)

// WithCascade sets the unset cascade policy: "0" blocks the unset when
// attached local holdings records exist, "1" removes them too.
func WithCascade(cascade string) HoldingsOption {
	return func(h *HoldingsManager) { h.cascade = cascade }
}

// WithHoldingsLogger sets the logger.
func WithHoldingsLogger(logger *zerolog.Logger) HoldingsOption {
	return func(h *HoldingsManager) { h.logger = logger }
}

// NewHoldingsManager creates a holdings workflow.
func NewHoldingsManager(client *worldcat.Client, opts ...HoldingsOption) *HoldingsManager {
	h := &HoldingsManager{
		client:  client,
		cascade: "0",
		logger:  logging.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run applies the action to each row's Value in input order. Quota
// exhaustion or a credential failure halts the run with every remaining
// row reporting the halting error.
func (h *HoldingsManager) Run(ctx context.Context, action HoldingAction, rows []Row) *Summary {
	summary := &Summary{}

	var haltErr error
	for _, row := range rows {
		if haltErr != nil {
			summary.addError(row, haltErr)
			continue
		}

		n := oclc.Parse(row.Value)
		if !n.Valid {
			summary.addError(row, errors.NewValidationError("OCLC number", row.Value, n.Reason))
			continue
		}

		outcome, err := h.apply(ctx, action, row, n)
		if err != nil {
			if haltsRun(err) {
				haltErr = err
				summary.Halted = true
			}
			summary.addError(row, err)
			continue
		}
		summary.add(outcome)
	}

	h.logger.Info().
		Str("action", string(action)).
		Int("rows", len(rows)).
		Bool("halted", summary.Halted).
		Msg("holdings run finished")

	return summary
}

func (h *HoldingsManager) apply(ctx context.Context, action HoldingAction, row Row, n oclc.Number) (Outcome, error) {
	switch action {
	case HoldingGet:
		return h.get(ctx, row, n)
	case HoldingSet, HoldingUnset:
		return h.change(ctx, action, row, n)
	default:
		return Outcome{}, errors.NewValidationError("action", string(action), "unknown holdings action")
	}
}

// get resolves the number's current form without touching holdings.
func (h *HoldingsManager) get(ctx context.Context, row Row, n oclc.Number) (Outcome, error) {
	result, err := h.client.CurrentControlNumber(ctx, n)
	if err != nil {
		return Outcome{}, err
	}
	if !result.Found {
		return Outcome{}, errors.New("no record found for OCLC number " + n.Digits)
	}

	if result.Current.Valid && !result.Current.Equal(n) {
		return Outcome{
			Row:    row,
			Bucket: BucketSuperseded,
			Detail: "superseded by " + result.Current.Digits,
		}, nil
	}
	return Outcome{Row: row, Bucket: BucketCurrent}, nil
}

// change sets or unsets the holding. The service resolves merged numbers
// itself and reports the current one back; a stale input number still
// succeeds but is flagged so the local record can be corrected.
func (h *HoldingsManager) change(ctx context.Context, action HoldingAction, row Row, n oclc.Number) (Outcome, error) {
	var result worldcat.HoldingResult
	var err error
	if action == HoldingSet {
		result, err = h.client.SetHolding(ctx, n)
	} else {
		result, err = h.client.UnsetHolding(ctx, n, h.cascade)
	}
	if err != nil {
		return Outcome{}, err
	}

	if !result.Success {
		message := result.Message
		if message == "" {
			message = "service rejected the holdings change"
		}
		return Outcome{}, errors.New(message)
	}

	outcome := Outcome{Row: row, Bucket: BucketHoldingSet}
	if action == HoldingUnset {
		outcome.Bucket = BucketHoldingUnset
	}
	if result.Updated {
		outcome.Detail = "number superseded by " + result.Current.Digits
	}
	return outcome, nil
}
