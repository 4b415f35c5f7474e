package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/catalogops/oclcrecon/internal/pipeline"
	"github.com/catalogops/oclcrecon/internal/report"
)

// NewUpdateCommand creates the update command.
func (a *App) NewUpdateCommand() *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "update <records.csv>",
		Short: "Bring local records' OCLC numbers up to date",
		Long: `Update rewrites each listed local record so its control-number field
carries the authoritative OCLC number, moving superseded numbers into the
former-numbers field.

The input file has two columns: the record's MMS ID and its authoritative
OCLC number (as previously resolved against WorldCat). Records are read in
batches; each record needing a change is written back individually.`,
		Example: `  oclcrecon update needs-update.csv
  oclcrecon update needs-update.csv --output results/`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.AlmaClient()
			if err != nil {
				return err
			}
			rows, err := readRows(args[0])
			if err != nil {
				return err
			}

			u := pipeline.NewUpdater(client, a.config.AlmaBatchSize, pipeline.WithUpdaterLogger(a.logger))
			summary := u.Run(cmd.Context(), rows)

			return a.finish("update", summary, outputDir)
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "directory for per-bucket result files")

	return cmd
}

// NewSearchCommand creates the search command.
func (a *App) NewSearchCommand() *cobra.Command {
	var outputDir string
	var heldOnly bool

	cmd := &cobra.Command{
		Use:   "search <queries.csv>",
		Short: "Search WorldCat and classify rows by match count",
		Long: `Search runs one WorldCat query per input row and classifies each row by
how many records matched: none, exactly one, or more than one. A row with
exactly one match carries the matched OCLC number in its result detail.

The input file has two columns: a local record ID and the query.`,
		Example: `  oclcrecon search queries.csv
  oclcrecon search queries.csv --held`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.WorldCatClient()
			if err != nil {
				return err
			}
			rows, err := readRows(args[0])
			if err != nil {
				return err
			}

			var opts []pipeline.SearcherOption
			if heldOnly {
				opts = append(opts, pipeline.WithHeldOnly())
			}
			opts = append(opts, pipeline.WithSearcherLogger(a.logger))

			s := pipeline.NewSearcher(client, opts...)
			summary := s.Run(cmd.Context(), rows)

			return a.finish("search", summary, outputDir)
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "directory for per-bucket result files")
	cmd.Flags().BoolVar(&heldOnly, "held", false, "restrict searches to records the institution already holds")

	return cmd
}

// NewHoldingsCommand creates the holdings command group.
func (a *App) NewHoldingsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "holdings",
		Short: "Manage the institution's WorldCat holdings",
		Long: `Holdings manages the institution's registered holdings in WorldCat, one
OCLC number per input row (first CSV column).`,
	}

	cmd.AddCommand(a.newHoldingsActionCommand(pipeline.HoldingGet,
		"get <numbers.csv>", "Check whether each OCLC number is still current"))
	cmd.AddCommand(a.newHoldingsActionCommand(pipeline.HoldingSet,
		"set <numbers.csv>", "Register a holding on each OCLC number"))
	cmd.AddCommand(a.newHoldingsActionCommand(pipeline.HoldingUnset,
		"unset <numbers.csv>", "Withdraw the holding from each OCLC number"))

	return cmd
}

func (a *App) newHoldingsActionCommand(action pipeline.HoldingAction, use, short string) *cobra.Command {
	var outputDir string
	var cascade string

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.WorldCatClient()
			if err != nil {
				return err
			}
			rows, err := readValues(args[0])
			if err != nil {
				return err
			}

			h := pipeline.NewHoldingsManager(client,
				pipeline.WithCascade(cascade),
				pipeline.WithHoldingsLogger(a.logger))
			summary := h.Run(cmd.Context(), action, rows)

			return a.finish("holdings-"+string(action), summary, outputDir)
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "directory for per-bucket result files")
	if action == pipeline.HoldingUnset {
		cmd.Flags().StringVar(&cascade, "cascade", "0",
			"local holdings cascade: 0 blocks the unset when local holdings records exist, 1 removes them too")
	}

	return cmd
}

// NewCompareCommand creates the compare command.
func (a *App) NewCompareCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <local.csv> <remote.csv>",
		Short: "Compare the local and remote identifier universes",
		Long: `Compare diffs two sets of OCLC numbers, typically an export of the local
catalog against an export of the institution's WorldCat holdings, and
partitions them into numbers held on both sides, locally only (holdings to
set), and remotely only (holdings to unset). Each file contributes its
first CSV column.`,
		Args: cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			local, err := readColumn(args[0])
			if err != nil {
				return err
			}
			remote, err := readColumn(args[1])
			if err != nil {
				return err
			}

			comparison := pipeline.Compare(local, remote)
			fmt.Fprintln(os.Stdout, report.New("compare").Comparison(comparison))
			return nil
		},
	}

	return cmd
}

// finish renders the run summary and writes the per-bucket result files.
func (a *App) finish(workflow string, summary *pipeline.Summary, outputDir string) error {
	r := report.New(workflow)
	fmt.Fprintln(os.Stdout, r.Summary(summary, a.Tracker()))

	if problems := r.Problems(summary); problems != "" && !a.config.Quiet {
		fmt.Fprintln(os.Stdout, problems)
	}

	if outputDir != "" {
		if err := writeBuckets(outputDir, workflow, summary); err != nil {
			return err
		}
		a.logger.Info().Str("dir", outputDir).Msg("wrote per-bucket result files")
	}
	return nil
}
