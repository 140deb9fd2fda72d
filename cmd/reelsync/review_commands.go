package main

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"reelsync/internal/review"
	"reelsync/internal/store"
)

func newReviewCommand(cmdCtx *commandContext) *cobra.Command {
	var (
		maxConfidence int
		limit         int
	)

	cmd := &cobra.Command{
		Use:   "review",
		Short: "Review low-confidence matches interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !review.StdinInteractive() {
				return errors.New("review needs a terminal; use `review export` for batch editing")
			}
			return cmdCtx.withLock(func() error {
				ctx, stop := signalContext()
				defer stop()

				reviewer, st, err := newReviewer(cmdCtx)
				if err != nil {
					return err
				}
				defer st.Close()

				session := review.NewSession(reviewer, os.Stdin, cmd.OutOrStdout())
				summary, err := session.Run(ctx, limit, maxConfidence)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(),
					"Reviewed %d: %d accepted, %d rejected, %d manual, %d skipped\n",
					summary.Reviewed, summary.Accepted, summary.Rejected, summary.Manual, summary.Skipped)
				return nil
			})
		},
	}

	cmd.PersistentFlags().IntVar(&maxConfidence, "confidence", 0, "Only records below this confidence (0 = all pending)")
	cmd.PersistentFlags().IntVar(&limit, "limit", 0, "Maximum number of records (0 = all)")

	cmd.AddCommand(newReviewExportCommand(cmdCtx, &maxConfidence, &limit))
	cmd.AddCommand(newReviewImportCommand(cmdCtx))
	cmd.AddCommand(newReviewStatsCommand(cmdCtx))
	return cmd
}

func newReviewExportCommand(cmdCtx *commandContext, maxConfidence, limit *int) *cobra.Command {
	return &cobra.Command{
		Use:   "export FILE",
		Short: "Write the pending review queue to a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reviewer, st, err := newReviewer(cmdCtx)
			if err != nil {
				return err
			}
			defer st.Close()

			file, err := os.Create(args[0])
			if err != nil {
				return fmt.Errorf("create %s: %w", args[0], err)
			}
			defer file.Close()

			rows, err := reviewer.Export(cmd.Context(), file, *limit, *maxConfidence)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d pending records to %s\n", rows, args[0])
			return nil
		},
	}
}

func newReviewImportCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Apply reviewer decisions from an edited CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdCtx.withLock(func() error {
				reviewer, st, err := newReviewer(cmdCtx)
				if err != nil {
					return err
				}
				defer st.Close()

				file, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open %s: %w", args[0], err)
				}
				defer file.Close()

				summary, err := reviewer.Import(cmd.Context(), file)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Rows %d: %d updated, %d rejected, %d skipped\n",
					summary.Rows, summary.Updated, summary.Rejected, summary.Skipped)
				for _, msg := range summary.Errors {
					fmt.Fprintf(out, "  error: %s\n", msg)
				}
				if len(summary.Errors) > 0 {
					return fmt.Errorf("import finished with %d row errors", len(summary.Errors))
				}
				return nil
			})
		},
	}
}

func newReviewStatsCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show aggregate match statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			reviewer, st, err := newReviewer(cmdCtx)
			if err != nil {
				return err
			}
			defer st.Close()

			stats, err := reviewer.Stats(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, kvTable("Metric", "Value", [][2]string{
				{"Total records", strconv.Itoa(stats.Total)},
				{"Needs review", strconv.Itoa(stats.NeedsReview)},
				{"Avg confidence", fmt.Sprintf("%.1f", stats.AvgConfidence)},
			}))

			sources := make([]string, 0, len(stats.BySource))
			for source := range stats.BySource {
				sources = append(sources, string(source))
			}
			sort.Strings(sources)
			sourceRows := make([][2]string, 0, len(sources))
			for _, source := range sources {
				sourceRows = append(sourceRows, [2]string{source, strconv.Itoa(stats.BySource[store.MatchSource(source)])})
			}
			fmt.Fprintln(out, kvTable("Source", "Count", sourceRows))
			return nil
		},
	}
}

func newReviewer(cmdCtx *commandContext) (*review.Reviewer, *store.Store, error) {
	cfg, err := cmdCtx.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := cmdCtx.ensureLogger()
	if err != nil {
		return nil, nil, err
	}
	st, err := cmdCtx.openStore()
	if err != nil {
		return nil, nil, err
	}
	return review.New(st, cfg, logger), st, nil
}
