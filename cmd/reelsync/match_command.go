package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"reelsync/internal/matcher"
	"reelsync/internal/tmdb"
)

func newMatchCommand(cmdCtx *commandContext) *cobra.Command {
	var (
		limit     int
		offset    int
		batchSize int
		dryRun    bool
		rematch   bool
	)

	cmd := &cobra.Command{
		Use:   "match",
		Short: "Resolve catalog items against the reference catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdCtx.withLock(func() error {
				ctx, stop := signalContext()
				defer stop()

				cfg, err := cmdCtx.ensureConfig()
				if err != nil {
					return err
				}
				if batchSize > 0 {
					cfg.Reference.Concurrency = batchSize
				}
				logger, err := cmdCtx.ensureLogger()
				if err != nil {
					return err
				}

				st, err := cmdCtx.openStore()
				if err != nil {
					return err
				}
				defer st.Close()

				api, err := tmdb.New(cfg.Reference)
				if err != nil {
					return err
				}

				resolver := matcher.NewResolver(st, api, cfg, logger)
				summary, err := resolver.ResolveBatch(ctx, matcher.BatchOptions{
					Limit:   limit,
					Offset:  offset,
					DryRun:  dryRun,
					Rematch: rematch,
				})
				if err != nil {
					return err
				}

				printMatchSummary(cmd, summary, dryRun)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of items to resolve (0 = all)")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of items to skip")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "Concurrent resolution workers (default from config)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Resolve without persisting match records")
	cmd.Flags().BoolVar(&rematch, "rematch", false, "Also revise previously auto-matched items")
	return cmd
}

func printMatchSummary(cmd *cobra.Command, summary *matcher.Summary, dryRun bool) {
	rows := [][2]string{
		{"Processed", strconv.Itoa(summary.Processed)},
		{"Saved", strconv.Itoa(summary.Saved)},
		{"High confidence", strconv.Itoa(summary.High)},
		{"Low confidence", strconv.Itoa(summary.Low)},
		{"No results", strconv.Itoa(summary.NoResults)},
		{"No match", strconv.Itoa(summary.NoMatch)},
		{"Manual, skipped", strconv.Itoa(summary.SkippedManual)},
		{"Failed", strconv.Itoa(summary.Failed)},
	}
	fmt.Fprintln(cmd.OutOrStdout(), kvTable("Outcome", "Count", rows))
	if dryRun {
		fmt.Fprintln(cmd.OutOrStdout(), "Dry run: nothing was persisted.")
	}
}
