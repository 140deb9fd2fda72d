package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"reelsync/internal/store"
)

func newStatusCommand(cmdCtx *commandContext) *cobra.Command {
	var runLimit int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show catalog, sync, and match state",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := cmdCtx.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			counts, err := st.CountItems(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, kvTable("Catalog", "Count", [][2]string{
				{"Total items", strconv.Itoa(counts.Total)},
				{"Active", strconv.Itoa(counts.Active)},
				{"Deleted", strconv.Itoa(counts.Deleted)},
				{"Matched", strconv.Itoa(counts.Matched)},
			}))

			runs, err := st.RecentRuns(ctx, runLimit)
			if err != nil {
				return err
			}
			if len(runs) > 0 {
				rows := make([][]string, 0, len(runs))
				for _, run := range runs {
					rows = append(rows, []string{
						string(run.SyncType),
						string(run.Status),
						run.StartedAt.UTC().Format("2006-01-02 15:04"),
						run.Duration().Round(time.Second).String(),
						strconv.Itoa(run.ItemsFetched),
						strconv.Itoa(run.ItemsAdded),
						strconv.Itoa(run.ItemsUpdated),
						strconv.Itoa(run.ItemsDeleted),
						strconv.Itoa(len(run.Errors)),
					})
				}
				fmt.Fprintln(out, listTable(
					[]string{"Type", "Status", "Started", "Duration", "Fetched", "Added", "Updated", "Deleted", "Errors"},
					rows, 3, 4, 5, 6, 7, 8,
				))
			}

			stuck, err := st.StuckRuns(ctx)
			if err != nil {
				return err
			}
			for _, run := range stuck {
				fmt.Fprintf(out, "Warning: run %s (%s) started %s is still marked running\n",
					run.RunID, run.SyncType, run.StartedAt.UTC().Format(time.RFC3339))
			}

			if counts.Matched > 0 {
				if err := printStats(cmd, st); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&runLimit, "runs", 10, "Number of recent sync runs to show")
	return cmd
}

func printStats(cmd *cobra.Command, st *store.Store) error {
	stats, err := st.MatchSummary(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), kvTable("Matching", "Value", [][2]string{
		{"Records", strconv.Itoa(stats.Total)},
		{"Needs review", strconv.Itoa(stats.NeedsReview)},
		{"Avg confidence", fmt.Sprintf("%.1f", stats.AvgConfidence)},
	}))
	return nil
}
