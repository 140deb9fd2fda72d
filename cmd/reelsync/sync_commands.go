package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"reelsync/internal/catalog"
	"reelsync/internal/store"
	"reelsync/internal/syncer"
)

func newSyncCommand(cmdCtx *commandContext) *cobra.Command {
	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Synchronize the local catalog with the upstream feed",
	}

	syncCmd.AddCommand(newSyncBootstrapCommand(cmdCtx))
	syncCmd.AddCommand(newSyncDailyCommand(cmdCtx))

	return syncCmd
}

func newSyncBootstrapCommand(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "bootstrap",
		Short: "Full initial sync, partitioned by release year",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdCtx.withLock(func() error {
				ctx, stop := signalContext()
				defer stop()

				return runSync(ctx, cmdCtx, cmd, func(ctx context.Context, engine *syncer.Engine) (*store.SyncRun, error) {
					return engine.Bootstrap(ctx)
				})
			})
		},
	}
}

func newSyncDailyCommand(cmdCtx *commandContext) *cobra.Command {
	var forceReconcile bool

	cmd := &cobra.Command{
		Use:   "daily",
		Short: "Incremental sync since the last watermark",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmdCtx.withLock(func() error {
				ctx, stop := signalContext()
				defer stop()

				return runSync(ctx, cmdCtx, cmd, func(ctx context.Context, engine *syncer.Engine) (*store.SyncRun, error) {
					run, err := engine.Incremental(ctx)
					if err != nil {
						return run, err
					}
					printRun(cmd, run)

					due := forceReconcile
					if !due {
						due, err = engine.ReconcileDue(ctx)
						if err != nil {
							return nil, err
						}
					}
					if !due {
						return nil, nil
					}
					return engine.Reconcile(ctx)
				})
			})
		},
	}

	cmd.Flags().BoolVar(&forceReconcile, "reconcile", false, "Run the deletion reconcile pass regardless of schedule")
	return cmd
}

func runSync(ctx context.Context, cmdCtx *commandContext, cmd *cobra.Command, fn func(context.Context, *syncer.Engine) (*store.SyncRun, error)) error {
	cfg, err := cmdCtx.ensureConfig()
	if err != nil {
		return err
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

	client, err := cmdCtx.catalogClient(ctx, st, logger)
	if err != nil {
		return err
	}

	engine := syncer.New(st, client, cfg, logger)
	run, err := fn(ctx, engine)
	if run != nil {
		printRun(cmd, run)
	}
	if err != nil {
		if errors.Is(err, catalog.ErrAuthRejected) {
			discardCredential(ctx, st, logger)
		}
		return err
	}

	// Keep the current credential for the next invocation.
	cred := client.Credential()
	if _, err := st.SaveCredential(ctx, cred.Token, cred.IssuedAt, cred.ExpiresAt); err != nil {
		logger.Warn("persist credential failed", "error", err)
	}
	return nil
}

// discardCredential drops the stored credential after the upstream
// rejected it; the next run issues a fresh one.
func discardCredential(ctx context.Context, st *store.Store, logger *slog.Logger) {
	cred, err := st.ActiveCredential(ctx)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			logger.Warn("load credential for discard failed", "error", err)
		}
		return
	}
	if err := st.DiscardCredential(ctx, cred.ID); err != nil {
		logger.Warn("discard credential failed", "error", err)
		return
	}
	logger.Info("discarded rejected credential", "credential_id", cred.ID)
}

func printRun(cmd *cobra.Command, run *store.SyncRun) {
	rows := [][2]string{
		{"Run", run.RunID},
		{"Type", string(run.SyncType)},
		{"Status", string(run.Status)},
		{"Started", run.StartedAt.UTC().Format(time.RFC3339)},
		{"Duration", run.Duration().Round(time.Second).String()},
		{"Fetched", strconv.Itoa(run.ItemsFetched)},
		{"Added", strconv.Itoa(run.ItemsAdded)},
		{"Updated", strconv.Itoa(run.ItemsUpdated)},
		{"Deleted", strconv.Itoa(run.ItemsDeleted)},
		{"API requests", strconv.Itoa(run.APIRequests)},
		{"Errors", strconv.Itoa(len(run.Errors))},
	}
	fmt.Fprintln(cmd.OutOrStdout(), kvTable("Field", "Value", rows))
	for _, msg := range run.Errors {
		fmt.Fprintf(cmd.OutOrStdout(), "  error: %s\n", msg)
	}
}
