package tracker

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/redboxergaming-hash/trackerv8/internal/cloudsync"
	"github.com/redboxergaming-hash/trackerv8/internal/store"
)

var (
	syncDate    string
	syncPush    bool
	syncPull    bool
	syncIfEmpty bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronize persons and recent entries with the remote",
	Long: `Synchronize with the remote configured by remote.url and remote.token.
Entry sync covers the 30 days ending on --date. Pulls keep whichever copy
was updated last.`,
}

var syncPushCmd = &cobra.Command{
	Use:   "push",
	Short: "Push persons and the person's recent entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withOrchestrator(cmd, func(ctx context.Context, st *store.Store, orch *cloudsync.Orchestrator) error {
			end, err := parseDateFlag(syncDate)
			if err != nil {
				return err
			}
			persons, err := orch.PushPersons(ctx)
			fmt.Fprintln(cmd.OutOrStdout(), persons.String())
			if err != nil {
				return err
			}
			p, err := resolvePerson(ctx, st)
			if err != nil {
				return err
			}
			entries, err := orch.PushEntries(ctx, p.ID, end)
			fmt.Fprintln(cmd.OutOrStdout(), entries.String())
			return err
		})
	},
}

var syncPullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Pull newer persons and the person's recent entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withOrchestrator(cmd, func(ctx context.Context, st *store.Store, orch *cloudsync.Orchestrator) error {
			end, err := parseDateFlag(syncDate)
			if err != nil {
				return err
			}
			persons, err := orch.PullPersons(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), persons.String())
			p, err := resolvePerson(ctx, st)
			if err != nil {
				return err
			}
			entries, err := orch.PullEntries(ctx, p.ID, end)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), entries.String())
			return nil
		})
	},
}

var syncPersonsCmd = &cobra.Command{
	Use:   "persons",
	Short: "Push or pull persons only",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !syncPush && !syncPull && !syncIfEmpty {
			return fmt.Errorf("choose --push, --pull, or --if-empty")
		}
		return withOrchestrator(cmd, func(ctx context.Context, st *store.Store, orch *cloudsync.Orchestrator) error {
			if syncPush {
				report, err := orch.PushPersons(ctx)
				fmt.Fprintln(cmd.OutOrStdout(), report.String())
				if err != nil {
					return err
				}
			}
			if syncPull || syncIfEmpty {
				pull := orch.PullPersons
				if syncIfEmpty {
					pull = orch.PullPersonsIfEmpty
				}
				report, err := pull(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), report.String())
			}
			return nil
		})
	},
}

func withOrchestrator(cmd *cobra.Command, run func(ctx context.Context, st *store.Store, orch *cloudsync.Orchestrator) error) error {
	return withStore(cmd, func(ctx context.Context, st *store.Store) error {
		orch, err := newOrchestrator(st)
		if err != nil {
			return err
		}
		if orch == nil {
			return fmt.Errorf("%w: set remote.url and remote.token", cloudsync.ErrNotSignedIn)
		}
		return run(ctx, st, orch)
	})
}

func init() {
	for _, c := range []*cobra.Command{syncPushCmd, syncPullCmd} {
		c.Flags().StringVar(&syncDate, "date", "", "Last day of the 30-day entry window (default today)")
	}
	syncPersonsCmd.Flags().BoolVar(&syncPush, "push", false, "Push local persons")
	syncPersonsCmd.Flags().BoolVar(&syncPull, "pull", false, "Pull newer remote persons")
	syncPersonsCmd.Flags().BoolVar(&syncIfEmpty, "if-empty", false, "Pull only when no local persons exist")

	syncCmd.AddCommand(syncPushCmd, syncPullCmd, syncPersonsCmd)
	rootCmd.AddCommand(syncCmd)
}
