package tracker

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/redboxergaming-hash/trackerv8/internal/db"
	"github.com/redboxergaming-hash/trackerv8/internal/store"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the local tracker database",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, st *store.Store) error {
			version, err := db.SchemaVersion(st.DB())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized tracker database at %s (schema v%d)\n", cfg.DBPath, version)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
