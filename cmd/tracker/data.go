package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/redboxergaming-hash/trackerv8/internal/store"
)

var (
	exportOut string
	importIn  string
	assumeYes bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a full JSON backup",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, st *store.Store) error {
			data, err := st.ExportAllData(ctx)
			if err != nil {
				return err
			}
			b, err := json.MarshalIndent(data, "", "  ")
			if err != nil {
				return fmt.Errorf("marshal export: %w", err)
			}
			if exportOut == "" || exportOut == "-" {
				fmt.Fprintln(cmd.OutOrStdout(), string(b))
				return nil
			}
			if err := os.WriteFile(exportOut, append(b, '\n'), 0o600); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d person(s) and %d entries to %s\n", len(data.Persons), len(data.Entries), exportOut)
			return nil
		})
	},
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Replace all local data with a JSON backup",
	RunE: func(cmd *cobra.Command, args []string) error {
		var r io.Reader = cmd.InOrStdin()
		if importIn != "" && importIn != "-" {
			f, err := os.Open(importIn)
			if err != nil {
				return fmt.Errorf("open import file: %w", err)
			}
			defer f.Close()
			r = f
		}
		payload, err := io.ReadAll(r)
		if err != nil {
			return fmt.Errorf("read import: %w", err)
		}
		if err := confirm("Replace all local data with this backup?", assumeYes); err != nil {
			return err
		}
		return withStore(cmd, func(ctx context.Context, st *store.Store) error {
			counts, err := st.ImportAllData(ctx, payload)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d record(s): %d person(s), %d entries\n", counts.Total(), counts.Persons, counts.Entries)
			return nil
		})
	},
}

var wipeCmd = &cobra.Command{
	Use:   "wipe",
	Short: "Delete all local data",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := confirm("Delete ALL local data? This cannot be undone.", assumeYes); err != nil {
			return err
		}
		return withStore(cmd, func(ctx context.Context, st *store.Store) error {
			if err := st.DeleteAllData(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Deleted all local data.")
			return nil
		})
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Replace persons and food logs with sample data",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := confirm("Replace persons and food logs with sample data?", assumeYes); err != nil {
			return err
		}
		return withStore(cmd, func(ctx context.Context, st *store.Store) error {
			res, err := st.SeedSampleData(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d person(s) and %d entries.\n", len(res.Persons), len(res.Entries))
			return nil
		})
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "", "Output file (default stdout)")
	importCmd.Flags().StringVar(&importIn, "in", "", "Backup file (default stdin)")
	for _, c := range []*cobra.Command{importCmd, wipeCmd, seedCmd} {
		c.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Skip confirmation")
	}
	rootCmd.AddCommand(exportCmd, importCmd, wipeCmd, seedCmd)
}
