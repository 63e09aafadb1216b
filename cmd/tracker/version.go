package tracker

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// version is set with -ldflags "-X github.com/redboxergaming-hash/trackerv8/cmd/tracker.version=..."
var version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version/build metadata",
	Run: func(cmd *cobra.Command, args []string) {
		printVersion(cmd)
	},
}

func printVersion(cmd *cobra.Command) {
	revision := ""
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			if s.Key == "vcs.revision" && len(s.Value) >= 7 {
				revision = s.Value[:7]
			}
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "tracker %s", version)
	if revision != "" {
		fmt.Fprintf(cmd.OutOrStdout(), " (%s)", revision)
	}
	fmt.Fprintf(cmd.OutOrStdout(), " %s/%s %s\n", runtime.GOOS, runtime.GOARCH, runtime.Version())
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
