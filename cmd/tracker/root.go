package tracker

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/redboxergaming-hash/trackerv8/internal/app"
)

var (
	dbPath     string
	configPath string
	personFlag string
	logLevel   string

	cfg    app.Config
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "tracker",
	Short: "tracker logs food, weight and habits for everyone in your household",
	Long:  "tracker is a local-first nutrition and habit tracker with per-person goals, meal templates, recipes, fasting, and optional sync to a self-hosted server.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		v := viper.New()
		flags := cmd.Root().PersistentFlags()
		for key, flag := range map[string]string{"db": "db", "person": "person", "log.level": "log-level"} {
			if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
				return fmt.Errorf("bind --%s: %w", flag, err)
			}
		}
		loaded, err := app.LoadConfig(v, configPath)
		if err != nil {
			return err
		}
		log, err := app.NewLogger(loaded.Log, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		cfg = loaded
		logger = log
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to SQLite database")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default $UserConfigDir/trackerv8/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&personFlag, "person", "", "Person id or name (default from config, or the only person)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error")
}
