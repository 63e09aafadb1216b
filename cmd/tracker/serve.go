package tracker

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/redboxergaming-hash/trackerv8/internal/app"
	"github.com/redboxergaming-hash/trackerv8/internal/db"
	"github.com/redboxergaming-hash/trackerv8/internal/syncserver"
)

var (
	serveAddr string
	tokenUser string
	tokenTTL  time.Duration
)

var errNoSecret = errors.New("server.jwt_secret is not set (config or TRACKER_SERVER_JWT_SECRET)")

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the sync server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Server.JWTSecret == "" {
			return errNoSecret
		}
		addr := cfg.Server.Addr
		if serveAddr != "" {
			addr = serveAddr
		}
		if err := app.EnsureDBDir(cfg.Server.DBPath); err != nil {
			return err
		}
		sqldb, err := db.Open(cfg.Server.DBPath)
		if err != nil {
			return err
		}
		defer sqldb.Close()

		parent := cmd.Context()
		if parent == nil {
			parent = context.Background()
		}
		ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		storage, err := syncserver.NewStorage(ctx, sqldb)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Sync server listening on %s\n", addr)
		return syncserver.New(storage, cfg.Server.JWTSecret, logger.Named("syncserver")).ListenAndServe(ctx, addr)
	},
}

var serveTokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for a user of this server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Server.JWTSecret == "" {
			return errNoSecret
		}
		if tokenUser == "" {
			return fmt.Errorf("--user is required")
		}
		token, err := syncserver.IssueToken(cfg.Server.JWTSecret, tokenUser, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default server.addr)")
	serveTokenCmd.Flags().StringVar(&tokenUser, "user", "", "User id (token subject)")
	serveTokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "Token lifetime (0 for no expiry)")

	serveCmd.AddCommand(serveTokenCmd)
	rootCmd.AddCommand(serveCmd)
}
