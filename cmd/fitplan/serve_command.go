package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sakif/fitplan/internal/server"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger := ctx.logger(os.Stdout)
			if ctx.configFile != "" {
				logger.Info("configuration loaded", slog.String("file", ctx.configFile))
			}

			srv, err := server.New(cfg, logger)
			if err != nil {
				return fmt.Errorf("create server: %w", err)
			}
			return srv.Start()
		},
	}
}

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := ctx.openDatabase()
			if err != nil {
				return err
			}
			defer db.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "Database %s is up to date\n", ctx.config.Database.Path)
			return nil
		},
	}
}
