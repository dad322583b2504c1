package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"SectorFlow/internal/di"
	"SectorFlow/internal/presenter"
	"SectorFlow/pkg/config"

	"github.com/spf13/cobra"
)

// Execute builds the command tree. serve is the default command.
func Execute(ctx context.Context) error {
	var configPath string

	root := &cobra.Command{
		Use:           "sectorflow",
		Short:         "S&P 500 sector money-flow service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config/config.yaml", "config file path")

	serve := serveCmd(&configPath)
	root.AddCommand(serve, refreshCmd(&configPath))
	root.RunE = serve.RunE

	return root.ExecuteContext(ctx)
}

func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); err != nil && os.IsNotExist(err) {
		path = ""
	}
	cfg, err := config.LoadWithEnv(path)
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}
	return cfg, nil
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Refresh on a timer and serve results over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			app, cleanup, err := di.InitializeApp(cfg)
			if err != nil {
				return fmt.Errorf("app initialization failed: %w", err)
			}
			defer cleanup()
			return app.Run(cmd.Context())
		},
	}
}

func refreshCmd(configPath *string) *cobra.Command {
	var (
		asJSON  bool
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Run one refresh cycle and print the sector table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			app, cleanup, err := di.InitializeApp(cfg)
			if err != nil {
				return fmt.Errorf("app initialization failed: %w", err)
			}
			defer cleanup()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			res, err := app.RefreshOnce(ctx)
			if err != nil {
				return fmt.Errorf("refresh failed: %w", err)
			}

			dash := presenter.BuildFigures(res, app.Location())
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(dash)
			}
			return presenter.WriteTable(out, dash)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print figures as JSON")
	cmd.Flags().DurationVar(&timeout, "timeout", 20*time.Minute, "abort the cycle after this long")
	return cmd
}
