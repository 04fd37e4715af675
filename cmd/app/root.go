package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"SignalDesk/pkg/config"
)

// Execute runs the signaldesk CLI.
func Execute(ctx context.Context) error {
	var configPath string
	root := &cobra.Command{
		Use:           "signaldesk",
		Short:         "Trading signal dashboard backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config/config.yaml", "config file path")

	load := func() (*config.Config, error) {
		cfg, err := config.LoadWithEnv(configPath)
		if err != nil {
			return nil, fmt.Errorf("config load failed: %w", err)
		}
		return cfg, nil
	}

	root.AddCommand(serveCmd(load), checkCmd(load))
	return root.ExecuteContext(ctx)
}
