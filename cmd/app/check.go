package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"SignalDesk/internal/di"
	models "SignalDesk/internal/domain/models"
	"SignalDesk/internal/usecase"
	"SignalDesk/pkg/config"
	applogger "SignalDesk/pkg/logger"
)

// checkCmd runs the first notifying cycle against the configured upstream and prints the
// resulting state as JSON. It exits non-zero when the state carries an error.
func checkCmd(load func() (*config.Config, error)) *cobra.Command {
	var (
		pair    string
		token   string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Fetch one dashboard snapshot and print it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			probe, err := di.InitializeProbe(cfg)
			if err != nil {
				return fmt.Errorf("probe initialization failed: %w", err)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			o := usecase.NewOrchestrator(usecase.Config{
				Pair:      pair,
				Token:     token,
				Interval:  cfg.Polling.Interval,
				FreePairs: cfg.Polling.FreePairs,
			}, probe.Source,
				usecase.WithLogger(probe.Log),
				usecase.WithMetrics(probe.Metrics),
			)
			defer o.Close()

			events, unsubscribe := o.Subscribe(16)
			defer unsubscribe()

			healthy := o.CheckHealth(ctx)
			o.Start(ctx)
			state, err := o.WaitReady(ctx)
			if err != nil {
				return fmt.Errorf("no snapshot before deadline: %w", err)
			}
			drainNotices(events, probe.Log)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(map[string]any{
				"upstreamHealthy": healthy,
				"state":           state,
			}); err != nil {
				return err
			}
			if state.Error != nil {
				return fmt.Errorf("check failed: %s", *state.Error)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&pair, "pair", usecase.DefaultFreePair, "instrument to fetch")
	cmd.Flags().StringVar(&token, "token", "", "bearer token forwarded upstream")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "overall deadline")
	return cmd
}

func drainNotices(events <-chan models.Event, log *applogger.Logger) {
	for {
		select {
		case ev := <-events:
			if ev.Type == models.EventNotice {
				log.Warn("notice", applogger.String("text", ev.Notice))
			}
		default:
			return
		}
	}
}
