package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	_ "github.com/nerrad567/gray-logic-irrigation/migrations"

	"github.com/nerrad567/gray-logic-irrigation/internal/decision"
	"github.com/nerrad567/gray-logic-irrigation/internal/history"
	"github.com/nerrad567/gray-logic-irrigation/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-irrigation/internal/infrastructure/logging"
)

func newCycleCmd(configPath *string) *cobra.Command {
	var local bool

	cmd := &cobra.Command{
		Use:   "cycle",
		Short: "Run one decision cycle and print the report as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			if local {
				cfg.Irrigation.Mode = config.ModeLocal
			}
			return runOnce(cmd.Context(), cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	cmd.Flags().BoolVar(&local, "local", false, "compute and log commands without sending them")
	return cmd
}

// runOnce runs a single cycle against the configured provider. Logs go to
// logOut so the report on out stays machine-readable.
func runOnce(ctx context.Context, cfg *config.Config, out, logOut io.Writer) error {
	log := logging.NewWithWriter(logOut, cfg.Logging, version)

	db, err := openDatabase(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer db.Close() //nolint:errcheck // best-effort on exit

	store, err := loadStrategies(ctx, cfg, log)
	if err != nil {
		return err
	}

	provider, err := buildProvider(cfg, db, log)
	if err != nil {
		return err
	}

	deps := engineDeps{
		provider: provider,
		store:    store,
		history:  history.NewSQLiteRepository(db.DB),
		log:      log,
	}
	if cfg.Irrigation.IsRemote() {
		deps.mqtt, err = connectMQTT(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer deps.mqtt.Close() //nolint:errcheck // best-effort on exit
	}

	engine, err := buildEngine(cfg, deps)
	if err != nil {
		return err
	}

	report, err := engine.RunCycle(ctx)
	if err != nil {
		return fmt.Errorf("running cycle: %w", err)
	}
	return writeReport(out, report)
}

func writeReport(w io.Writer, report decision.CycleReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
