package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/signalsfoundry/ransched/internal/config"
	"github.com/signalsfoundry/ransched/internal/logging"
	"github.com/signalsfoundry/ransched/internal/observability"
	"github.com/signalsfoundry/ransched/internal/runtime"
	"github.com/signalsfoundry/ransched/timectrl"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ransched",
		Short: "Slot-driven UE event dispatch for a 5G DU scheduler.",
		Long: "ransched accepts UE lifecycle requests and radio feedback over gRPC " +
			"and applies them to UE state once per slot and cell.",
		SilenceUsage: true,
	}
	root.AddCommand(newRunCmd(), newValidateCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var (
		configPath  string
		envFiles    []string
		duration    time.Duration
		accelerated bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the ingress server and the slot loop.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath, envFiles...)
			if err != nil {
				return err
			}
			mode := timectrl.RealTime
			if accelerated {
				mode = timectrl.Accelerated
			}
			return run(cmd.Context(), cfg, mode, duration)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to the YAML configuration file")
	cmd.Flags().StringSliceVar(&envFiles, "env-file", nil, ".env files to load before reading the environment (default .env)")
	cmd.Flags().DurationVar(&duration, "duration", 0, "stop after this much slot time (0 runs until interrupted)")
	cmd.Flags().BoolVar(&accelerated, "accelerated", false, "emit slots back to back instead of in real time")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}

func newValidateCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a configuration file and report every problem found.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "configuration ok: %d cells, numerology %d, slot %s\n",
				len(cfg.Cells), cfg.Numerology, timectrl.SlotDuration(cfg.Numerology))
			return nil
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to the YAML configuration file")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}

func run(ctx context.Context, cfg config.Config, mode timectrl.Mode, duration time.Duration) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log := logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	shutdownTracing, err := observability.InitTracing(ctx, cfg.TracingOptions(), log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	rt, err := runtime.New(cfg, runtime.Options{Log: log, Mode: mode})
	if err != nil {
		return err
	}

	var nofSlots uint64
	if duration > 0 {
		nofSlots = uint64(duration / timectrl.SlotDuration(cfg.Numerology))
		if nofSlots == 0 {
			nofSlots = 1
		}
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info(ctx, "ransched starting",
		logging.Int("cells", len(cfg.Cells)),
		logging.String("mode", mode.String()),
		logging.String("ingress_addr", cfg.Ingress.Addr),
	)
	if err := rt.Run(ctx, nofSlots); err != nil {
		log.Error(ctx, "ransched stopped with error", logging.Err(err))
		return err
	}
	log.Info(ctx, "ransched stopped")
	return nil
}
