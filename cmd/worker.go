package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/CodeMonkeyCybersecurity/sharingan/internal/bus"
	"github.com/CodeMonkeyCybersecurity/sharingan/internal/genome"
	"github.com/CodeMonkeyCybersecurity/sharingan/internal/storage"
	"github.com/CodeMonkeyCybersecurity/sharingan/internal/telemetry"
	"github.com/CodeMonkeyCybersecurity/sharingan/internal/worker"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run standalone workers against the command bus",
	Long: `Drain scan jobs from the command bus without the HTTP API. Run this
on extra machines pointed at the same redis to scale out scanning.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWorker(cmd.Context())
	},
}

func init() {
	workerCmd.Flags().Int("count", 0, "number of workers (overrides config)")
	viper.BindPFlag("worker.count", workerCmd.Flags().Lookup("count"))
	rootCmd.AddCommand(workerCmd)
}

func runWorker(ctx context.Context) error {
	store, err := storage.NewStore(cfg.Database, log)
	if err != nil {
		return fmt.Errorf("failed to open result store: %w", err)
	}
	defer store.Close()

	commandBus, err := bus.NewRedisBus(cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to connect to the command bus: %w", err)
	}
	defer commandBus.Close()

	tel, err := telemetry.New(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer tel.Close()

	gen, err := genome.New(cfg.Genome, log)
	if err != nil {
		return fmt.Errorf("failed to open genome: %w", err)
	}
	defer gen.Close()

	limiter := buildLimiter(cfg)
	registry, err := buildRegistry(cfg, limiter)
	if err != nil {
		return err
	}

	// No hub here; events only flow when the API runs.
	pool := worker.NewWorkerPool(cfg.Worker, commandBus, registry, store, gen, limiter, tel, nil, log)
	if err := pool.Start(ctx, cfg.Worker.Count); err != nil {
		return fmt.Errorf("failed to start worker pool: %w", err)
	}

	fmt.Printf("Running %d workers against %s (ctrl-c to stop)\n", cfg.Worker.Count, cfg.Redis.Addr)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	<-shutdown

	log.Infow("Stopping workers")
	return pool.Stop()
}
