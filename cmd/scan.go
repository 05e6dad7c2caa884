package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/CodeMonkeyCybersecurity/sharingan/internal/bus"
	"github.com/CodeMonkeyCybersecurity/sharingan/internal/storage"
	"github.com/CodeMonkeyCybersecurity/sharingan/internal/validation"
	"github.com/CodeMonkeyCybersecurity/sharingan/pkg/types"
)

var (
	scanOperation string
	scanOptions   []string
	scanQueue     bool
	scanPriority  int
)

var scanCmd = &cobra.Command{
	Use:   "scan <tool> <target>",
	Short: "Run a tool directly, bypassing the language router",
	Long: `Invoke a registered tool against a target. Without --op the tool's
default operation runs. With --queue the scan goes onto the command bus
for the worker pool instead of running in this process.

Examples:
  sharingan scan nmap 192.168.1.1 --op full
  sharingan scan dirb https://example.com --option wordlist=/tmp/words.txt
  sharingan scan nikto https://example.com --queue --priority 1`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		options, err := parseKeyValues(scanOptions)
		if err != nil {
			return err
		}

		target, err := validation.ValidateTarget(args[1])
		if err != nil {
			return err
		}
		for _, warning := range target.Warnings {
			fmt.Printf("%s %s\n", color.New(color.FgYellow).Sprint("⚠"), warning)
		}

		if scanQueue {
			return queueScan(cmd.Context(), args[0], target.Normalized, options)
		}
		return runScan(cmd.Context(), args[0], target.Normalized, options)
	},
}

func init() {
	scanCmd.Flags().StringVar(&scanOperation, "op", "", "operation to run (defaults to the tool's default)")
	scanCmd.Flags().StringArrayVar(&scanOptions, "option", nil, "operation option as key=value (repeatable)")
	scanCmd.Flags().BoolVar(&scanQueue, "queue", false, "enqueue on the command bus instead of running here")
	scanCmd.Flags().IntVar(&scanPriority, "priority", 0, "queue priority (lower runs first, 0 = FIFO)")
	rootCmd.AddCommand(scanCmd)
}

func runScan(ctx context.Context, toolName, target string, options map[string]string) error {
	limiter := buildLimiter(cfg)
	registry, err := buildRegistry(cfg, limiter)
	if err != nil {
		return err
	}

	tool, err := registry.Get(toolName)
	if err != nil {
		return err
	}
	if !tool.IsAvailable() {
		st := tool.Status()
		if st.Package != "" {
			return fmt.Errorf("%s is not installed (try: apt install %s)", toolName, st.Package)
		}
		return fmt.Errorf("%s is not installed", toolName)
	}

	// Scan history is best effort here; the scan itself matters more
	// than the record.
	store, serr := storage.NewStore(cfg.Database, log)
	if serr != nil {
		log.Warnw("Result store unavailable, scan will not be recorded", "error", serr)
		store = nil
	} else {
		defer store.Close()
	}

	scanCtx, cancel := context.WithTimeout(ctx, cfg.Worker.ScanTimeout)
	defer cancel()

	if err := limiter.Wait(scanCtx, target); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	now := time.Now()
	record := &types.ScanRecord{
		ID:        uuid.New().String(),
		Tool:      toolName,
		Operation: scanOperation,
		Target:    target,
		Status:    types.ScanStatusRunning,
		CreatedAt: now,
		StartedAt: &now,
	}
	if store != nil {
		if err := store.SaveScan(scanCtx, record); err != nil {
			log.Warnw("Failed to record scan", "error", err)
		}
	}

	res, runErr := tool.Run(scanCtx, scanOperation, target, options)

	if store != nil {
		done := time.Now()
		record.CompletedAt = &done
		record.Status = types.ScanStatusCompleted
		if runErr != nil {
			record.Status = types.ScanStatusFailed
			record.ErrorMessage = runErr.Error()
		} else if res != nil {
			record.Output = res.Output
			if !res.Success {
				record.Status = types.ScanStatusFailed
				record.ErrorMessage = res.Error
			}
		}
		// Fresh context: scanCtx may already be past its deadline.
		updateCtx, updateCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := store.UpdateScan(updateCtx, record); err != nil {
			log.Warnw("Failed to update scan record", "error", err)
		}
		updateCancel()
	}

	if runErr != nil {
		return runErr
	}
	printToolResult(res)
	return nil
}

func queueScan(ctx context.Context, toolName, target string, options map[string]string) error {
	commandBus, err := bus.NewRedisBus(cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to connect to the command bus: %w", err)
	}
	defer commandBus.Close()

	job := &types.Job{
		Type:      "scan",
		Tool:      toolName,
		Operation: scanOperation,
		Target:    target,
		Options:   options,
		Priority:  scanPriority,
	}
	if err := commandBus.Push(ctx, job); err != nil {
		return fmt.Errorf("failed to enqueue scan: %w", err)
	}

	fmt.Printf("Queued %s scan of %s\n", toolName, target)
	fmt.Printf("  Job ID: %s\n", job.ID)
	fmt.Printf("  Check:  sharingan serve is running workers, or GET /api/v1/scans/%s\n", job.ID)
	return nil
}

func parseKeyValues(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	options := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid option %q, want key=value", pair)
		}
		options[k] = v
	}
	return options, nil
}
