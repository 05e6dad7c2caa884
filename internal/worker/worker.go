package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/CodeMonkeyCybersecurity/sharingan/internal/config"
	"github.com/CodeMonkeyCybersecurity/sharingan/internal/core"
	"github.com/CodeMonkeyCybersecurity/sharingan/internal/logger"
	"github.com/CodeMonkeyCybersecurity/sharingan/pkg/types"
)

const (
	metricsInterval = 5 * time.Second
	stopTimeout     = 30 * time.Second
)

type worker struct {
	id       string
	hostname string
	cfg      config.WorkerConfig

	bus       core.CommandBus
	registry  core.ToolRegistry
	store     core.ResultStore
	genome    core.GenomeStore
	limiter   core.RateLimiter
	telemetry core.Telemetry
	events    core.EventSink
	logger    *logger.Logger

	status   types.WorkerStatus
	statusMu sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewWorker builds a worker. events may be nil when no process-local
// stream wants job notifications.
func NewWorker(
	cfg config.WorkerConfig,
	bus core.CommandBus,
	registry core.ToolRegistry,
	store core.ResultStore,
	genome core.GenomeStore,
	limiter core.RateLimiter,
	telemetry core.Telemetry,
	events core.EventSink,
	log *logger.Logger,
) core.Worker {
	id := uuid.New().String()

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	return &worker{
		id:        id,
		hostname:  hostname,
		cfg:       cfg,
		bus:       bus,
		registry:  registry,
		store:     store,
		genome:    genome,
		limiter:   limiter,
		telemetry: telemetry,
		events:    events,
		logger:    log.WithComponent("worker").WithFields("worker_id", id, "hostname", hostname),
		done:      make(chan struct{}),
		status:    types.WorkerStatus{Status: "idle"},
	}
}

func (w *worker) ID() string {
	return w.id
}

func (w *worker) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.updateStatus("active", "")

	w.logger.Infow("Worker started", "worker_id", w.id)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				w.logger.LogPanic(w.ctx, r, "worker.run", "worker_id", w.id)
			}
		}()
		w.run()
	}()

	return nil
}

func (w *worker) Stop() error {
	if w.cancel != nil {
		w.cancel()
	}

	select {
	case <-w.done:
		w.logger.Infow("Worker stopped gracefully",
			"worker_id", w.id,
			"jobs_completed", w.Status().JobsComplete,
		)
	case <-time.After(stopTimeout):
		w.logger.Warnw("Worker stop timed out",
			"worker_id", w.id,
			"timeout_ms", stopTimeout.Milliseconds(),
		)
	}

	w.updateStatus("stopped", "")
	return nil
}

func (w *worker) Status() *types.WorkerStatus {
	w.statusMu.RLock()
	defer w.statusMu.RUnlock()

	status := w.status
	status.ID = w.id
	status.Hostname = w.hostname
	status.LastPing = time.Now()
	return &status
}

func (w *worker) run() {
	defer close(w.done)

	poll := w.cfg.QueuePollInterval
	if poll <= 0 {
		poll = time.Second
	}
	retryDelay := w.cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = 5 * time.Second
	}

	ticker := time.NewTicker(metricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			w.logger.Infow("Worker shutting down", "worker_id", w.id)
			return
		case <-ticker.C:
			w.telemetry.RecordWorkerMetrics(w.Status())
		default:
			err := w.processJob()
			switch {
			case err == nil:
			case errors.Is(err, core.ErrNoJob):
				w.sleep(poll)
			default:
				w.logger.LogError(w.ctx, err, "worker.processJob", "worker_id", w.id)
				w.sleep(retryDelay)
			}
		}
	}
}

// sleep waits without blocking shutdown.
func (w *worker) sleep(d time.Duration) {
	select {
	case <-w.ctx.Done():
	case <-time.After(d):
	}
}

func (w *worker) processJob() error {
	job, err := w.bus.Pop(w.ctx, w.id)
	if err != nil {
		return err
	}

	w.updateStatus("processing", job.ID)
	defer w.updateStatus("idle", "")

	w.logger.Infow("Processing job",
		"job_id", job.ID,
		"tool", job.Tool,
		"operation", job.Operation,
		"target", job.Target,
		"retries", job.Retries,
	)
	w.publish("started", job, "")

	now := time.Now()
	record := &types.ScanRecord{
		ID:        job.ID,
		Tool:      job.Tool,
		Operation: job.Operation,
		Target:    job.Target,
		Status:    types.ScanStatusRunning,
		WorkerID:  w.id,
		CreatedAt: now,
		StartedAt: &now,
	}
	if err := w.store.SaveScan(w.ctx, record); err != nil {
		w.logger.LogError(w.ctx, err, "worker.saveScan", "job_id", job.ID)
	}

	result, runErr := w.execute(job)

	if runErr != nil {
		w.finishScan(record, "", runErr.Error())
		w.handleFailure(job, runErr)
		return nil
	}

	output := ""
	if result != nil {
		output = result.Output
	}
	w.finishScan(record, output, "")

	if result != nil {
		if findings := extractFindings(job, result); len(findings) > 0 {
			if err := w.store.SaveFindings(w.ctx, findings); err != nil {
				w.logger.LogError(w.ctx, err, "worker.saveFindings", "job_id", job.ID)
			}
			for _, f := range findings {
				w.telemetry.RecordFinding(f.Severity)
			}
			w.logger.Infow("Findings recorded",
				"job_id", job.ID,
				"tool", job.Tool,
				"count", len(findings),
			)
		}
	}

	if err := w.bus.Complete(w.ctx, job.ID, result); err != nil {
		w.logger.LogError(w.ctx, err, "worker.complete", "job_id", job.ID)
	}
	w.publish("completed", job, "")

	w.statusMu.Lock()
	w.status.JobsComplete++
	w.statusMu.Unlock()

	return nil
}

func (w *worker) publish(eventType string, job *types.Job, message string) {
	if w.events == nil {
		return
	}
	w.events.Publish(types.Event{
		Type:      eventType,
		JobID:     job.ID,
		Tool:      job.Tool,
		Target:    job.Target,
		Message:   message,
		Timestamp: time.Now(),
	})
}

// execute runs the job's tool with the scan timeout and feeds the
// outcome back into telemetry and the genome.
func (w *worker) execute(job *types.Job) (*types.ToolResult, error) {
	tool, err := w.registry.Get(job.Tool)
	if err != nil {
		return nil, fmt.Errorf("resolve tool %q: %w", job.Tool, err)
	}

	timeout := w.cfg.ScanTimeout
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	runCtx, cancel := context.WithTimeout(w.ctx, timeout)
	defer cancel()

	if job.Target != "" {
		if err := w.limiter.Wait(runCtx, job.Target); err != nil {
			return nil, fmt.Errorf("rate limit wait for %s: %w", job.Target, err)
		}
	}

	start := time.Now()
	result, runErr := tool.Run(runCtx, job.Operation, job.Target, job.Options)
	duration := time.Since(start)

	w.telemetry.RecordInvocation(job.Tool, job.Operation, duration.Seconds(), runErr == nil)
	w.recordToolOutcome(job.Tool, runErr == nil)

	if runErr != nil {
		return nil, runErr
	}
	return result, nil
}

// recordToolOutcome feeds success rates into the tool's gene, creating
// it on first use.
func (w *worker) recordToolOutcome(tool string, success bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	key := "tool_" + tool
	record := w.genome.RecordSuccess
	if !success {
		record = w.genome.RecordFailure
	}

	err := record(ctx, "knowledge", key)
	if errors.Is(err, core.ErrGeneNotFound) {
		_, err = w.genome.Mutate(ctx, core.MutateParams{
			Category: "knowledge",
			Key:      key,
			Data:     map[string]interface{}{"tool": tool},
			Reason:   "first invocation",
		})
		if err == nil {
			err = record(ctx, "knowledge", key)
		}
	}
	if err != nil {
		w.logger.Debugw("Genome outcome not recorded", "tool", tool, "error", err.Error())
	}
}

func (w *worker) handleFailure(job *types.Job, runErr error) {
	// Retrying cannot fix a tool that does not exist or an operation it
	// does not support.
	permanent := errors.Is(runErr, core.ErrToolNotFound) ||
		errors.Is(runErr, core.ErrToolUnavailable) ||
		errors.Is(runErr, core.ErrUnknownOperation)

	if !permanent && job.Retries < w.cfg.MaxRetries {
		if err := w.bus.Retry(w.ctx, job.ID); err != nil {
			w.logger.LogError(w.ctx, err, "worker.retry", "job_id", job.ID)
			return
		}
		w.logger.Infow("Job scheduled for retry",
			"job_id", job.ID,
			"attempt", job.Retries+1,
			"max_retries", w.cfg.MaxRetries,
			"error", runErr.Error(),
		)
		w.publish("queued", job, fmt.Sprintf("retry %d/%d", job.Retries+1, w.cfg.MaxRetries))
		return
	}

	if err := w.bus.Fail(w.ctx, job.ID, runErr.Error()); err != nil {
		w.logger.LogError(w.ctx, err, "worker.fail", "job_id", job.ID)
		return
	}
	w.logger.Warnw("Job failed",
		"job_id", job.ID,
		"tool", job.Tool,
		"retries", job.Retries,
		"error", runErr.Error(),
	)
	w.publish("failed", job, runErr.Error())
}

func (w *worker) finishScan(record *types.ScanRecord, output, errMsg string) {
	completed := time.Now()
	record.CompletedAt = &completed
	record.Output = output
	record.ErrorMessage = errMsg
	if errMsg == "" {
		record.Status = types.ScanStatusCompleted
	} else {
		record.Status = types.ScanStatusFailed
	}

	if err := w.store.UpdateScan(w.ctx, record); err != nil {
		w.logger.LogError(w.ctx, err, "worker.updateScan", "scan_id", record.ID)
	}
}

func (w *worker) updateStatus(status, currentJob string) {
	w.statusMu.Lock()
	defer w.statusMu.Unlock()
	w.status.Status = status
	w.status.CurrentJob = currentJob
}
