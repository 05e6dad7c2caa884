// Package worker runs the pool that drains the command bus: each
// worker pops jobs, executes the named tool through the registry, and
// persists scans, findings, and genome feedback.
package worker

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/CodeMonkeyCybersecurity/sharingan/internal/config"
	"github.com/CodeMonkeyCybersecurity/sharingan/internal/core"
	"github.com/CodeMonkeyCybersecurity/sharingan/internal/logger"
	"github.com/CodeMonkeyCybersecurity/sharingan/pkg/types"
)

type workerPool struct {
	cfg       config.WorkerConfig
	bus       core.CommandBus
	registry  core.ToolRegistry
	store     core.ResultStore
	genome    core.GenomeStore
	limiter   core.RateLimiter
	telemetry core.Telemetry
	events    core.EventSink
	logger    *logger.Logger

	mu      sync.RWMutex
	workers []core.Worker
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewWorkerPool(
	cfg config.WorkerConfig,
	bus core.CommandBus,
	registry core.ToolRegistry,
	store core.ResultStore,
	genome core.GenomeStore,
	limiter core.RateLimiter,
	telemetry core.Telemetry,
	events core.EventSink,
	log *logger.Logger,
) core.WorkerPool {
	return &workerPool{
		cfg:       cfg,
		bus:       bus,
		registry:  registry,
		store:     store,
		genome:    genome,
		limiter:   limiter,
		telemetry: telemetry,
		events:    events,
		logger:    log,
	}
}

func (p *workerPool) Start(ctx context.Context, workerCount int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ctx != nil {
		return fmt.Errorf("worker pool already started")
	}

	p.ctx, p.cancel = context.WithCancel(ctx)
	p.logger.Infow("Starting worker pool", "workers", workerCount)

	for i := 0; i < workerCount; i++ {
		worker := p.newWorker()
		if err := worker.Start(p.ctx); err != nil {
			p.stopAll()
			return fmt.Errorf("failed to start worker %d: %w", i, err)
		}
		p.workers = append(p.workers, worker)
	}

	p.logger.Infow("Worker pool started", "workers", len(p.workers))
	return nil
}

func (p *workerPool) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel == nil {
		return fmt.Errorf("worker pool not started")
	}

	p.logger.Info("Stopping worker pool")
	p.cancel()
	return p.stopAll()
}

func (p *workerPool) Scale(workerCount int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ctx == nil {
		return fmt.Errorf("worker pool not started")
	}

	current := len(p.workers)
	switch {
	case workerCount == current:
		return nil
	case workerCount > current:
		p.logger.Infow("Scaling up worker pool", "from", current, "to", workerCount)
		for i := current; i < workerCount; i++ {
			worker := p.newWorker()
			if err := worker.Start(p.ctx); err != nil {
				return fmt.Errorf("failed to start worker %d: %w", i, err)
			}
			p.workers = append(p.workers, worker)
		}
	default:
		p.logger.Infow("Scaling down worker pool", "from", current, "to", workerCount)
		toStop := p.workers[workerCount:]
		p.workers = p.workers[:workerCount]

		g := new(errgroup.Group)
		for _, worker := range toStop {
			w := worker
			g.Go(func() error { return w.Stop() })
		}
		if err := g.Wait(); err != nil {
			return fmt.Errorf("failed to stop workers: %w", err)
		}
	}

	p.logger.Infow("Worker pool scaled", "workers", len(p.workers))
	return nil
}

func (p *workerPool) Status() []*types.WorkerStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()

	statuses := make([]*types.WorkerStatus, 0, len(p.workers))
	for _, worker := range p.workers {
		statuses = append(statuses, worker.Status())
	}
	return statuses
}

func (p *workerPool) newWorker() core.Worker {
	return NewWorker(p.cfg, p.bus, p.registry, p.store, p.genome, p.limiter, p.telemetry, p.events, p.logger)
}

func (p *workerPool) stopAll() error {
	g := new(errgroup.Group)
	for _, worker := range p.workers {
		w := worker
		g.Go(func() error { return w.Stop() })
	}

	err := g.Wait()
	p.workers = nil
	p.ctx = nil
	p.cancel = nil
	return err
}
