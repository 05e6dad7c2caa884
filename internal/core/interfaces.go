package core

import (
	"context"
	"time"

	"github.com/CodeMonkeyCybersecurity/sharingan/pkg/types"
)

// SecurityTool is the single contract every wrapped binary and every
// native implementation satisfies. Wrappers are built from declarative
// ToolSpec definitions rather than hand-written per binary.
type SecurityTool interface {
	Name() string
	Category() types.ToolCategory
	IsAvailable() bool
	Version(ctx context.Context) string
	Run(ctx context.Context, operation string, target string, options map[string]string) (*types.ToolResult, error)
	HandleQuery(ctx context.Context, query string) (*types.QueryResult, error)
	Status() *types.ToolStatus
}

type ToolRegistry interface {
	Register(tool SecurityTool) error
	Get(name string) (SecurityTool, error)
	List() []SecurityTool
	ByCategory(category types.ToolCategory) []SecurityTool
	Names() []string
}

// CommandBus carries tool invocations from the API and CLI to the
// worker pool. Jobs are acknowledged on Pop and either completed,
// failed, or retried with backoff.
type CommandBus interface {
	Push(ctx context.Context, job *types.Job) error
	Pop(ctx context.Context, workerID string) (*types.Job, error)
	Complete(ctx context.Context, jobID string, result *types.ToolResult) error
	Fail(ctx context.Context, jobID string, reason string) error
	Retry(ctx context.Context, jobID string) error
	GetStatus(ctx context.Context, jobID string) (*types.Job, error)
	GetResult(ctx context.Context, jobID string) (*types.ToolResult, error)
	GetPending(ctx context.Context) ([]*types.Job, error)
	Stats(ctx context.Context) (*types.QueueStats, error)
	Close() error
}

// MutateParams describes one gene write. Priority overrides the
// category rule when positive.
type MutateParams struct {
	Category string
	Key      string
	Data     map[string]interface{}
	Reason   string
	Priority int
}

// GenomeStore persists what the system has learned about its tools:
// gene records with success ratios, a mutation log, and instinct
// shortcuts matched against incoming queries.
type GenomeStore interface {
	Mutate(ctx context.Context, p MutateParams) (*types.Gene, error)
	GetGene(ctx context.Context, category, key string) (*types.Gene, error)
	ListGenes(ctx context.Context, category string) ([]*types.Gene, error)
	FindGenes(ctx context.Context, category string, minPriority int, tags []string) ([]*types.Gene, error)
	BestGenes(ctx context.Context, limit int) ([]*types.Gene, error)
	RecordSuccess(ctx context.Context, category, key string) error
	RecordFailure(ctx context.Context, category, key string) error
	AddInstinct(ctx context.Context, trigger, response, condition string) (*types.Instinct, error)
	MatchInstinct(ctx context.Context, query string) (*types.Instinct, error)
	Optimize(ctx context.Context) (int, error)
	Evolve(ctx context.Context) ([]string, error)
	Stats(ctx context.Context) (*types.GenomeStats, error)
	Close() error
}

type ResultStore interface {
	SaveScan(ctx context.Context, scan *types.ScanRecord) error
	UpdateScan(ctx context.Context, scan *types.ScanRecord) error
	GetScan(ctx context.Context, scanID string) (*types.ScanRecord, error)
	ListScans(ctx context.Context, filter ScanFilter) ([]*types.ScanRecord, error)

	SaveFindings(ctx context.Context, findings []types.Finding) error
	GetFindings(ctx context.Context, scanID string) ([]types.Finding, error)
	GetFindingStats(ctx context.Context) (*FindingStats, error)
	SearchFindings(ctx context.Context, searchTerm string, limit int) ([]types.Finding, error)

	Close() error
}

type ScanFilter struct {
	Target   string
	Status   types.ScanStatus
	Tool     string
	FromDate *time.Time
	ToDate   *time.Time
	Limit    int
	Offset   int
}

type FindingStats struct {
	Total      int
	BySeverity map[types.Severity]int
	ByTool     map[string]int
	ByTarget   map[string]int
}

type Worker interface {
	ID() string
	Start(ctx context.Context) error
	Stop() error
	Status() *types.WorkerStatus
}

type WorkerPool interface {
	Start(ctx context.Context, workers int) error
	Stop() error
	Scale(workers int) error
	Status() []*types.WorkerStatus
}

type RateLimiter interface {
	Wait(ctx context.Context, target string) error
	SetLimit(target string, requestsPerSecond int)
}

// EventSink receives job lifecycle notifications. Publish must not
// block; sinks drop events they cannot deliver.
type EventSink interface {
	Publish(event types.Event)
}

type Telemetry interface {
	RecordInvocation(tool string, operation string, duration float64, success bool)
	RecordQuery(tool string, matched bool)
	RecordFinding(severity types.Severity)
	RecordWorkerMetrics(status *types.WorkerStatus)
	Close() error
}
