package types

import (
	"time"
)

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityInfo     Severity = "info"
)

// RiskLevel classifies how intrusive a dispatched command is. High and
// Critical require explicit confirmation before execution.
type RiskLevel int

const (
	RiskSafe     RiskLevel = 1
	RiskLow      RiskLevel = 2
	RiskMedium   RiskLevel = 3
	RiskHigh     RiskLevel = 4
	RiskCritical RiskLevel = 5
)

func (r RiskLevel) String() string {
	switch r {
	case RiskSafe:
		return "SAFE"
	case RiskLow:
		return "LOW"
	case RiskMedium:
		return "MEDIUM"
	case RiskHigh:
		return "HIGH"
	case RiskCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// RequiresConfirmation reports whether a command at this risk level must be
// confirmed before it runs.
func (r RiskLevel) RequiresConfirmation() bool {
	return r >= RiskHigh
}

type ToolCategory string

const (
	CategoryNetwork      ToolCategory = "network"
	CategoryWeb          ToolCategory = "web"
	CategoryPassword     ToolCategory = "password"
	CategoryRecon        ToolCategory = "recon"
	CategoryExploitation ToolCategory = "exploitation"
	CategoryForensic     ToolCategory = "forensic"
	CategoryWireless     ToolCategory = "wireless"
	CategorySystem       ToolCategory = "system"
)

type ScanStatus string

const (
	ScanStatusPending   ScanStatus = "pending"
	ScanStatusRunning   ScanStatus = "running"
	ScanStatusCompleted ScanStatus = "completed"
	ScanStatusFailed    ScanStatus = "failed"
	ScanStatusCancelled ScanStatus = "cancelled"
)

// ToolResult is the outcome of one tool operation. Output is truncated to the
// operation's cap; counters are heuristic signals parsed from raw output.
type ToolResult struct {
	Tool         string                 `json:"tool"`
	Operation    string                 `json:"operation"`
	Target       string                 `json:"target,omitempty"`
	Command      string                 `json:"command"`
	Success      bool                   `json:"success"`
	Output       string                 `json:"output,omitempty"`
	Error        string                 `json:"error,omitempty"`
	HostsFound   int                    `json:"hosts_found,omitempty"`
	PortsFound   int                    `json:"ports_found,omitempty"`
	EntriesFound int                    `json:"entries_found,omitempty"`
	Truncated    bool                   `json:"truncated,omitempty"`
	StartedAt    time.Time              `json:"started_at"`
	Duration     time.Duration          `json:"duration"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// QueryResult is the answer to a natural-language query routed to a tool.
type QueryResult struct {
	Tool    string                 `json:"tool"`
	Action  string                 `json:"action"`
	Success bool                   `json:"success"`
	Target  string                 `json:"target,omitempty"`
	Output  string                 `json:"output,omitempty"`
	Error   string                 `json:"error,omitempty"`
	Example string                 `json:"example,omitempty"`
	Fields  map[string]interface{} `json:"fields,omitempty"`
}

// ToolStatus is the static capability declaration a tool exposes for
// discovery: example phrasings, warnings and supported modes.
type ToolStatus struct {
	Name             string       `json:"name"`
	Available        bool         `json:"available"`
	Description      string       `json:"description"`
	Category         ToolCategory `json:"category"`
	SupportedQueries []string     `json:"supported_queries"`
	Modes            []string     `json:"modes,omitempty"`
	Warning          string       `json:"warning,omitempty"`
	RequiresRoot     bool         `json:"requires_root,omitempty"`
	Package          string       `json:"package,omitempty"`
	UsageExamples    []string     `json:"usage_examples,omitempty"`
}

type Finding struct {
	ID          string    `json:"id" db:"id"`
	ScanID      string    `json:"scan_id" db:"scan_id"`
	Tool        string    `json:"tool" db:"tool"`
	Severity    Severity  `json:"severity" db:"severity"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	Evidence    string    `json:"evidence,omitempty" db:"evidence"`
	DedupHash   string    `json:"dedup_hash" db:"dedup_hash"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// ScanRecord is the persisted row for one tool execution.
type ScanRecord struct {
	ID           string     `json:"id" db:"id"`
	Tool         string     `json:"tool" db:"tool"`
	Operation    string     `json:"operation" db:"operation"`
	Target       string     `json:"target" db:"target"`
	Status       ScanStatus `json:"status" db:"status"`
	Output       string     `json:"output,omitempty" db:"output"`
	ErrorMessage string     `json:"error_message,omitempty" db:"error_message"`
	WorkerID     string     `json:"worker_id,omitempty" db:"worker_id"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	StartedAt    *time.Time `json:"started_at,omitempty" db:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Job is a unit of work on the command bus. Payload carries the scan request
// as {tool, operation, target, options}.
type Job struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	Tool      string            `json:"tool"`
	Operation string            `json:"operation"`
	Target    string            `json:"target"`
	Options   map[string]string `json:"options,omitempty"`
	Status    JobStatus         `json:"status"`
	Priority  int               `json:"priority"`
	Retries   int               `json:"retries"`
	Error     string            `json:"error,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

type WorkerStatus struct {
	ID           string    `json:"id"`
	Hostname     string    `json:"hostname"`
	Status       string    `json:"status"`
	CurrentJob   string    `json:"current_job,omitempty"`
	JobsComplete int       `json:"jobs_complete"`
	LastPing     time.Time `json:"last_ping"`
}

// QueueStats is a point-in-time view of the command bus.
type QueueStats struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Failed     int64 `json:"failed"`
}

// Event is a job lifecycle notification published to the event stream.
type Event struct {
	Type      string    `json:"type"`
	JobID     string    `json:"job_id"`
	Tool      string    `json:"tool,omitempty"`
	Target    string    `json:"target,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
