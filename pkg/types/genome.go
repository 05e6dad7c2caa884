package types

import "time"

// Gene priorities by category. Higher priority genes survive optimization
// longer and are listed first in reports.
const (
	PriorityCore         = 100
	PrioritySecurity     = 95
	PriorityPerformance  = 90
	PriorityFeature      = 70
	PriorityKnowledge    = 50
	PriorityExperimental = 30
	PriorityConversation = 10
)

// GenePriority maps a gene category to its priority. Unknown categories
// get the knowledge priority.
func GenePriority(category string) int {
	switch category {
	case "core":
		return PriorityCore
	case "security":
		return PrioritySecurity
	case "performance":
		return PriorityPerformance
	case "feature":
		return PriorityFeature
	case "knowledge":
		return PriorityKnowledge
	case "experimental":
		return PriorityExperimental
	case "conversation":
		return PriorityConversation
	default:
		return PriorityKnowledge
	}
}

// Gene is one unit of learned behavior. SuccessRate starts at 0.5 and moves
// by +0.05 on success (capped at 1.0) and -0.1 on failure (floored at 0.0).
// Mutations counts how many times the gene's data has been rewritten.
type Gene struct {
	ID          string                 `json:"id" db:"id"`
	Category    string                 `json:"category" db:"category"`
	Key         string                 `json:"key" db:"key"`
	Data        map[string]interface{} `json:"data"`
	Priority    int                    `json:"priority" db:"priority"`
	UsageCount  int                    `json:"usage_count" db:"usage_count"`
	SuccessRate float64                `json:"success_rate" db:"success_rate"`
	Mutations   int                    `json:"mutations" db:"mutations"`
	CreatedAt   time.Time              `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at" db:"updated_at"`
}

// Mutation is one entry in a gene's change log.
type Mutation struct {
	GeneID    string    `json:"gene_id" db:"gene_id"`
	OldData   string    `json:"old_data,omitempty" db:"old_data"`
	NewData   string    `json:"new_data" db:"new_data"`
	Reason    string    `json:"reason,omitempty" db:"reason"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Instinct is a learned shortcut from a query trigger to a canned response.
// Condition, when set, is a javascript expression evaluated against the
// query context; the instinct only fires when it returns true.
type Instinct struct {
	ID           string    `json:"id" db:"id"`
	Trigger      string    `json:"trigger" db:"trigger"`
	Response     string    `json:"response" db:"response"`
	Condition    string    `json:"condition,omitempty" db:"condition"`
	TriggerCount int       `json:"trigger_count" db:"trigger_count"`
	SuccessRate  float64   `json:"success_rate" db:"success_rate"`
	Enabled      bool      `json:"enabled" db:"enabled"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

type GenomeStats struct {
	TotalGenes     int            `json:"total_genes"`
	ByCategory     map[string]int `json:"by_category"`
	TotalInstincts int            `json:"total_instincts"`
	TotalMutations int            `json:"total_mutations"`
	AvgSuccessRate float64        `json:"avg_success_rate"`
	MostUsed       []string       `json:"most_used,omitempty"`
}

// SnapshotInfo describes one DNA snapshot on disk.
type SnapshotInfo struct {
	File      string    `json:"file"`
	Checksum  string    `json:"checksum"`
	Genes     int       `json:"genes"`
	Instincts int       `json:"instincts"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}
