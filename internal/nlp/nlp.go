// Package nlp routes natural language queries, French or English, to
// security tool invocations. Matching is deliberately regex based and
// deterministic: rules compile once and evaluate in a fixed order, so
// the same query always routes the same way.
package nlp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/CodeMonkeyCybersecurity/sharingan/internal/core"
	"github.com/CodeMonkeyCybersecurity/sharingan/internal/logger"
	"github.com/CodeMonkeyCybersecurity/sharingan/internal/tools"
	"github.com/CodeMonkeyCybersecurity/sharingan/pkg/types"
)

// CommandCategory buckets queries for reporting and risk display.
type CommandCategory string

const (
	CategoryNetworkScan    CommandCategory = "network_scan"
	CategoryReconnaissance CommandCategory = "reconnaissance"
	CategoryWebAttack      CommandCategory = "web_attack"
	CategorySystemInfo     CommandCategory = "system_info"
	CategorySecurityAudit  CommandCategory = "security_audit"
	CategoryGeneral        CommandCategory = "general"
	CategoryUnknown        CommandCategory = "unknown"
)

// ParsedCommand is the full analysis of one query: what would run,
// against what, and how sure the router is.
type ParsedCommand struct {
	RawQuery             string            `json:"raw_query"`
	Category             CommandCategory   `json:"category"`
	Risk                 types.RiskLevel   `json:"risk"`
	Tool                 string            `json:"tool,omitempty"`
	Operation            string            `json:"operation,omitempty"`
	Target               string            `json:"target,omitempty"`
	Options              map[string]string `json:"options,omitempty"`
	FinalCommand         string            `json:"final_command,omitempty"`
	Confidence           float64           `json:"confidence"`
	RequiresConfirmation bool              `json:"requires_confirmation"`
	Warnings             []string          `json:"warnings,omitempty"`
	Suggestions          []string          `json:"suggestions,omitempty"`
}

// ExecutionResult pairs the analysis with what actually happened.
type ExecutionResult struct {
	Parsed *ParsedCommand    `json:"parsed"`
	Result *types.ToolResult `json:"result,omitempty"`
}

// Router matches queries against the rule table and dispatches them to
// registered tools.
type Router struct {
	registry  core.ToolRegistry
	logger    *logger.Logger
	telemetry core.Telemetry
	rules     []rule
}

func NewRouter(registry core.ToolRegistry, tel core.Telemetry, log *logger.Logger) *Router {
	return &Router{
		registry:  registry,
		logger:    log.WithComponent("nlp-router"),
		telemetry: tel,
		rules:     buildRules(),
	}
}

// Parse analyzes a query without executing anything. The first rule
// whose pattern matches wins; rule order is part of the contract.
func (r *Router) Parse(query string) *ParsedCommand {
	q := strings.ToLower(strings.TrimSpace(query))

	cmd := &ParsedCommand{
		RawQuery:   query,
		Category:   CategoryUnknown,
		Risk:       types.RiskSafe,
		Confidence: fallbackConfidence,
	}

	for _, rl := range r.rules {
		if !rl.matches(q) {
			continue
		}

		cmd.Category = rl.category
		cmd.Risk = rl.risk
		cmd.Tool = rl.tool
		cmd.Operation = rl.operation
		cmd.Confidence = rl.confidence
		cmd.RequiresConfirmation = rl.risk.RequiresConfirmation()

		r.extractInto(cmd, rl, q)
		r.finalizeCommand(cmd)
		return cmd
	}

	// No rule fired. A query that still names a host is probably asking
	// about a web endpoint, so guess curl headers at low confidence.
	if target := tools.ExtractTarget(q); target != "" {
		cmd.Category = CategoryGeneral
		cmd.Tool = "curl"
		cmd.Operation = "headers"
		cmd.Target = tools.ExtractURL(q)
		cmd.Confidence = urlGuessConfidence
		cmd.Warnings = append(cmd.Warnings, "query matched no known pattern; guessing a headers check")
		r.finalizeCommand(cmd)
		return cmd
	}

	cmd.Warnings = append(cmd.Warnings, "query not recognized")
	if suggestions := r.suggest(q); len(suggestions) > 0 {
		cmd.Suggestions = suggestions
	}
	return cmd
}

func (r *Router) extractInto(cmd *ParsedCommand, rl rule, q string) {
	switch rl.targetKind {
	case tools.TargetURL:
		cmd.Target = tools.ExtractURL(q)
	case tools.TargetHash:
		cmd.Target = tools.ExtractHash(q)
	case tools.TargetTerm:
		cmd.Target = tools.ExtractTerm(q)
	default:
		cmd.Target = tools.ExtractTarget(q)
	}

	if cmd.Target == "" && rl.needsTarget {
		cmd.Warnings = append(cmd.Warnings, fmt.Sprintf("%s needs a target and none was found in the query", rl.tool))
	}

	if ports := tools.ExtractPorts(q); ports != "" {
		if cmd.Options == nil {
			cmd.Options = map[string]string{}
		}
		cmd.Options["ports"] = ports
	}
}

func (r *Router) finalizeCommand(cmd *ParsedCommand) {
	parts := []string{cmd.Tool, cmd.Operation}
	if cmd.Target != "" {
		parts = append(parts, cmd.Target)
	}
	if ports := cmd.Options["ports"]; ports != "" {
		parts = append(parts, "ports="+ports)
	}
	cmd.FinalCommand = strings.Join(parts, " ")
}

// Execute parses and runs a query. High and critical risk commands are
// refused without autoConfirm; the analysis is still returned so the
// caller can show what would have run.
func (r *Router) Execute(ctx context.Context, query string, autoConfirm bool) (*ExecutionResult, error) {
	start := time.Now()
	cmd := r.Parse(query)

	log := r.logger.WithContext(ctx)
	log.Infow("Parsed query",
		"category", string(cmd.Category),
		"tool", cmd.Tool,
		"operation", cmd.Operation,
		"target", cmd.Target,
		"risk", cmd.Risk.String(),
		"confidence", cmd.Confidence,
	)

	if cmd.Tool == "" {
		return &ExecutionResult{Parsed: cmd}, nil
	}

	if cmd.RequiresConfirmation && !autoConfirm {
		log.Warnw("Refusing high risk command without confirmation",
			"tool", cmd.Tool,
			"operation", cmd.Operation,
			"risk", cmd.Risk.String(),
		)
		return &ExecutionResult{Parsed: cmd}, core.ErrConfirmationRequired
	}

	tool, err := r.registry.Get(cmd.Tool)
	if err != nil {
		return &ExecutionResult{Parsed: cmd}, err
	}

	result, err := tool.Run(ctx, cmd.Operation, cmd.Target, cmd.Options)
	if r.telemetry != nil {
		r.telemetry.RecordQuery(cmd.Tool, err == nil)
	}
	if err != nil {
		return &ExecutionResult{Parsed: cmd}, err
	}

	log.Infow("Query executed",
		"tool", cmd.Tool,
		"operation", cmd.Operation,
		"success", result.Success,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return &ExecutionResult{Parsed: cmd, Result: result}, nil
}

// Explain renders the analysis as text, for dry runs and the shell's
// explain mode.
func (r *Router) Explain(query string) string {
	cmd := r.Parse(query)

	var b strings.Builder
	fmt.Fprintf(&b, "Query:      %s\n", cmd.RawQuery)
	fmt.Fprintf(&b, "Category:   %s\n", cmd.Category)
	fmt.Fprintf(&b, "Risk:       %s\n", cmd.Risk)
	fmt.Fprintf(&b, "Confidence: %.2f\n", cmd.Confidence)

	if cmd.Tool != "" {
		fmt.Fprintf(&b, "Would run:  %s\n", cmd.FinalCommand)
	} else {
		b.WriteString("Would run:  nothing\n")
	}
	if cmd.RequiresConfirmation {
		b.WriteString("Requires confirmation before running.\n")
	}
	for _, w := range cmd.Warnings {
		fmt.Fprintf(&b, "Warning:    %s\n", w)
	}
	for _, s := range cmd.Suggestions {
		fmt.Fprintf(&b, "Hint:       %s\n", s)
	}
	return b.String()
}
