package tools

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/CodeMonkeyCybersecurity/sharingan/internal/core"
	"github.com/CodeMonkeyCybersecurity/sharingan/internal/logger"
	"github.com/CodeMonkeyCybersecurity/sharingan/pkg/types"
)

// Tool turns a Spec into a working core.SecurityTool. Every wrapped
// binary shares this one implementation; behavior differences live
// entirely in the Spec data.
type Tool struct {
	spec   Spec
	runner *Runner
	logger *logger.Logger

	versionOnce sync.Once
	version     string
}

func NewTool(spec Spec, runner *Runner, log *logger.Logger) *Tool {
	return &Tool{
		spec:   spec,
		runner: runner,
		logger: log.WithTool(spec.Name),
	}
}

func (t *Tool) Name() string { return t.spec.Name }

func (t *Tool) Category() types.ToolCategory { return t.spec.Category }

func (t *Tool) IsAvailable() bool {
	_, err := t.runner.Probe(t.spec.binary())
	return err == nil
}

func (t *Tool) Version(ctx context.Context) string {
	t.versionOnce.Do(func() {
		t.version = "unknown"

		path, err := t.runner.Probe(t.spec.binary())
		if err != nil {
			return
		}

		raw := t.runner.ProbeVersion(ctx, path, t.spec.VersionArgs)
		if t.spec.ParseVersion != nil {
			if parsed := t.spec.ParseVersion(raw); parsed != "" {
				raw = parsed
			}
		}
		t.version = raw
	})
	return t.version
}

// Run executes one operation. Precondition failures (unknown operation,
// unavailable binary, missing target) return an error; execution
// failures are reported inside the result so callers always get the
// captured output.
func (t *Tool) Run(ctx context.Context, operation string, target string, options map[string]string) (*types.ToolResult, error) {
	start := time.Now()

	if operation == "" {
		operation = t.spec.DefaultOperation
	}

	op, ok := t.spec.operation(operation)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no operation %q (have %s)",
			core.ErrUnknownOperation, t.spec.Name, operation,
			strings.Join(t.spec.operationNames(), ", "))
	}

	path, err := t.runner.Probe(t.spec.binary())
	if err != nil {
		return nil, fmt.Errorf("%w: %s (install with: sudo apt install %s)",
			core.ErrToolUnavailable, t.spec.Name, t.installPackage())
	}

	if op.NeedsTarget && target == "" {
		return nil, fmt.Errorf("operation %s.%s requires a target", t.spec.Name, operation)
	}

	ctx, span := t.logger.StartOperation(ctx, "tool.Run",
		"tool", t.spec.Name,
		"operation", operation,
		"target", target,
	)

	args := op.Args(target, options)

	result := &types.ToolResult{
		Tool:      t.spec.Name,
		Operation: operation,
		Target:    target,
		StartedAt: start,
	}

	invoke, invokeErr := t.runner.Invoke(ctx, path, args, op.Timeout, op.MaxOutput)
	result.Command = invoke.Command
	result.Output = invoke.Output
	result.Truncated = invoke.Truncated
	result.Duration = invoke.Duration

	switch {
	case invoke.TimedOut:
		result.Success = false
		result.Error = fmt.Sprintf("timed out after %s", op.Timeout)
	case invokeErr != nil && invoke.ExitCode > 0 && op.AllowNonzeroExit:
		result.Success = true
	case invokeErr != nil:
		result.Success = false
		result.Error = invokeErr.Error()
	default:
		result.Success = true
	}

	if op.Parse != nil && result.Output != "" {
		op.Parse(result.Output, result)
	}

	var finishErr error
	if !result.Success {
		finishErr = fmt.Errorf("%s.%s failed: %s", t.spec.Name, operation, result.Error)
	}
	t.logger.FinishOperation(ctx, span, "tool.Run", start, finishErr,
		"tool", t.spec.Name,
		"operation", operation,
		"success", result.Success,
		"truncated", result.Truncated,
	)

	return result, nil
}

// HandleQuery routes a natural language query to an operation. Routes
// are tried in spec order and the first keyword hit wins.
func (t *Tool) HandleQuery(ctx context.Context, query string) (*types.QueryResult, error) {
	q := strings.ToLower(strings.TrimSpace(query))

	for _, route := range t.spec.Routes {
		if !ContainsAny(q, route.Keywords) {
			continue
		}
		return t.dispatchRoute(ctx, route, q)
	}

	// No route matched; answer with the tool's own summary.
	return t.infoResult(ctx), nil
}

func (t *Tool) dispatchRoute(ctx context.Context, route Route, query string) (*types.QueryResult, error) {
	switch route.Operation {
	case "help":
		return &types.QueryResult{
			Tool:    t.spec.Name,
			Action:  "help",
			Success: true,
			Output:  t.helpText(),
		}, nil
	case "version":
		return &types.QueryResult{
			Tool:    t.spec.Name,
			Action:  "version",
			Success: true,
			Output:  t.Version(ctx),
		}, nil
	case "info":
		return t.infoResult(ctx), nil
	}

	var target string
	if route.NeedsTarget {
		switch route.TargetKind {
		case TargetURL:
			target = ExtractURL(query)
		case TargetHash:
			target = ExtractHash(query)
		case TargetTerm:
			target = ExtractTerm(query)
		default:
			target = ExtractTarget(query)
		}
		if target == "" {
			return &types.QueryResult{
				Tool:    t.spec.Name,
				Action:  route.Action,
				Success: false,
				Error:   "no target found in query",
				Example: route.Example,
			}, nil
		}
	}

	options := map[string]string{}
	if ports := ExtractPorts(query); ports != "" {
		options["ports"] = ports
	}

	result, err := t.Run(ctx, route.Operation, target, options)
	if err != nil {
		return &types.QueryResult{
			Tool:    t.spec.Name,
			Action:  route.Action,
			Success: false,
			Target:  target,
			Error:   err.Error(),
			Example: route.Example,
		}, nil
	}

	qr := &types.QueryResult{
		Tool:    t.spec.Name,
		Action:  route.Action,
		Success: result.Success,
		Target:  target,
		Output:  Truncate(result.Output, QueryMaxOutput),
		Error:   result.Error,
	}

	fields := map[string]interface{}{}
	if result.HostsFound > 0 {
		fields["hosts_found"] = result.HostsFound
	}
	if result.PortsFound > 0 {
		fields["ports_found"] = result.PortsFound
	}
	if result.EntriesFound > 0 {
		fields["entries_found"] = result.EntriesFound
	}
	if len(fields) > 0 {
		qr.Fields = fields
	}

	return qr, nil
}

func (t *Tool) infoResult(ctx context.Context) *types.QueryResult {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s\n", t.spec.Name, t.spec.Description)
	if t.IsAvailable() {
		fmt.Fprintf(&b, "Version: %s\n", t.Version(ctx))
	} else {
		fmt.Fprintf(&b, "Not installed. Install with: sudo apt install %s\n", t.installPackage())
	}
	fmt.Fprintf(&b, "Operations: %s", strings.Join(t.spec.operationNames(), ", "))

	return &types.QueryResult{
		Tool:    t.spec.Name,
		Action:  "info",
		Success: true,
		Output:  b.String(),
	}
}

func (t *Tool) helpText() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s - %s\n\n", t.spec.Name, t.spec.Description)
	b.WriteString("Operations:\n")
	for _, op := range t.spec.Operations {
		fmt.Fprintf(&b, "  %-12s %s\n", op.Name, op.Description)
	}
	if len(t.spec.UsageExamples) > 0 {
		b.WriteString("\nExamples:\n")
		for _, ex := range t.spec.UsageExamples {
			fmt.Fprintf(&b, "  %s\n", ex)
		}
	}
	if t.spec.Warning != "" {
		fmt.Fprintf(&b, "\nWarning: %s\n", t.spec.Warning)
	}
	return b.String()
}

func (t *Tool) Status() *types.ToolStatus {
	supported := make([]string, 0, len(t.spec.Routes))
	for _, route := range t.spec.Routes {
		if route.Action != "" {
			supported = append(supported, route.Action)
		}
	}

	return &types.ToolStatus{
		Name:             t.spec.Name,
		Available:        t.IsAvailable(),
		Description:      t.spec.Description,
		Category:         t.spec.Category,
		SupportedQueries: supported,
		Modes:            t.spec.operationNames(),
		Warning:          t.spec.Warning,
		RequiresRoot:     t.spec.RequiresRoot,
		Package:          t.installPackage(),
		UsageExamples:    t.spec.UsageExamples,
	}
}

func (t *Tool) installPackage() string {
	if t.spec.Package != "" {
		return t.spec.Package
	}
	return t.spec.Name
}

// Truncate caps a string at n bytes with an ellipsis marker.
func Truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
