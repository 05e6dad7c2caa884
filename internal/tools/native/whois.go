package native

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/likexian/whois"
	whoisparser "github.com/likexian/whois-parser"

	"github.com/CodeMonkeyCybersecurity/sharingan/internal/core"
	"github.com/CodeMonkeyCybersecurity/sharingan/internal/logger"
	"github.com/CodeMonkeyCybersecurity/sharingan/internal/tools"
	"github.com/CodeMonkeyCybersecurity/sharingan/pkg/types"
)

// WhoisTool performs registration lookups in process with parsed
// output. Results are cached because registrars rate limit hard.
type WhoisTool struct {
	logger   *logger.Logger
	cacheTTL time.Duration

	mu    sync.Mutex
	cache map[string]whoisEntry
}

type whoisEntry struct {
	output  string
	fields  map[string]interface{}
	fetched time.Time
}

func NewWhoisTool(log *logger.Logger) *WhoisTool {
	return &WhoisTool{
		logger:   log.WithTool("whois-native"),
		cacheTTL: 15 * time.Minute,
		cache:    make(map[string]whoisEntry),
	}
}

func (w *WhoisTool) Name() string                 { return "whois-native" }
func (w *WhoisTool) Category() types.ToolCategory { return types.CategoryRecon }
func (w *WhoisTool) IsAvailable() bool            { return true }

func (w *WhoisTool) Version(ctx context.Context) string { return "native" }

func (w *WhoisTool) Run(ctx context.Context, operation string, target string, options map[string]string) (*types.ToolResult, error) {
	start := time.Now()
	if operation == "" {
		operation = "lookup"
	}
	if operation != "lookup" && operation != "raw" {
		return nil, fmt.Errorf("%w: whois-native has no operation %q", core.ErrUnknownOperation, operation)
	}
	if target == "" {
		return nil, fmt.Errorf("operation whois-native.%s requires a target", operation)
	}

	result := &types.ToolResult{
		Tool:      "whois-native",
		Operation: operation,
		Target:    target,
		Command:   fmt.Sprintf("whois-native %s %s", operation, target),
		StartedAt: start,
	}

	w.mu.Lock()
	entry, cached := w.cache[target]
	w.mu.Unlock()

	if cached && time.Since(entry.fetched) < w.cacheTTL {
		result.Success = true
		result.Output = entry.output
		result.Metadata = entry.fields
		result.Duration = time.Since(start)
		return result, nil
	}

	raw, err := whois.Whois(target)
	result.Duration = time.Since(start)
	if err != nil {
		result.Success = false
		result.Error = fmt.Sprintf("whois query failed: %v", err)
		return result, nil
	}

	output, fields := w.summarize(target, raw)

	w.mu.Lock()
	w.cache[target] = whoisEntry{output: output, fields: fields, fetched: time.Now()}
	w.mu.Unlock()

	result.Success = true
	result.Output = output
	result.Metadata = fields
	if operation == "raw" {
		result.Output = tools.Truncate(raw, tools.WideMaxOutput)
	}
	return result, nil
}

// summarize parses the raw response, falling back to line scanning for
// TLDs the parser does not know.
func (w *WhoisTool) summarize(target, raw string) (string, map[string]interface{}) {
	fields := map[string]interface{}{}
	var b strings.Builder

	parsed, err := whoisparser.Parse(raw)
	if err == nil {
		if parsed.Registrar != nil && parsed.Registrar.Name != "" {
			fields["registrar"] = parsed.Registrar.Name
			fmt.Fprintf(&b, "Registrar: %s\n", parsed.Registrar.Name)
		}
		if parsed.Domain != nil {
			if parsed.Domain.CreatedDate != "" {
				fields["created"] = parsed.Domain.CreatedDate
				fmt.Fprintf(&b, "Created: %s\n", parsed.Domain.CreatedDate)
			}
			if parsed.Domain.ExpirationDate != "" {
				fields["expires"] = parsed.Domain.ExpirationDate
				fmt.Fprintf(&b, "Expires: %s\n", parsed.Domain.ExpirationDate)
			}
			if len(parsed.Domain.NameServers) > 0 {
				fields["name_servers"] = parsed.Domain.NameServers
				fmt.Fprintf(&b, "Name servers: %s\n", strings.Join(parsed.Domain.NameServers, ", "))
			}
			if len(parsed.Domain.Status) > 0 {
				fmt.Fprintf(&b, "Status: %s\n", strings.Join(parsed.Domain.Status, ", "))
			}
		}
		if b.Len() > 0 {
			return strings.TrimRight(b.String(), "\n"), fields
		}
	}

	w.logger.Debugw("Whois parse fell back to raw scan", "target", target)
	for _, line := range strings.Split(raw, "\n") {
		lower := strings.ToLower(strings.TrimSpace(line))
		for _, key := range []string{"registrar:", "creation date:", "expiry date:", "name server:"} {
			if strings.HasPrefix(lower, key) {
				b.WriteString(strings.TrimSpace(line))
				b.WriteByte('\n')
			}
		}
	}
	if b.Len() == 0 {
		return tools.Truncate(raw, tools.DefaultMaxOutput), fields
	}
	return strings.TrimRight(b.String(), "\n"), fields
}

func (w *WhoisTool) HandleQuery(ctx context.Context, query string) (*types.QueryResult, error) {
	q := strings.ToLower(query)

	if tools.ContainsAny(q, []string{"help", "aide"}) {
		return &types.QueryResult{
			Tool:    "whois-native",
			Action:  "help",
			Success: true,
			Output:  "whois-native - registration lookups with parsed output\nOperations: lookup, raw",
		}, nil
	}

	operation := "lookup"
	if tools.ContainsAny(q, []string{"raw", "brut", "complet"}) {
		operation = "raw"
	}

	target := tools.ExtractTarget(q)
	if target == "" {
		return &types.QueryResult{
			Tool:    "whois-native",
			Action:  operation,
			Success: false,
			Error:   "no target found in query",
			Example: "whois of example.com",
		}, nil
	}

	result, err := w.Run(ctx, operation, target, nil)
	if err != nil {
		return nil, err
	}

	return &types.QueryResult{
		Tool:    "whois-native",
		Action:  operation,
		Success: result.Success,
		Target:  target,
		Output:  tools.Truncate(result.Output, tools.QueryMaxOutput),
		Error:   result.Error,
		Fields:  result.Metadata,
	}, nil
}

func (w *WhoisTool) Status() *types.ToolStatus {
	return &types.ToolStatus{
		Name:             "whois-native",
		Available:        true,
		Description:      "Registration lookups with parsed registrar and expiry fields",
		Category:         types.CategoryRecon,
		SupportedQueries: []string{"lookup", "raw"},
		Modes:            []string{"lookup", "raw"},
		UsageExamples:    []string{"whois of example.com", "raw whois of example.com"},
	}
}
