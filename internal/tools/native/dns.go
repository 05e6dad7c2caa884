// Package native implements tools that run in process instead of
// shelling out. They satisfy the same contract as wrapped binaries, so
// the registry and router treat both kinds alike.
package native

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/miekg/dns"

	"github.com/CodeMonkeyCybersecurity/sharingan/internal/core"
	"github.com/CodeMonkeyCybersecurity/sharingan/internal/logger"
	"github.com/CodeMonkeyCybersecurity/sharingan/internal/tools"
	"github.com/CodeMonkeyCybersecurity/sharingan/pkg/types"
)

var defaultResolvers = []string{
	"8.8.8.8:53",
	"1.1.1.1:53",
	"9.9.9.9:53",
}

// DNSTool resolves records directly over the wire, so lookups work even
// on hosts without dig installed.
type DNSTool struct {
	client    *dns.Client
	resolvers []string
	logger    *logger.Logger
}

func NewDNSTool(dnsServer string, log *logger.Logger) *DNSTool {
	resolvers := defaultResolvers
	if dnsServer != "" {
		if !strings.Contains(dnsServer, ":") {
			dnsServer += ":53"
		}
		resolvers = append([]string{dnsServer}, defaultResolvers...)
	}
	return &DNSTool{
		client:    &dns.Client{Timeout: 2 * time.Second},
		resolvers: resolvers,
		logger:    log.WithTool("dnslookup"),
	}
}

func (d *DNSTool) Name() string                 { return "dnslookup" }
func (d *DNSTool) Category() types.ToolCategory { return types.CategoryRecon }
func (d *DNSTool) IsAvailable() bool            { return true }

func (d *DNSTool) Version(ctx context.Context) string { return "native" }

func (d *DNSTool) Run(ctx context.Context, operation string, target string, options map[string]string) (*types.ToolResult, error) {
	start := time.Now()
	if operation == "" {
		operation = "resolve"
	}
	if target == "" {
		return nil, fmt.Errorf("operation dnslookup.%s requires a target", operation)
	}

	result := &types.ToolResult{
		Tool:      "dnslookup",
		Operation: operation,
		Target:    target,
		Command:   fmt.Sprintf("dnslookup %s %s", operation, target),
		StartedAt: start,
	}

	var lines []string
	var err error

	switch operation {
	case "resolve":
		lines, err = d.queryAll(ctx, target, dns.TypeA, dns.TypeAAAA, dns.TypeCNAME)
	case "mx":
		lines, err = d.queryAll(ctx, target, dns.TypeMX)
	case "ns":
		lines, err = d.queryAll(ctx, target, dns.TypeNS)
	case "txt":
		lines, err = d.queryAll(ctx, target, dns.TypeTXT)
	case "wildcard":
		lines, err = d.wildcardCheck(ctx, target)
	default:
		return nil, fmt.Errorf("%w: dnslookup has no operation %q", core.ErrUnknownOperation, operation)
	}

	result.Duration = time.Since(start)
	if err != nil {
		result.Success = false
		result.Error = err.Error()
		return result, nil
	}

	result.Success = true
	result.Output = strings.Join(lines, "\n")
	result.EntriesFound = len(lines)
	return result, nil
}

// queryAll asks each resolver in order and keeps the first answer set
// per record type, the same fallback order a stub resolver uses.
func (d *DNSTool) queryAll(ctx context.Context, target string, qtypes ...uint16) ([]string, error) {
	var lines []string
	var lastErr error

	for _, qtype := range qtypes {
		m := new(dns.Msg)
		m.SetQuestion(dns.Fqdn(target), qtype)

		for _, resolver := range d.resolvers {
			r, _, err := d.client.ExchangeContext(ctx, m, resolver)
			if err != nil {
				lastErr = err
				continue
			}

			for _, ans := range r.Answer {
				switch v := ans.(type) {
				case *dns.A:
					lines = append(lines, v.A.String())
				case *dns.AAAA:
					lines = append(lines, v.AAAA.String())
				case *dns.CNAME:
					lines = append(lines, "CNAME "+v.Target)
				case *dns.MX:
					lines = append(lines, fmt.Sprintf("%d %s", v.Preference, v.Mx))
				case *dns.NS:
					lines = append(lines, v.Ns)
				case *dns.TXT:
					lines = append(lines, strings.Join(v.Txt, " "))
				}
			}
			break
		}
	}

	if len(lines) == 0 {
		if lastErr != nil {
			return nil, fmt.Errorf("resolution failed: %w", lastErr)
		}
		return nil, fmt.Errorf("no records for %s", target)
	}
	return lines, nil
}

// wildcardCheck resolves a random subdomain; answers mean everything
// under the domain resolves and enumeration results are unreliable.
func (d *DNSTool) wildcardCheck(ctx context.Context, domain string) ([]string, error) {
	probe := fmt.Sprintf("wildcard-probe-%d.%s", time.Now().UnixNano(), domain)
	lines, err := d.queryAll(ctx, probe, dns.TypeA)
	if err != nil {
		return []string{"no wildcard: random subdomain does not resolve"}, nil
	}
	return append([]string{"wildcard DNS detected:"}, lines...), nil
}

func (d *DNSTool) HandleQuery(ctx context.Context, query string) (*types.QueryResult, error) {
	q := strings.ToLower(query)

	var operation, action string
	switch {
	case tools.ContainsAny(q, []string{"wildcard"}):
		operation, action = "wildcard", "wildcard_check"
	case tools.ContainsAny(q, []string{"mx", "mail", "courriel"}):
		operation, action = "mx", "mx_lookup"
	case tools.ContainsAny(q, []string{"ns", "name server", "serveur de nom"}):
		operation, action = "ns", "ns_lookup"
	case tools.ContainsAny(q, []string{"txt", "spf"}):
		operation, action = "txt", "txt_lookup"
	case tools.ContainsAny(q, []string{"resolve", "résou", "ip", "adresse", "address", "dns"}):
		operation, action = "resolve", "resolve"
	case tools.ContainsAny(q, []string{"help", "aide"}):
		return &types.QueryResult{
			Tool:    "dnslookup",
			Action:  "help",
			Success: true,
			Output:  "dnslookup - native DNS lookups\nOperations: resolve, mx, ns, txt, wildcard",
		}, nil
	default:
		operation, action = "resolve", "resolve"
	}

	target := tools.ExtractTarget(q)
	if target == "" {
		return &types.QueryResult{
			Tool:    "dnslookup",
			Action:  action,
			Success: false,
			Error:   "no target found in query",
			Example: "resolve example.com",
		}, nil
	}

	result, err := d.Run(ctx, operation, target, nil)
	if err != nil {
		return nil, err
	}

	return &types.QueryResult{
		Tool:    "dnslookup",
		Action:  action,
		Success: result.Success,
		Target:  target,
		Output:  tools.Truncate(result.Output, tools.QueryMaxOutput),
		Error:   result.Error,
		Fields:  map[string]interface{}{"entries_found": result.EntriesFound},
	}, nil
}

func (d *DNSTool) Status() *types.ToolStatus {
	return &types.ToolStatus{
		Name:             "dnslookup",
		Available:        true,
		Description:      "Native DNS lookups without external binaries",
		Category:         types.CategoryRecon,
		SupportedQueries: []string{"resolve", "mx_lookup", "ns_lookup", "txt_lookup", "wildcard_check"},
		Modes:            []string{"resolve", "mx", "ns", "txt", "wildcard"},
		UsageExamples:    []string{"resolve example.com", "mail servers of example.com"},
	}
}
