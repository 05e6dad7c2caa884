package native

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"

	"github.com/CodeMonkeyCybersecurity/sharingan/internal/core"
	"github.com/CodeMonkeyCybersecurity/sharingan/internal/logger"
	"github.com/CodeMonkeyCybersecurity/sharingan/internal/tools"
	"github.com/CodeMonkeyCybersecurity/sharingan/pkg/types"
)

// LDAPTool probes directory servers anonymously: root DSE contents,
// naming contexts, and whether anonymous search is allowed at all.
type LDAPTool struct {
	logger  *logger.Logger
	timeout time.Duration
}

func NewLDAPTool(log *logger.Logger) *LDAPTool {
	return &LDAPTool{
		logger:  log.WithTool("ldap-probe"),
		timeout: 10 * time.Second,
	}
}

func (l *LDAPTool) Name() string                 { return "ldap-probe" }
func (l *LDAPTool) Category() types.ToolCategory { return types.CategorySystem }
func (l *LDAPTool) IsAvailable() bool            { return true }

func (l *LDAPTool) Version(ctx context.Context) string { return "native" }

func (l *LDAPTool) Run(ctx context.Context, operation string, target string, options map[string]string) (*types.ToolResult, error) {
	start := time.Now()
	if operation == "" {
		operation = "probe"
	}
	if operation != "probe" && operation != "search" {
		return nil, fmt.Errorf("%w: ldap-probe has no operation %q", core.ErrUnknownOperation, operation)
	}
	if target == "" {
		return nil, fmt.Errorf("operation ldap-probe.%s requires a target", operation)
	}

	result := &types.ToolResult{
		Tool:      "ldap-probe",
		Operation: operation,
		Target:    target,
		Command:   fmt.Sprintf("ldap-probe %s %s", operation, target),
		StartedAt: start,
	}

	port := options["ports"]
	if port == "" {
		port = "389"
	}

	conn, err := l.connect(target, port)
	if err != nil {
		result.Duration = time.Since(start)
		result.Success = false
		result.Error = fmt.Sprintf("connection failed: %v", err)
		return result, nil
	}
	defer conn.Close()

	var output string
	switch operation {
	case "probe":
		output, err = l.probe(conn)
	case "search":
		base := options["base"]
		output, err = l.anonymousSearch(conn, base, result)
	}

	result.Duration = time.Since(start)
	if err != nil {
		result.Success = false
		result.Error = err.Error()
		return result, nil
	}

	result.Success = true
	result.Output = output
	return result, nil
}

func (l *LDAPTool) connect(host, port string) (*ldap.Conn, error) {
	address := net.JoinHostPort(host, port)

	conn, err := ldap.DialURL(fmt.Sprintf("ldap://%s", address))
	if err != nil {
		conn, err = ldap.DialURL(fmt.Sprintf("ldaps://%s", address))
		if err != nil {
			return nil, err
		}
	}
	conn.SetTimeout(l.timeout)
	return conn, nil
}

// probe reads the root DSE, which most servers expose to anonymous
// binds even when everything else is locked down.
func (l *LDAPTool) probe(conn *ldap.Conn) (string, error) {
	if err := conn.UnauthenticatedBind(""); err != nil {
		return "", fmt.Errorf("anonymous bind rejected: %w", err)
	}

	searchRequest := ldap.NewSearchRequest(
		"",
		ldap.ScopeBaseObject,
		ldap.NeverDerefAliases,
		0,
		0,
		false,
		"(objectClass=*)",
		[]string{"namingContexts", "supportedLDAPVersion", "vendorName", "vendorVersion", "dnsHostName"},
		nil,
	)

	result, err := conn.Search(searchRequest)
	if err != nil {
		return "", fmt.Errorf("root DSE search failed: %w", err)
	}
	if len(result.Entries) == 0 {
		return "", fmt.Errorf("server returned empty root DSE")
	}

	var b strings.Builder
	b.WriteString("anonymous bind accepted\n")
	for _, attr := range result.Entries[0].Attributes {
		fmt.Fprintf(&b, "%s: %s\n", attr.Name, strings.Join(attr.Values, ", "))
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (l *LDAPTool) anonymousSearch(conn *ldap.Conn, baseDN string, result *types.ToolResult) (string, error) {
	if err := conn.UnauthenticatedBind(""); err != nil {
		return "", fmt.Errorf("anonymous bind rejected: %w", err)
	}

	searchRequest := ldap.NewSearchRequest(
		baseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		25,
		10,
		false,
		"(objectClass=*)",
		[]string{"dn", "cn", "objectClass"},
		nil,
	)

	res, err := conn.Search(searchRequest)
	if err != nil {
		return "", fmt.Errorf("anonymous search rejected: %w", err)
	}

	result.EntriesFound = len(res.Entries)

	var b strings.Builder
	fmt.Fprintf(&b, "anonymous search allowed, %d entries under %q\n", len(res.Entries), baseDN)
	for _, entry := range res.Entries {
		fmt.Fprintf(&b, "%s\n", entry.DN)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (l *LDAPTool) HandleQuery(ctx context.Context, query string) (*types.QueryResult, error) {
	q := strings.ToLower(query)

	if tools.ContainsAny(q, []string{"help", "aide"}) {
		return &types.QueryResult{
			Tool:    "ldap-probe",
			Action:  "help",
			Success: true,
			Output:  "ldap-probe - anonymous directory probing\nOperations: probe, search",
		}, nil
	}

	operation := "probe"
	action := "probe"
	if tools.ContainsAny(q, []string{"search", "cherche", "entries", "entrées"}) {
		operation, action = "search", "anonymous_search"
	}

	target := tools.ExtractTarget(q)
	if target == "" {
		return &types.QueryResult{
			Tool:    "ldap-probe",
			Action:  action,
			Success: false,
			Error:   "no target found in query",
			Example: "probe ldap on 192.168.1.10",
		}, nil
	}

	options := map[string]string{}
	if ports := tools.ExtractPorts(q); ports != "" {
		options["ports"] = ports
	}

	result, err := l.Run(ctx, operation, target, options)
	if err != nil {
		return nil, err
	}

	return &types.QueryResult{
		Tool:    "ldap-probe",
		Action:  action,
		Success: result.Success,
		Target:  target,
		Output:  tools.Truncate(result.Output, tools.QueryMaxOutput),
		Error:   result.Error,
	}, nil
}

func (l *LDAPTool) Status() *types.ToolStatus {
	return &types.ToolStatus{
		Name:             "ldap-probe",
		Available:        true,
		Description:      "Anonymous LDAP probing without external binaries",
		Category:         types.CategorySystem,
		SupportedQueries: []string{"probe", "anonymous_search"},
		Modes:            []string{"probe", "search"},
		UsageExamples:    []string{"probe ldap on 192.168.1.10", "ldap search on dc.example.com"},
	}
}
