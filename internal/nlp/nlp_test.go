package nlp

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CodeMonkeyCybersecurity/sharingan/internal/config"
	"github.com/CodeMonkeyCybersecurity/sharingan/internal/core"
	"github.com/CodeMonkeyCybersecurity/sharingan/internal/logger"
	"github.com/CodeMonkeyCybersecurity/sharingan/internal/tools"
	"github.com/CodeMonkeyCybersecurity/sharingan/pkg/types"
)

type fakeTool struct {
	name      string
	runErr    error
	calls     int
	gotOp     string
	gotTarget string
	gotOpts   map[string]string
}

func (f *fakeTool) Name() string                       { return f.name }
func (f *fakeTool) Category() types.ToolCategory       { return types.CategoryNetwork }
func (f *fakeTool) IsAvailable() bool                  { return true }
func (f *fakeTool) Version(ctx context.Context) string { return "1.0" }

func (f *fakeTool) Run(ctx context.Context, operation, target string, options map[string]string) (*types.ToolResult, error) {
	f.calls++
	f.gotOp = operation
	f.gotTarget = target
	f.gotOpts = options
	if f.runErr != nil {
		return nil, f.runErr
	}
	return &types.ToolResult{Tool: f.name, Operation: operation, Target: target, Success: true}, nil
}

func (f *fakeTool) HandleQuery(ctx context.Context, query string) (*types.QueryResult, error) {
	return &types.QueryResult{Tool: f.name, Success: true}, nil
}

func (f *fakeTool) Status() *types.ToolStatus {
	return &types.ToolStatus{Name: f.name, Available: true}
}

type fakeTelemetry struct {
	queries map[string]bool
}

func (f *fakeTelemetry) RecordInvocation(tool, operation string, duration float64, success bool) {}
func (f *fakeTelemetry) RecordFinding(severity types.Severity)                                  {}
func (f *fakeTelemetry) RecordWorkerMetrics(status *types.WorkerStatus)                         {}
func (f *fakeTelemetry) Close() error                                                           { return nil }

func (f *fakeTelemetry) RecordQuery(tool string, matched bool) {
	if f.queries == nil {
		f.queries = make(map[string]bool)
	}
	f.queries[tool] = matched
}

// testRouter wires a router over a registry of fake tools. Only names
// matter here; parsing never touches the tools themselves.
func testRouter(t *testing.T, names ...string) (*Router, map[string]*fakeTool, *fakeTelemetry) {
	t.Helper()

	log, err := logger.New(config.LoggerConfig{Level: "error", Format: "console"})
	require.NoError(t, err)

	registry := tools.NewRegistry()
	fakes := make(map[string]*fakeTool, len(names))
	for _, name := range names {
		f := &fakeTool{name: name}
		fakes[name] = f
		require.NoError(t, registry.Register(f))
	}

	tel := &fakeTelemetry{}
	return NewRouter(registry, tel, log), fakes, tel
}

func TestParse_Routing(t *testing.T) {
	router, _, _ := testRouter(t, "nmap", "hydra", "curl", "netstat")

	cases := []struct {
		query     string
		tool      string
		operation string
		target    string
		category  CommandCategory
		confirm   bool
	}{
		{"scan rapide de 192.168.1.50", "nmap", "quick", "192.168.1.50", CategoryNetworkScan, false},
		{"quick scan of example.com", "nmap", "quick", "example.com", CategoryNetworkScan, false},
		{"stealth scan of 10.0.0.8", "nmap", "stealth", "10.0.0.8", CategoryNetworkScan, false},
		{"scanne les ports de 192.168.1.9", "nmap", "port", "192.168.1.9", CategoryNetworkScan, false},
		{"which ports are open on example.com", "nmap", "port", "example.com", CategoryNetworkScan, false},
		{"quel est l'os de 192.168.1.12", "nmap", "os", "192.168.1.12", CategoryNetworkScan, false},
		{"hôtes actifs sur 192.168.1.0/24", "nmap", "ping", "192.168.1.0/24", CategoryNetworkScan, false},
		{"scan for vulnerabilities on 10.0.0.3", "nmap", "vuln", "10.0.0.3", CategoryNetworkScan, false},
		{"full scan of 10.0.0.4", "nmap", "full", "10.0.0.4", CategoryNetworkScan, false},
		{"netdiscover sur 192.168.1.0/24", "netdiscover", "scan", "192.168.1.0/24", CategoryNetworkScan, false},

		{"qui possède example.com", "whois-native", "lookup", "example.com", CategoryReconnaissance, false},
		{"trouve l'ip de github.com", "dnslookup", "resolve", "github.com", CategoryReconnaissance, false},
		{"mail servers of example.com", "dnslookup", "mx", "example.com", CategoryReconnaissance, false},
		{"reverse dns of 8.8.8.8", "dig", "reverse", "8.8.8.8", CategoryReconnaissance, false},
		{"zone transfer for example.com", "dnsrecon", "axfr", "example.com", CategoryReconnaissance, false},
		{"liste les sous-domaines de example.com", "gobuster", "dns", "example.com", CategoryReconnaissance, false},
		{"interroge le ldap de 10.0.0.2", "ldap-probe", "probe", "10.0.0.2", CategoryReconnaissance, false},

		{"capture les paquets sur eth0", "tcpdump", "capture", "", CategoryNetworkScan, false},

		{"exploits for proftpd 1.3.5", "searchsploit", "search", "proftpd 1.3.5", CategorySecurityAudit, false},
		{"identifie ce hash 5f4dcc3b5aa765d61d8327deb882cf99", "hashid", "identify", "5f4dcc3b5aa765d61d8327deb882cf99", CategorySecurityAudit, false},
		{"crack hash 5f4dcc3b5aa765d61d8327deb882cf99 avec rockyou", "hashcat", "crack", "5f4dcc3b5aa765d61d8327deb882cf99", CategorySecurityAudit, false},

		{"répertoires cachés de example.com", "dirb", "scan", "http://example.com", CategoryWebAttack, false},
		{"scanne le site web example.com", "nikto", "scan", "http://example.com", CategoryWebAttack, false},
		{"test sql injection on http://example.com/item?id=1", "sqlmap", "test", "http://example.com/item?id=1", CategoryWebAttack, true},
		{"génère une wordlist depuis example.com", "wordlist-spider", "generate", "http://example.com", CategoryWebAttack, false},
		{"cewl example.com", "cewl", "generate", "http://example.com", CategoryWebAttack, false},
		{"montre les headers de https://example.com", "curl", "headers", "https://example.com", CategoryWebAttack, false},

		{"brute force ssh sur 192.168.1.7", "hydra", "attack", "192.168.1.7", CategorySecurityAudit, true},
		{"change my mac address", "macchanger", "random", "", CategorySecurityAudit, true},
		{"trouve les partages smb de 10.0.0.6", "smbmap", "shares", "10.0.0.6", CategorySecurityAudit, false},

		{"kernel version", "uname", "info", "", CategorySystemInfo, false},
		{"quels ports sont ouverts sur ma machine", "netstat", "listening", "", CategorySystemInfo, false},
		{"quels ports sont ouverts sur 10.0.0.1", "nmap", "port", "10.0.0.1", CategoryNetworkScan, false},
		{"liste les connexions actives", "netstat", "connections", "", CategorySystemInfo, false},
		{"hexdump du fichier", "xxd", "dump", "", CategorySystemInfo, false},
		{"what is my mac address", "macchanger", "show", "", CategorySystemInfo, false},

		{"scan 192.168.1.0/24", "nmap", "quick", "192.168.1.0/24", CategoryNetworkScan, false},
	}

	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			cmd := router.Parse(tc.query)
			assert.Equal(t, tc.tool, cmd.Tool)
			assert.Equal(t, tc.operation, cmd.Operation)
			assert.Equal(t, tc.target, cmd.Target)
			assert.Equal(t, tc.category, cmd.Category)
			assert.Equal(t, tc.confirm, cmd.RequiresConfirmation)
		})
	}
}

func TestParse_PortsOption(t *testing.T) {
	router, _, _ := testRouter(t, "nmap")

	cmd := router.Parse("scan ports 22,80 of 10.0.0.5")
	assert.Equal(t, "nmap", cmd.Tool)
	assert.Equal(t, "port", cmd.Operation)
	assert.Equal(t, "10.0.0.5", cmd.Target)
	assert.Equal(t, "22,80", cmd.Options["ports"])
	assert.Equal(t, "nmap port 10.0.0.5 ports=22,80", cmd.FinalCommand)
}

func TestParse_Confidence(t *testing.T) {
	router, _, _ := testRouter(t, "nmap", "curl")

	if got := router.Parse("scan rapide de 192.168.1.50").Confidence; got != ruleConfidence {
		t.Errorf("rule match confidence = %v, want %v", got, ruleConfidence)
	}
	if got := router.Parse("scan 192.168.1.0/24").Confidence; got != systemConfidence {
		t.Errorf("generic scan confidence = %v, want %v", got, systemConfidence)
	}
	if got := router.Parse("look at http://example.com/shop").Confidence; got != urlGuessConfidence {
		t.Errorf("url guess confidence = %v, want %v", got, urlGuessConfidence)
	}
	if got := router.Parse("bonjour tout le monde").Confidence; got != fallbackConfidence {
		t.Errorf("fallback confidence = %v, want %v", got, fallbackConfidence)
	}
}

func TestParse_URLGuess(t *testing.T) {
	router, _, _ := testRouter(t, "curl")

	cmd := router.Parse("look at http://example.com/shop")
	assert.Equal(t, "curl", cmd.Tool)
	assert.Equal(t, "headers", cmd.Operation)
	assert.Equal(t, "http://example.com/shop", cmd.Target)
	assert.Equal(t, CategoryGeneral, cmd.Category)
	require.Len(t, cmd.Warnings, 1)
	assert.Contains(t, cmd.Warnings[0], "guessing")
}

func TestParse_Unrecognized(t *testing.T) {
	router, _, _ := testRouter(t, "nmap", "hydra")

	cmd := router.Parse("run nmpa now")
	assert.Empty(t, cmd.Tool)
	assert.Equal(t, CategoryUnknown, cmd.Category)
	require.NotEmpty(t, cmd.Warnings)
	assert.Contains(t, cmd.Warnings[0], "not recognized")
	assert.Contains(t, cmd.Suggestions, `did you mean "nmap"?`)
}

func TestParse_NoSuggestionsForPlainChat(t *testing.T) {
	router, _, _ := testRouter(t, "nmap", "hydra", "curl", "netstat")

	cmd := router.Parse("bonjour tout le monde")
	assert.Empty(t, cmd.Tool)
	assert.Empty(t, cmd.Suggestions)
}

func TestParse_MissingTargetWarning(t *testing.T) {
	router, _, _ := testRouter(t, "nmap")

	cmd := router.Parse("scan rapide")
	assert.Equal(t, "nmap", cmd.Tool)
	assert.Empty(t, cmd.Target)
	require.NotEmpty(t, cmd.Warnings)
	assert.Contains(t, cmd.Warnings[0], "needs a target")
}

func TestSuggest_NearMisses(t *testing.T) {
	router, _, _ := testRouter(t, "nmap", "hydra", "curl")

	got := router.suggest("hydar example")
	assert.Contains(t, got, `did you mean "hydra"?`)

	// Exact tool names are not near misses.
	assert.Empty(t, router.suggest("curl"))
}

func TestExecute_Safe(t *testing.T) {
	router, fakes, tel := testRouter(t, "nmap")

	res, err := router.Execute(context.Background(), "scan rapide de 192.168.1.50", false)
	require.NoError(t, err)
	require.NotNil(t, res.Result)
	assert.True(t, res.Result.Success)

	nmap := fakes["nmap"]
	assert.Equal(t, 1, nmap.calls)
	assert.Equal(t, "quick", nmap.gotOp)
	assert.Equal(t, "192.168.1.50", nmap.gotTarget)

	matched, ok := tel.queries["nmap"]
	assert.True(t, ok)
	assert.True(t, matched)
}

func TestExecute_ConfirmationRequired(t *testing.T) {
	router, fakes, _ := testRouter(t, "hydra")

	res, err := router.Execute(context.Background(), "hydra attack on 10.0.0.9", false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrConfirmationRequired))
	require.NotNil(t, res.Parsed)
	assert.Nil(t, res.Result)
	assert.Equal(t, 0, fakes["hydra"].calls)
}

func TestExecute_AutoConfirm(t *testing.T) {
	router, fakes, _ := testRouter(t, "hydra")

	res, err := router.Execute(context.Background(), "hydra attack on 10.0.0.9", true)
	require.NoError(t, err)
	require.NotNil(t, res.Result)
	assert.Equal(t, 1, fakes["hydra"].calls)
	assert.Equal(t, "attack", fakes["hydra"].gotOp)
}

func TestExecute_NoToolMatched(t *testing.T) {
	router, _, _ := testRouter(t, "nmap")

	res, err := router.Execute(context.Background(), "bonjour tout le monde", false)
	require.NoError(t, err)
	require.NotNil(t, res.Parsed)
	assert.Nil(t, res.Result)
	assert.Empty(t, res.Parsed.Tool)
}

func TestExecute_ToolNotRegistered(t *testing.T) {
	router, _, _ := testRouter(t, "nmap")

	res, err := router.Execute(context.Background(), "crack hash 5f4dcc3b5aa765d61d8327deb882cf99", false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrToolNotFound))
	require.NotNil(t, res.Parsed)
	assert.Equal(t, "hashcat", res.Parsed.Tool)
}

func TestExplain(t *testing.T) {
	router, _, _ := testRouter(t, "nmap", "hydra")

	out := router.Explain("scan rapide de 192.168.1.50")
	assert.Contains(t, out, "Would run:  nmap quick 192.168.1.50")
	assert.Contains(t, out, "network_scan")

	out = router.Explain("hydra attack on 10.0.0.9")
	assert.Contains(t, out, "Requires confirmation")

	out = router.Explain("run nmpa now")
	assert.Contains(t, out, "Would run:  nothing")
	assert.Contains(t, out, "not recognized")
	if !strings.Contains(out, `did you mean "nmap"?`) {
		t.Errorf("explain output missing suggestion:\n%s", out)
	}
}
