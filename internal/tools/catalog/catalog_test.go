package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CodeMonkeyCybersecurity/sharingan/internal/config"
	"github.com/CodeMonkeyCybersecurity/sharingan/internal/tools"
	"github.com/CodeMonkeyCybersecurity/sharingan/pkg/types"
)

// specialOps are route targets the engine handles without a Spec operation.
var specialOps = map[string]bool{"help": true, "version": true, "info": true}

func TestAll_SpecConsistency(t *testing.T) {
	specs := All(config.ToolsConfig{})
	require.NotEmpty(t, specs)

	seen := map[string]bool{}
	for _, spec := range specs {
		t.Run(spec.Name, func(t *testing.T) {
			assert.NotEmpty(t, spec.Name)
			assert.False(t, seen[spec.Name], "duplicate spec name")
			seen[spec.Name] = true

			assert.NotEmpty(t, spec.Description)
			assert.NotEmpty(t, spec.Operations)

			ops := map[string]bool{}
			for _, op := range spec.Operations {
				assert.NotEmpty(t, op.Name)
				assert.NotNil(t, op.Args, "operation %s has no Args builder", op.Name)
				assert.Positive(t, op.Timeout, "operation %s has no timeout", op.Name)
				ops[op.Name] = true
			}

			assert.True(t, ops[spec.DefaultOperation],
				"default operation %q does not exist", spec.DefaultOperation)

			for _, route := range spec.Routes {
				assert.NotEmpty(t, route.Keywords)
				if !specialOps[route.Operation] {
					assert.True(t, ops[route.Operation],
						"route %v points at missing operation %q", route.Keywords, route.Operation)
				}
				if route.NeedsTarget {
					assert.NotEmpty(t, route.Example,
						"route %v needs a target but has no example", route.Keywords)
				}
			}
		})
	}
}

func TestAll_ExpectedTools(t *testing.T) {
	specs := All(config.ToolsConfig{})

	names := map[string]types.ToolCategory{}
	for _, spec := range specs {
		names[spec.Name] = spec.Category
	}

	expected := map[string]types.ToolCategory{
		"nmap":         types.CategoryNetwork,
		"fping":        types.CategoryNetwork,
		"netdiscover":  types.CategoryNetwork,
		"tcpdump":      types.CategoryNetwork,
		"netcat":       types.CategoryNetwork,
		"dirb":         types.CategoryWeb,
		"gobuster":     types.CategoryWeb,
		"nikto":        types.CategoryWeb,
		"sqlmap":       types.CategoryWeb,
		"cewl":         types.CategoryWeb,
		"curl":         types.CategoryWeb,
		"hashcat":      types.CategoryPassword,
		"john":         types.CategoryPassword,
		"hydra":        types.CategoryPassword,
		"crunch":       types.CategoryPassword,
		"hashid":       types.CategoryPassword,
		"whois":        types.CategoryRecon,
		"dig":          types.CategoryRecon,
		"dnsrecon":     types.CategoryRecon,
		"searchsploit": types.CategoryExploitation,
		"strings":      types.CategoryForensic,
		"xxd":          types.CategoryForensic,
		"strace":       types.CategorySystem,
		"macchanger":   types.CategoryWireless,
		"smbmap":       types.CategoryRecon,
		"rpcclient":    types.CategoryRecon,
		"uname":        types.CategorySystem,
		"netstat":      types.CategorySystem,
	}

	for name, category := range expected {
		got, ok := names[name]
		assert.True(t, ok, "catalog is missing %s", name)
		assert.Equal(t, category, got, "%s category", name)
	}
}

func TestParseNmap(t *testing.T) {
	output := `Starting Nmap 7.94 ( https://nmap.org )
Nmap scan report for router.lan (192.168.1.1)
Host is up (0.0010s latency).
PORT    STATE SERVICE VERSION
22/tcp  open  ssh     OpenSSH 9.2
80/tcp  open  http    nginx 1.22
443/tcp open  https   nginx 1.22
Nmap scan report for nas.lan (192.168.1.20)
139/tcp open  netbios-ssn
53/udp  open  domain
Nmap done: 2 IP addresses (2 hosts up)`

	result := &types.ToolResult{}
	parseNmap(output, result)

	assert.Equal(t, 2, result.HostsFound)
	assert.Equal(t, 5, result.PortsFound)
}

func TestNmapSpec_Args(t *testing.T) {
	spec := nmapSpec()

	quick, ok := findOp(spec, "quick")
	require.True(t, ok)
	assert.Equal(t, []string{"-sV", "-F", "10.0.0.1"}, quick.Args("10.0.0.1", nil))

	port, ok := findOp(spec, "port")
	require.True(t, ok)
	assert.Equal(t, []string{"-p", "80,443", "-sV", "10.0.0.1"},
		port.Args("10.0.0.1", map[string]string{"ports": "80,443"}))
	// Without a ports option the range defaults to the first thousand.
	assert.Equal(t, []string{"-p", "1-1000", "-sV", "10.0.0.1"},
		port.Args("10.0.0.1", map[string]string{}))
}

func TestNmapSpec_ParseVersion(t *testing.T) {
	spec := nmapSpec()
	require.NotNil(t, spec.ParseVersion)

	assert.Equal(t, "7.94", spec.ParseVersion("Nmap version 7.94 ( https://nmap.org )"))
	assert.Equal(t, "", spec.ParseVersion("garbage"))
}

func TestNmapSpec_RouteOrder(t *testing.T) {
	spec := nmapSpec()

	// "scan rapide" must route to quick, not full, even though a
	// broader route also mentions scanning.
	tests := []struct {
		query string
		want  string
	}{
		{"scan rapide de 192.168.1.1", "quick"},
		{"quick scan of example.com", "quick"},
		{"stealth scan of 10.0.0.5", "stealth"},
		{"scan ports 80,443 of example.com", "port"},
		{"full scan of 192.168.1.1", "full"},
		{"scan complet de 192.168.1.1", "full"},
		{"find vulnerabilities on 192.168.1.1", "vuln"},
		{"ping sweep of 192.168.1.0/24", "ping"},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := firstRoute(spec, tt.query)
			assert.Equal(t, tt.want, got, "query %q", tt.query)
		})
	}
}

func TestNetcatSpec_PortscanParse(t *testing.T) {
	spec := netcatSpec()
	op, ok := findOp(spec, "portscan")
	require.True(t, ok)

	result := &types.ToolResult{}
	op.Parse("Connection to 10.0.0.1 22 port [tcp/ssh] succeeded!\nConnection to 10.0.0.1 80 port [tcp/http] succeeded!\n", result)
	assert.Equal(t, 2, result.PortsFound)
}

func TestFpingSpec_SweepParse(t *testing.T) {
	spec := fpingSpec()
	op, ok := findOp(spec, "sweep")
	require.True(t, ok)

	result := &types.ToolResult{}
	op.Parse("192.168.1.1\n192.168.1.20\n192.168.1.30\n", result)
	assert.Equal(t, 3, result.HostsFound)
}

func TestCountHelpers(t *testing.T) {
	assert.Equal(t, 2, countLines("a\n\nb\n"))
	assert.Equal(t, 0, countLines(""))
	assert.Equal(t, 2, countPrefixedLines("+ /admin\nskip\n  + /login\n", "+ "))
	assert.Equal(t, "first", firstLine("\n\nfirst\nsecond"))
	assert.Equal(t, "", firstLine("  \n\t\n"))
}

func findOp(spec tools.Spec, name string) (tools.Operation, bool) {
	for _, op := range spec.Operations {
		if op.Name == name {
			return op, true
		}
	}
	return tools.Operation{}, false
}

// firstRoute mirrors the engine's first match wins routing.
func firstRoute(spec tools.Spec, query string) string {
	for _, route := range spec.Routes {
		if tools.ContainsAny(query, route.Keywords) {
			return route.Operation
		}
	}
	return ""
}
