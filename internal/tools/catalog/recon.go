package catalog

import (
	"strings"
	"time"

	"github.com/CodeMonkeyCybersecurity/sharingan/internal/config"
	"github.com/CodeMonkeyCybersecurity/sharingan/internal/tools"
	"github.com/CodeMonkeyCybersecurity/sharingan/pkg/types"
)

// ReconSpecs covers passive information gathering tools.
func ReconSpecs(cfg config.ToolsConfig) []tools.Spec {
	return []tools.Spec{
		whoisSpec(),
		digSpec(cfg),
		dnsreconSpec(),
		searchsploitSpec(),
	}
}

func whoisSpec() tools.Spec {
	return tools.Spec{
		Name:             "whois",
		Category:         types.CategoryRecon,
		Description:      "Domain and IP registration lookups",
		Package:          "whois",
		VersionArgs:      []string{"--version"},
		DefaultOperation: "lookup",
		Operations: []tools.Operation{
			{
				Name:        "lookup",
				Description: "Query registration records",
				Args:        staticArgs(),
				Timeout:     30 * time.Second,
				MaxOutput:   tools.WideMaxOutput,
				NeedsTarget: true,
				Parse: func(output string, result *types.ToolResult) {
					if result.Metadata == nil {
						result.Metadata = map[string]interface{}{}
					}
					for _, line := range strings.Split(output, "\n") {
						lower := strings.ToLower(line)
						if strings.HasPrefix(lower, "registrar:") {
							result.Metadata["registrar"] = strings.TrimSpace(line[len("registrar:"):])
							break
						}
					}
				},
			},
		},
		Routes: []tools.Route{
			versionRoute(),
			{Keywords: []string{"whois", "lookup", "propriétaire", "owner", "registr"}, Operation: "lookup", NeedsTarget: true, Action: "lookup", Example: "whois of example.com"},
			helpRoutes()[0],
			helpRoutes()[1],
		},
	}
}

func digSpec(cfg config.ToolsConfig) tools.Spec {
	server := cfg.DNSServer
	withServer := func(args ...string) func(string, map[string]string) []string {
		return func(target string, _ map[string]string) []string {
			out := []string{}
			if server != "" {
				out = append(out, "@"+server)
			}
			out = append(out, target)
			out = append(out, args...)
			return out
		}
	}
	return tools.Spec{
		Name:             "dig",
		Category:         types.CategoryRecon,
		Description:      "DNS record lookups",
		Package:          "dnsutils",
		VersionArgs:      []string{"-v"},
		DefaultOperation: "lookup",
		Operations: []tools.Operation{
			{
				Name:        "lookup",
				Description: "A record lookup",
				Args:        withServer("+short"),
				Timeout:     15 * time.Second,
				MaxOutput:   tools.DefaultMaxOutput,
				NeedsTarget: true,
				Parse: func(output string, result *types.ToolResult) {
					result.EntriesFound = countLines(output)
				},
			},
			{
				Name:        "mx",
				Description: "Mail server records",
				Args:        withServer("MX", "+short"),
				Timeout:     15 * time.Second,
				MaxOutput:   tools.DefaultMaxOutput,
				NeedsTarget: true,
				Parse: func(output string, result *types.ToolResult) {
					result.EntriesFound = countLines(output)
				},
			},
			{
				Name:        "ns",
				Description: "Name server records",
				Args:        withServer("NS", "+short"),
				Timeout:     15 * time.Second,
				MaxOutput:   tools.DefaultMaxOutput,
				NeedsTarget: true,
				Parse: func(output string, result *types.ToolResult) {
					result.EntriesFound = countLines(output)
				},
			},
			{
				Name:        "txt",
				Description: "TXT records including SPF and verification strings",
				Args:        withServer("TXT", "+short"),
				Timeout:     15 * time.Second,
				MaxOutput:   tools.DefaultMaxOutput,
				NeedsTarget: true,
				Parse: func(output string, result *types.ToolResult) {
					result.EntriesFound = countLines(output)
				},
			},
			{
				Name:        "reverse",
				Description: "Reverse lookup of an IP",
				Args: func(target string, _ map[string]string) []string {
					return []string{"-x", target, "+short"}
				},
				Timeout:     15 * time.Second,
				MaxOutput:   tools.DefaultMaxOutput,
				NeedsTarget: true,
				Parse: func(output string, result *types.ToolResult) {
					result.EntriesFound = countLines(output)
				},
			},
		},
		Routes: []tools.Route{
			versionRoute(),
			{Keywords: []string{"mx", "mail", "courriel"}, Operation: "mx", NeedsTarget: true, Action: "mx_lookup", Example: "mail servers of example.com"},
			// Padded " ns " keeps "dns" queries on the lookup route.
			{Keywords: []string{" ns ", "ns record", "name server", "nameserver", "serveur de nom"}, Operation: "ns", NeedsTarget: true, Action: "ns_lookup", Example: "name servers of example.com"},
			{Keywords: []string{"txt", "spf"}, Operation: "txt", NeedsTarget: true, Action: "txt_lookup", Example: "txt records of example.com"},
			{Keywords: []string{"reverse", "inverse", "ptr"}, Operation: "reverse", NeedsTarget: true, Action: "reverse_lookup", Example: "reverse lookup of 8.8.8.8"},
			{Keywords: []string{"dns", "resolve", "résou", "lookup", "adresse", "address"}, Operation: "lookup", NeedsTarget: true, Action: "lookup", Example: "resolve example.com"},
			helpRoutes()[0],
			helpRoutes()[1],
		},
	}
}

func dnsreconSpec() tools.Spec {
	return tools.Spec{
		Name:             "dnsrecon",
		Category:         types.CategoryRecon,
		Description:      "DNS enumeration including zone transfer checks",
		Package:          "dnsrecon",
		DefaultOperation: "enum",
		Operations: []tools.Operation{
			{
				Name:        "enum",
				Description: "Standard enumeration of a domain",
				Args: func(target string, _ map[string]string) []string {
					return []string{"-d", target}
				},
				Timeout:     120 * time.Second,
				MaxOutput:   tools.WideMaxOutput,
				NeedsTarget: true,
				Parse: func(output string, result *types.ToolResult) {
					result.EntriesFound = strings.Count(output, "[+]")
				},
			},
			{
				Name:        "axfr",
				Description: "Zone transfer attempt",
				Args: func(target string, _ map[string]string) []string {
					return []string{"-d", target, "-t", "axfr"}
				},
				Timeout:          60 * time.Second,
				MaxOutput:        tools.WideMaxOutput,
				NeedsTarget:      true,
				AllowNonzeroExit: true,
				Parse: func(output string, result *types.ToolResult) {
					result.EntriesFound = strings.Count(output, "[+]")
				},
			},
		},
		Routes: []tools.Route{
			versionRoute(),
			{Keywords: []string{"zone", "transfer", "transfert", "axfr"}, Operation: "axfr", NeedsTarget: true, Action: "zone_transfer", Example: "try zone transfer of example.com"},
			{Keywords: []string{"enum", "énumér", "recon", "records"}, Operation: "enum", NeedsTarget: true, Action: "dns_enum", Example: "dns recon of example.com"},
			helpRoutes()[0],
			helpRoutes()[1],
		},
	}
}

func searchsploitSpec() tools.Spec {
	return tools.Spec{
		Name:             "searchsploit",
		Category:         types.CategoryExploitation,
		Description:      "Offline exploit-db search",
		Package:          "exploitdb",
		DefaultOperation: "search",
		Operations: []tools.Operation{
			{
				Name:        "search",
				Description: "Search exploits by product or keyword",
				Args:        staticArgs("--colour"),
				Timeout:     30 * time.Second,
				MaxOutput:   tools.WideMaxOutput,
				NeedsTarget: true,
				Parse: func(output string, result *types.ToolResult) {
					// Each exploit row contains a path separator column.
					result.EntriesFound = strings.Count(output, "|") / 2
				},
			},
		},
		Routes: []tools.Route{
			versionRoute(),
			{Keywords: []string{"exploit", "searchsploit", "cve", "faille connue"}, Operation: "search", NeedsTarget: true, TargetKind: tools.TargetTerm, Action: "exploit_search", Example: "search exploits for apache 2.4"},
			helpRoutes()[0],
			helpRoutes()[1],
		},
	}
}
