package catalog

import (
	"strings"
	"time"

	"github.com/CodeMonkeyCybersecurity/sharingan/internal/config"
	"github.com/CodeMonkeyCybersecurity/sharingan/internal/tools"
	"github.com/CodeMonkeyCybersecurity/sharingan/pkg/types"
)

// NetworkSpecs covers host discovery and port scanning tools.
func NetworkSpecs(cfg config.ToolsConfig) []tools.Spec {
	return []tools.Spec{
		nmapSpec(),
		fpingSpec(),
		netdiscoverSpec(cfg),
		tcpdumpSpec(cfg),
		netcatSpec(),
	}
}

// parseNmap counts scan reports and open ports out of normal output.
func parseNmap(output string, result *types.ToolResult) {
	result.HostsFound = strings.Count(output, "Nmap scan report")
	result.PortsFound = strings.Count(output, "/tcp") + strings.Count(output, "/udp")
}

func nmapSpec() tools.Spec {
	return tools.Spec{
		Name:        "nmap",
		Category:    types.CategoryNetwork,
		Description: "Network exploration and port scanner",
		Package:     "nmap",
		VersionArgs: []string{"--version"},
		ParseVersion: func(output string) string {
			// "Nmap version 7.94 ( https://nmap.org )"
			if idx := strings.Index(output, "version "); idx >= 0 {
				rest := output[idx+len("version "):]
				if sp := strings.IndexByte(rest, ' '); sp > 0 {
					return rest[:sp]
				}
				return rest
			}
			return ""
		},
		DefaultOperation: "quick",
		Operations: []tools.Operation{
			{
				Name:        "quick",
				Description: "Fast scan of the most common ports with service detection",
				Args:        staticArgs("-sV", "-F"),
				Timeout:     60 * time.Second,
				MaxOutput:   3000,
				NeedsTarget: true,
				Parse:       parseNmap,
			},
			{
				Name:         "full",
				Description:  "All 65535 ports with scripts and OS detection",
				Args:         staticArgs("-sV", "-sC", "-O", "-p-"),
				Timeout:      180 * time.Second,
				MaxOutput:    5000,
				RequiresRoot: true,
				NeedsTarget:  true,
				Parse:        parseNmap,
			},
			{
				Name:         "stealth",
				Description:  "SYN scan of common ports",
				Args:         staticArgs("-sS", "-F"),
				Timeout:      120 * time.Second,
				MaxOutput:    3000,
				RequiresRoot: true,
				NeedsTarget:  true,
				Parse:        parseNmap,
			},
			{
				Name:        "port",
				Description: "Scan a specific port range with service detection",
				Args: func(target string, options map[string]string) []string {
					ports := options["ports"]
					if ports == "" {
						ports = "1-1000"
					}
					return []string{"-p", ports, "-sV", target}
				},
				Timeout:     120 * time.Second,
				MaxOutput:   5000,
				NeedsTarget: true,
				Parse:       parseNmap,
			},
			{
				Name:         "os",
				Description:  "Operating system fingerprinting",
				Args:         staticArgs("-O", "--osscan-guess"),
				Timeout:      120 * time.Second,
				MaxOutput:    3000,
				RequiresRoot: true,
				NeedsTarget:  true,
				Parse:        parseNmap,
			},
			{
				Name:        "service",
				Description: "Service and version detection on common ports",
				Args:        staticArgs("-sV"),
				Timeout:     120 * time.Second,
				MaxOutput:   3000,
				NeedsTarget: true,
				Parse:       parseNmap,
			},
			{
				Name:        "ping",
				Description: "Host discovery without port scanning",
				Args:        staticArgs("-sn"),
				Timeout:     60 * time.Second,
				MaxOutput:   2000,
				NeedsTarget: true,
				Parse:       parseNmap,
			},
			{
				Name:        "vuln",
				Description: "Vulnerability detection scripts against common ports",
				Args:        staticArgs("--script", "vuln"),
				Timeout:     180 * time.Second,
				MaxOutput:   5000,
				NeedsTarget: true,
				Parse:       parseNmap,
			},
		},
		// Narrow phrases before broad ones: "full" would also match
		// queries asking for a "full vulnerability scan".
		Routes: []tools.Route{
			versionRoute(),
			{Keywords: []string{"quick", "rapide", "fast"}, Operation: "quick", NeedsTarget: true, Action: "quick_scan", Example: "quick scan of 192.168.1.1"},
			{Keywords: []string{"stealth", "silencieux", "discret"}, Operation: "stealth", NeedsTarget: true, Action: "stealth_scan", Example: "stealth scan of 10.0.0.5"},
			{Keywords: []string{"port"}, Operation: "port", NeedsTarget: true, Action: "port_scan", Example: "scan ports 1-1000 of 192.168.1.1"},
			// Padded " os " keeps "host" and "hosts" off this route.
			{Keywords: []string{" os ", "système", "operating"}, Operation: "os", NeedsTarget: true, Action: "os_detection", Example: "detect os of 192.168.1.1"},
			{Keywords: []string{"service"}, Operation: "service", NeedsTarget: true, Action: "service_detection", Example: "detect services on 192.168.1.1"},
			{Keywords: []string{"ping", "découverte", "discovery", "alive"}, Operation: "ping", NeedsTarget: true, Action: "ping_sweep", Example: "ping sweep of 192.168.1.0/24"},
			{Keywords: []string{"vuln", "failles", "vulnerab"}, Operation: "vuln", NeedsTarget: true, Action: "vuln_scan", Example: "scan vulnerabilities of 192.168.1.1"},
			{Keywords: []string{"full", "complet", "complete", "tous les ports"}, Operation: "full", NeedsTarget: true, Action: "full_scan", Example: "full scan of 192.168.1.1"},
			helpRoutes()[0],
			helpRoutes()[1],
		},
		UsageExamples: []string{
			"quick scan of scanme.nmap.org",
			"scan rapide de 192.168.1.1",
			"scan ports 80,443 of example.com",
		},
	}
}

func fpingSpec() tools.Spec {
	return tools.Spec{
		Name:             "fping",
		Category:         types.CategoryNetwork,
		Description:      "Fast parallel ping sweep",
		Package:          "fping",
		VersionArgs:      []string{"-v"},
		DefaultOperation: "ping",
		Operations: []tools.Operation{
			{
				Name:        "ping",
				Description: "Ping a single host",
				Args:        staticArgs("-c", "3"),
				Timeout:     15 * time.Second,
				MaxOutput:   tools.DefaultMaxOutput,
				NeedsTarget: true,
				// fping exits 1 when some targets are unreachable.
				AllowNonzeroExit: true,
			},
			{
				Name:             "sweep",
				Description:      "Find alive hosts in a network range",
				Args:             staticArgs("-a", "-q", "-g"),
				Timeout:          60 * time.Second,
				MaxOutput:        tools.DefaultMaxOutput,
				NeedsTarget:      true,
				AllowNonzeroExit: true,
				Parse: func(output string, result *types.ToolResult) {
					result.HostsFound = countLines(output)
				},
			},
		},
		Routes: []tools.Route{
			versionRoute(),
			{Keywords: []string{"sweep", "range", "réseau", "network"}, Operation: "sweep", NeedsTarget: true, Action: "sweep", Example: "sweep 192.168.1.0/24 with fping"},
			{Keywords: []string{"ping"}, Operation: "ping", NeedsTarget: true, Action: "ping", Example: "ping 192.168.1.1 with fping"},
			helpRoutes()[0],
			helpRoutes()[1],
		},
		UsageExamples: []string{"fping sweep of 10.0.0.0/24"},
	}
}

func netdiscoverSpec(cfg config.ToolsConfig) tools.Spec {
	iface := cfg.DefaultIface
	return tools.Spec{
		Name:             "netdiscover",
		Category:         types.CategoryNetwork,
		Description:      "ARP based host discovery on the local network",
		Package:          "netdiscover",
		RequiresRoot:     true,
		DefaultOperation: "scan",
		Operations: []tools.Operation{
			{
				Name:        "scan",
				Description: "Active ARP scan of a range",
				Args: func(target string, options map[string]string) []string {
					args := []string{"-P", "-N", "-r", target}
					if iface != "" {
						args = append(args, "-i", iface)
					}
					return args
				},
				Timeout:      90 * time.Second,
				MaxOutput:    tools.DefaultMaxOutput,
				RequiresRoot: true,
				NeedsTarget:  true,
				Parse: func(output string, result *types.ToolResult) {
					result.HostsFound = countLines(output)
				},
			},
		},
		Routes: []tools.Route{
			versionRoute(),
			{Keywords: []string{"scan", "discover", "découvr", "arp"}, Operation: "scan", NeedsTarget: true, Action: "arp_scan", Example: "netdiscover scan of 192.168.1.0/24"},
			helpRoutes()[0],
			helpRoutes()[1],
		},
		Warning: "Requires root and only works on the local segment.",
	}
}

func tcpdumpSpec(cfg config.ToolsConfig) tools.Spec {
	iface := cfg.DefaultIface
	if iface == "" {
		iface = "any"
	}
	return tools.Spec{
		Name:             "tcpdump",
		Category:         types.CategoryNetwork,
		Description:      "Packet capture on a network interface",
		Package:          "tcpdump",
		RequiresRoot:     true,
		VersionArgs:      []string{"--version"},
		DefaultOperation: "capture",
		Operations: []tools.Operation{
			{
				Name:        "capture",
				Description: "Capture a bounded number of packets",
				Args: func(target string, options map[string]string) []string {
					count := options["count"]
					if count == "" {
						count = "50"
					}
					args := []string{"-i", iface, "-c", count, "-n"}
					if target != "" {
						args = append(args, "host", target)
					}
					return args
				},
				Timeout:      30 * time.Second,
				MaxOutput:    tools.WideMaxOutput,
				RequiresRoot: true,
				Parse: func(output string, result *types.ToolResult) {
					result.EntriesFound = countLines(output)
				},
			},
		},
		Routes: []tools.Route{
			versionRoute(),
			{Keywords: []string{"capture", "paquet", "packet", "sniff", "écoute"}, Operation: "capture", Action: "capture", Example: "capture packets from 192.168.1.1"},
			helpRoutes()[0],
			helpRoutes()[1],
		},
		Warning: "Requires root. Captures are bounded by packet count and timeout.",
	}
}

func netcatSpec() tools.Spec {
	return tools.Spec{
		Name:             "netcat",
		Binary:           "nc",
		Category:         types.CategoryNetwork,
		Description:      "TCP connections, banner grabs, and port checks",
		Package:          "netcat-openbsd",
		DefaultOperation: "portscan",
		Operations: []tools.Operation{
			{
				Name:        "portscan",
				Description: "Connect scan of a port range",
				Args: func(target string, options map[string]string) []string {
					ports := options["ports"]
					if ports == "" {
						ports = "1-1000"
					}
					return []string{"-zv", "-w", "2", target, ports}
				},
				Timeout:          90 * time.Second,
				MaxOutput:        tools.DefaultMaxOutput,
				NeedsTarget:      true,
				AllowNonzeroExit: true,
				Parse: func(output string, result *types.ToolResult) {
					result.PortsFound = strings.Count(strings.ToLower(output), "succeeded") +
						strings.Count(strings.ToLower(output), " open")
				},
			},
			{
				Name:        "banner",
				Description: "Grab the banner from one port",
				Args: func(target string, options map[string]string) []string {
					port := options["ports"]
					if port == "" {
						port = "80"
					}
					return []string{"-w", "3", target, port}
				},
				Timeout:          10 * time.Second,
				MaxOutput:        tools.DefaultMaxOutput,
				NeedsTarget:      true,
				AllowNonzeroExit: true,
			},
		},
		Routes: []tools.Route{
			versionRoute(),
			{Keywords: []string{"banner", "bannière"}, Operation: "banner", NeedsTarget: true, Action: "banner_grab", Example: "grab banner of 192.168.1.1 port 22"},
			{Keywords: []string{"scan", "port", "check", "vérif"}, Operation: "portscan", NeedsTarget: true, Action: "port_check", Example: "check ports 20-80 of 192.168.1.1"},
			helpRoutes()[0],
			helpRoutes()[1],
		},
	}
}
