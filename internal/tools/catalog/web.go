package catalog

import (
	"strings"
	"time"

	"github.com/CodeMonkeyCybersecurity/sharingan/internal/config"
	"github.com/CodeMonkeyCybersecurity/sharingan/internal/tools"
	"github.com/CodeMonkeyCybersecurity/sharingan/pkg/types"
)

// WebSpecs covers content discovery and web application tools.
func WebSpecs(cfg config.ToolsConfig) []tools.Spec {
	return []tools.Spec{
		dirbSpec(cfg),
		gobusterSpec(cfg),
		niktoSpec(),
		sqlmapSpec(),
		cewlSpec(),
		curlSpec(),
	}
}

func dirbSpec(cfg config.ToolsConfig) tools.Spec {
	wordlist := cfg.DirbWordlist
	if wordlist == "" {
		wordlist = "/usr/share/dirb/wordlists/common.txt"
	}
	return tools.Spec{
		Name:             "dirb",
		Category:         types.CategoryWeb,
		Description:      "Web content scanner using dictionary lookups",
		Package:          "dirb",
		DefaultOperation: "scan",
		Operations: []tools.Operation{
			{
				Name:        "scan",
				Description: "Enumerate directories and files on a web server",
				Args: func(target string, options map[string]string) []string {
					wl := options["wordlist"]
					if wl == "" {
						wl = wordlist
					}
					return []string{target, wl, "-S"}
				},
				Timeout:     180 * time.Second,
				MaxOutput:   tools.WideMaxOutput,
				NeedsTarget: true,
				// dirb exits nonzero when the host is unreachable but
				// also after partially successful runs.
				AllowNonzeroExit: true,
				Parse: func(output string, result *types.ToolResult) {
					result.EntriesFound = countPrefixedLines(output, "+ ") +
						strings.Count(output, "==> DIRECTORY")
				},
			},
		},
		Routes: []tools.Route{
			versionRoute(),
			{Keywords: []string{"scan", "dossier", "directory", "directories", "énumér", "enum", "brute"}, Operation: "scan", NeedsTarget: true, TargetKind: tools.TargetURL, Action: "dir_scan", Example: "find directories of example.com"},
			helpRoutes()[0],
			helpRoutes()[1],
		},
		UsageExamples: []string{
			"find directories of example.com",
			"énumérer les dossiers de example.com",
		},
	}
}

func gobusterSpec(cfg config.ToolsConfig) tools.Spec {
	dirWordlist := cfg.DirbWordlist
	if dirWordlist == "" {
		dirWordlist = "/usr/share/dirb/wordlists/common.txt"
	}
	dnsWordlist := cfg.DNSWordlist
	if dnsWordlist == "" {
		dnsWordlist = "/usr/share/dnsrecon/namelist.txt"
	}
	return tools.Spec{
		Name:             "gobuster",
		Category:         types.CategoryWeb,
		Description:      "Fast directory, DNS, and vhost brute forcing",
		Package:          "gobuster",
		VersionArgs:      []string{"version"},
		DefaultOperation: "dir",
		Operations: []tools.Operation{
			{
				Name:        "dir",
				Description: "Directory enumeration",
				Args: func(target string, options map[string]string) []string {
					wl := options["wordlist"]
					if wl == "" {
						wl = dirWordlist
					}
					return []string{"dir", "-u", target, "-w", wl, "-q", "-z"}
				},
				Timeout:     180 * time.Second,
				MaxOutput:   tools.WideMaxOutput,
				NeedsTarget: true,
				Parse: func(output string, result *types.ToolResult) {
					result.EntriesFound = strings.Count(output, "Status:")
				},
			},
			{
				Name:        "dns",
				Description: "Subdomain enumeration",
				Args: func(target string, options map[string]string) []string {
					wl := options["wordlist"]
					if wl == "" {
						wl = dnsWordlist
					}
					return []string{"dns", "-d", target, "-w", wl, "-q"}
				},
				Timeout:     180 * time.Second,
				MaxOutput:   tools.WideMaxOutput,
				NeedsTarget: true,
				Parse: func(output string, result *types.ToolResult) {
					result.HostsFound = strings.Count(output, "Found:")
				},
			},
		},
		Routes: []tools.Route{
			versionRoute(),
			{Keywords: []string{"subdomain", "sous-domaine", "dns"}, Operation: "dns", NeedsTarget: true, Action: "dns_enum", Example: "find subdomains of example.com"},
			{Keywords: []string{"dir", "dossier", "directory", "énumér", "enum"}, Operation: "dir", NeedsTarget: true, TargetKind: tools.TargetURL, Action: "dir_enum", Example: "gobuster directories of example.com"},
			helpRoutes()[0],
			helpRoutes()[1],
		},
	}
}

func niktoSpec() tools.Spec {
	return tools.Spec{
		Name:             "nikto",
		Category:         types.CategoryWeb,
		Description:      "Web server vulnerability scanner",
		Package:          "nikto",
		VersionArgs:      []string{"-Version"},
		DefaultOperation: "scan",
		Operations: []tools.Operation{
			{
				Name:        "scan",
				Description: "Scan a web server for known issues",
				Args: func(target string, options map[string]string) []string {
					return []string{"-h", target, "-maxtime", "120s", "-nointeractive"}
				},
				Timeout:          150 * time.Second,
				MaxOutput:        tools.WideMaxOutput,
				NeedsTarget:      true,
				AllowNonzeroExit: true,
				Parse: func(output string, result *types.ToolResult) {
					result.EntriesFound = countPrefixedLines(output, "+ ")
				},
			},
		},
		Routes: []tools.Route{
			versionRoute(),
			{Keywords: []string{"scan", "vuln", "failles", "audit", "check"}, Operation: "scan", NeedsTarget: true, TargetKind: tools.TargetURL, Action: "web_scan", Example: "nikto scan of example.com"},
			helpRoutes()[0],
			helpRoutes()[1],
		},
	}
}

func sqlmapSpec() tools.Spec {
	return tools.Spec{
		Name:             "sqlmap",
		Category:         types.CategoryWeb,
		Description:      "Automatic SQL injection detection",
		Package:          "sqlmap",
		VersionArgs:      []string{"--version"},
		DefaultOperation: "test",
		Operations: []tools.Operation{
			{
				Name:        "test",
				Description: "Probe a URL for injectable parameters",
				Args: func(target string, options map[string]string) []string {
					return []string{"-u", target, "--batch", "--level", "1", "--risk", "1"}
				},
				Timeout:     300 * time.Second,
				MaxOutput:   tools.WideMaxOutput,
				NeedsTarget: true,
				Parse: func(output string, result *types.ToolResult) {
					result.EntriesFound = strings.Count(output, "Parameter:")
				},
			},
		},
		Routes: []tools.Route{
			versionRoute(),
			{Keywords: []string{"injection", "sqli", "sql", "test"}, Operation: "test", NeedsTarget: true, TargetKind: tools.TargetURL, Action: "sqli_test", Example: "test sql injection on http://example.com/page?id=1"},
			helpRoutes()[0],
			helpRoutes()[1],
		},
		Warning: "Only test applications you are authorized to assess.",
	}
}

func cewlSpec() tools.Spec {
	return tools.Spec{
		Name:             "cewl",
		Category:         types.CategoryWeb,
		Description:      "Build a custom wordlist by spidering a site",
		Package:          "cewl",
		VersionArgs:      []string{"--version"},
		DefaultOperation: "generate",
		Operations: []tools.Operation{
			{
				Name:        "generate",
				Description: "Collect words of 5+ characters from a site",
				Args: func(target string, options map[string]string) []string {
					minLen := options["min_length"]
					if minLen == "" {
						minLen = "5"
					}
					return []string{target, "-m", minLen, "-d", "1"}
				},
				Timeout:     120 * time.Second,
				MaxOutput:   tools.WideMaxOutput,
				NeedsTarget: true,
				Parse: func(output string, result *types.ToolResult) {
					result.EntriesFound = countLines(output)
				},
			},
		},
		Routes: []tools.Route{
			versionRoute(),
			{Keywords: []string{"wordlist", "liste de mots", "mots", "words", "generate", "génér"}, Operation: "generate", NeedsTarget: true, TargetKind: tools.TargetURL, Action: "wordlist", Example: "generate wordlist from example.com"},
			helpRoutes()[0],
			helpRoutes()[1],
		},
	}
}

func curlSpec() tools.Spec {
	return tools.Spec{
		Name:             "curl",
		Category:         types.CategoryWeb,
		Description:      "HTTP requests and header inspection",
		Package:          "curl",
		VersionArgs:      []string{"--version"},
		DefaultOperation: "headers",
		Operations: []tools.Operation{
			{
				Name:        "headers",
				Description: "Fetch response headers",
				Args:        staticArgs("-sI", "-m", "10"),
				Timeout:     15 * time.Second,
				MaxOutput:   tools.DefaultMaxOutput,
				NeedsTarget: true,
				Parse: func(output string, result *types.ToolResult) {
					if line := firstLine(output); strings.HasPrefix(line, "HTTP/") {
						if result.Metadata == nil {
							result.Metadata = map[string]interface{}{}
						}
						result.Metadata["status_line"] = line
					}
				},
			},
			{
				Name:        "get",
				Description: "Fetch a page body",
				Args:        staticArgs("-s", "-L", "-m", "15"),
				Timeout:     20 * time.Second,
				MaxOutput:   tools.WideMaxOutput,
				NeedsTarget: true,
			},
		},
		Routes: []tools.Route{
			versionRoute(),
			{Keywords: []string{"header", "entête", "en-tête"}, Operation: "headers", NeedsTarget: true, TargetKind: tools.TargetURL, Action: "headers", Example: "get headers of example.com"},
			// Padded " get " keeps "target" off this route.
			{Keywords: []string{" get ", "fetch", "télécharge", "download", "page"}, Operation: "get", NeedsTarget: true, TargetKind: tools.TargetURL, Action: "fetch", Example: "fetch page http://example.com"},
			helpRoutes()[0],
			helpRoutes()[1],
		},
	}
}
