// Package catalog declares every wrapped binary as data. Each spec
// names the operations, argument builders, timeouts, and query routes
// for one tool; the engine in the tools package does the rest.
package catalog

import (
	"bufio"
	"strings"

	"github.com/CodeMonkeyCybersecurity/sharingan/internal/config"
	"github.com/CodeMonkeyCybersecurity/sharingan/internal/tools"
)

// All returns the built in specs plus any custom definitions from
// config. Custom specs with a name collision override nothing; the
// registry rejects duplicates at registration.
func All(cfg config.ToolsConfig) []tools.Spec {
	var specs []tools.Spec
	specs = append(specs, NetworkSpecs(cfg)...)
	specs = append(specs, WebSpecs(cfg)...)
	specs = append(specs, PasswordSpecs(cfg)...)
	specs = append(specs, ReconSpecs(cfg)...)
	specs = append(specs, SystemSpecs(cfg)...)
	return specs
}

// countLines counts non empty lines, the usual "how many answers" parse.
func countLines(s string) int {
	n := 0
	scanner := bufio.NewScanner(strings.NewReader(s))
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) != "" {
			n++
		}
	}
	return n
}

// countPrefixedLines counts lines beginning with a marker after
// trimming, for tools like dirb and nikto that flag hits with "+ ".
func countPrefixedLines(s, prefix string) int {
	n := 0
	scanner := bufio.NewScanner(strings.NewReader(s))
	for scanner.Scan() {
		if strings.HasPrefix(strings.TrimSpace(scanner.Text()), prefix) {
			n++
		}
	}
	return n
}

// firstLine returns the first non empty line trimmed.
func firstLine(s string) string {
	scanner := bufio.NewScanner(strings.NewReader(s))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			return line
		}
	}
	return ""
}

// staticArgs builds an Args func for operations whose argv does not
// depend on options.
func staticArgs(args ...string) func(string, map[string]string) []string {
	return func(target string, _ map[string]string) []string {
		out := make([]string, len(args), len(args)+1)
		copy(out, args)
		if target != "" {
			out = append(out, target)
		}
		return out
	}
}

// helpRoutes returns the trailing help and info routes shared by every
// spec. Declared last so operation keywords win first.
func helpRoutes() []tools.Route {
	return []tools.Route{
		{Keywords: []string{"help", "aide", "usage"}, Operation: "help", Action: "help"},
		{Keywords: []string{"info", "about", "propos"}, Operation: "info", Action: "info"},
	}
}

// versionRoute matches before anything else, mirroring the way users
// ask "what version of X is installed" without wanting a scan.
func versionRoute() tools.Route {
	return tools.Route{Keywords: []string{"version"}, Operation: "version", Action: "version"}
}
