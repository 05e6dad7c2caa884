package catalog

import (
	"strings"
	"time"

	"github.com/CodeMonkeyCybersecurity/sharingan/internal/config"
	"github.com/CodeMonkeyCybersecurity/sharingan/internal/tools"
	"github.com/CodeMonkeyCybersecurity/sharingan/pkg/types"
)

// PasswordSpecs covers hash cracking and credential testing tools.
// Target semantics differ from network tools: hashcat and john take a
// hash file path, hashid takes the hash itself, hydra takes a host.
func PasswordSpecs(cfg config.ToolsConfig) []tools.Spec {
	return []tools.Spec{
		hashcatSpec(cfg),
		johnSpec(cfg),
		hydraSpec(cfg),
		crunchSpec(),
		hashidSpec(),
	}
}

func hashcatSpec(cfg config.ToolsConfig) tools.Spec {
	rockyou := cfg.RockyouPath
	if rockyou == "" {
		rockyou = "/usr/share/wordlists/rockyou.txt"
	}
	return tools.Spec{
		Name:             "hashcat",
		Category:         types.CategoryPassword,
		Description:      "GPU accelerated hash cracking",
		Package:          "hashcat",
		VersionArgs:      []string{"--version"},
		DefaultOperation: "crack",
		Operations: []tools.Operation{
			{
				Name:        "crack",
				Description: "Dictionary attack against a hash file",
				Args: func(target string, options map[string]string) []string {
					mode := options["mode"]
					if mode == "" {
						mode = "0"
					}
					wl := options["wordlist"]
					if wl == "" {
						wl = rockyou
					}
					return []string{"-m", mode, "-a", "0", target, wl, "--potfile-disable", "--quiet"}
				},
				Timeout:     600 * time.Second,
				MaxOutput:   tools.DefaultMaxOutput,
				NeedsTarget: true,
				Parse: func(output string, result *types.ToolResult) {
					result.EntriesFound = countLines(output)
				},
			},
			{
				Name:        "benchmark",
				Description: "Benchmark cracking speed for common hash types",
				Args:        staticArgs("-b", "--quiet"),
				Timeout:     180 * time.Second,
				MaxOutput:   tools.WideMaxOutput,
			},
		},
		Routes: []tools.Route{
			versionRoute(),
			{Keywords: []string{"benchmark", "vitesse", "speed"}, Operation: "benchmark", Action: "benchmark", Example: "hashcat benchmark"},
			{Keywords: []string{"crack", "casse", "cracker"}, Operation: "crack", Action: "crack", Example: "hashcat crack /tmp/hashes.txt"},
			helpRoutes()[0],
			helpRoutes()[1],
		},
		Warning: "Crack only hashes you are authorized to test.",
	}
}

func johnSpec(cfg config.ToolsConfig) tools.Spec {
	rockyou := cfg.RockyouPath
	if rockyou == "" {
		rockyou = "/usr/share/wordlists/rockyou.txt"
	}
	return tools.Spec{
		Name:             "john",
		Category:         types.CategoryPassword,
		Description:      "John the Ripper password cracker",
		Package:          "john",
		DefaultOperation: "crack",
		Operations: []tools.Operation{
			{
				Name:        "crack",
				Description: "Dictionary attack against a hash file",
				Args: func(target string, options map[string]string) []string {
					wl := options["wordlist"]
					if wl == "" {
						wl = rockyou
					}
					return []string{target, "--wordlist=" + wl}
				},
				Timeout:     600 * time.Second,
				MaxOutput:   tools.DefaultMaxOutput,
				NeedsTarget: true,
				Parse: func(output string, result *types.ToolResult) {
					if idx := strings.Index(output, "password hash"); idx >= 0 {
						result.EntriesFound = countLines(output)
					}
				},
			},
			{
				Name:        "show",
				Description: "Show previously cracked passwords",
				Args:        staticArgs("--show"),
				Timeout:     30 * time.Second,
				MaxOutput:   tools.DefaultMaxOutput,
				NeedsTarget: true,
			},
		},
		Routes: []tools.Route{
			versionRoute(),
			{Keywords: []string{"show", "montre", "résultat"}, Operation: "show", Action: "show", Example: "john show /tmp/hashes.txt"},
			{Keywords: []string{"crack", "casse"}, Operation: "crack", Action: "crack", Example: "john crack /tmp/hashes.txt"},
			helpRoutes()[0],
			helpRoutes()[1],
		},
	}
}

func hydraSpec(cfg config.ToolsConfig) tools.Spec {
	rockyou := cfg.RockyouPath
	if rockyou == "" {
		rockyou = "/usr/share/wordlists/rockyou.txt"
	}
	return tools.Spec{
		Name:             "hydra",
		Category:         types.CategoryPassword,
		Description:      "Online login brute forcing",
		Package:          "hydra",
		DefaultOperation: "attack",
		Operations: []tools.Operation{
			{
				Name:        "attack",
				Description: "Password spray one user against a service",
				Args: func(target string, options map[string]string) []string {
					user := options["user"]
					if user == "" {
						user = "root"
					}
					service := options["service"]
					if service == "" {
						service = "ssh"
					}
					wl := options["wordlist"]
					if wl == "" {
						wl = rockyou
					}
					return []string{"-l", user, "-P", wl, "-t", "4", "-f", target, service}
				},
				Timeout:          600 * time.Second,
				MaxOutput:        tools.DefaultMaxOutput,
				NeedsTarget:      true,
				AllowNonzeroExit: true,
				Parse: func(output string, result *types.ToolResult) {
					result.EntriesFound = strings.Count(output, "login:")
				},
			},
		},
		Routes: []tools.Route{
			versionRoute(),
			{Keywords: []string{"brute", "force", "attack", "attaque", "password", "mot de passe"}, Operation: "attack", NeedsTarget: true, Action: "brute_force", Example: "hydra attack 192.168.1.1 service: ssh"},
			helpRoutes()[0],
			helpRoutes()[1],
		},
		Warning: "Online brute forcing locks accounts and trips alarms. Authorized targets only.",
	}
}

func crunchSpec() tools.Spec {
	return tools.Spec{
		Name:             "crunch",
		Category:         types.CategoryPassword,
		Description:      "Generate wordlists from character sets",
		Package:          "crunch",
		DefaultOperation: "generate",
		Operations: []tools.Operation{
			{
				Name:        "generate",
				Description: "Generate candidates of a fixed length range",
				Args: func(target string, options map[string]string) []string {
					min := options["min"]
					if min == "" {
						min = "4"
					}
					max := options["max"]
					if max == "" {
						max = "6"
					}
					args := []string{min, max}
					if charset := options["charset"]; charset != "" {
						args = append(args, charset)
					}
					return args
				},
				Timeout:   20 * time.Second,
				MaxOutput: tools.DefaultMaxOutput,
				Parse: func(output string, result *types.ToolResult) {
					result.EntriesFound = countLines(output)
				},
			},
		},
		Routes: []tools.Route{
			versionRoute(),
			{Keywords: []string{"generate", "génér", "wordlist", "liste"}, Operation: "generate", Action: "generate", Example: "crunch generate min: 4 max: 6"},
			helpRoutes()[0],
			helpRoutes()[1],
		},
		Warning: "Output grows exponentially with length. Keep ranges small.",
	}
}

func hashidSpec() tools.Spec {
	return tools.Spec{
		Name:             "hashid",
		Category:         types.CategoryPassword,
		Description:      "Identify hash algorithm candidates",
		Package:          "hashid",
		DefaultOperation: "identify",
		Operations: []tools.Operation{
			{
				Name:        "identify",
				Description: "List possible algorithms for a hash",
				Args:        staticArgs(),
				Timeout:     10 * time.Second,
				MaxOutput:   tools.DefaultMaxOutput,
				NeedsTarget: true,
				Parse: func(output string, result *types.ToolResult) {
					result.EntriesFound = countPrefixedLines(output, "[+]")
				},
			},
		},
		Routes: []tools.Route{
			versionRoute(),
			{Keywords: []string{"identify", "identifie", "quel hash", "what hash", "type"}, Operation: "identify", NeedsTarget: true, TargetKind: tools.TargetHash, Action: "identify", Example: "identify hash 5f4dcc3b5aa765d61d8327deb882cf99"},
			helpRoutes()[0],
			helpRoutes()[1],
		},
	}
}
