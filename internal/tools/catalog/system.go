package catalog

import (
	"strings"
	"time"

	"github.com/CodeMonkeyCybersecurity/sharingan/internal/config"
	"github.com/CodeMonkeyCybersecurity/sharingan/internal/tools"
	"github.com/CodeMonkeyCybersecurity/sharingan/pkg/types"
)

// SystemSpecs covers local analysis and SMB/RPC enumeration tools.
// File based tools (strings, xxd, strace) take explicit paths, so their
// query routes answer with usage rather than guessing a file.
func SystemSpecs(cfg config.ToolsConfig) []tools.Spec {
	return []tools.Spec{
		stringsSpec(),
		xxdSpec(),
		straceSpec(),
		macchangerSpec(cfg),
		smbmapSpec(),
		rpcclientSpec(),
		unameSpec(),
		netstatSpec(),
	}
}

func stringsSpec() tools.Spec {
	return tools.Spec{
		Name:             "strings",
		Category:         types.CategoryForensic,
		Description:      "Extract printable strings from binaries",
		Package:          "binutils",
		VersionArgs:      []string{"--version"},
		DefaultOperation: "extract",
		Operations: []tools.Operation{
			{
				Name:        "extract",
				Description: "Printable sequences of 6+ characters",
				Args:        staticArgs("-n", "6"),
				Timeout:     30 * time.Second,
				MaxOutput:   tools.WideMaxOutput,
				NeedsTarget: true,
				Parse: func(output string, result *types.ToolResult) {
					result.EntriesFound = countLines(output)
				},
			},
		},
		Routes: []tools.Route{
			versionRoute(),
			{Keywords: []string{"extract", "chaînes", "strings", "texte"}, Operation: "extract", Action: "extract", Example: "strings extract /usr/bin/true"},
			helpRoutes()[0],
			helpRoutes()[1],
		},
	}
}

func xxdSpec() tools.Spec {
	return tools.Spec{
		Name:             "xxd",
		Category:         types.CategoryForensic,
		Description:      "Hex dump of a file",
		Package:          "xxd",
		DefaultOperation: "dump",
		Operations: []tools.Operation{
			{
				Name:        "dump",
				Description: "Hex dump of the first 256 bytes",
				Args:        staticArgs("-l", "256"),
				Timeout:     15 * time.Second,
				MaxOutput:   tools.DefaultMaxOutput,
				NeedsTarget: true,
			},
		},
		Routes: []tools.Route{
			versionRoute(),
			{Keywords: []string{"hex", "dump", "hexadécimal"}, Operation: "dump", Action: "dump", Example: "xxd dump /tmp/file.bin"},
			helpRoutes()[0],
			helpRoutes()[1],
		},
	}
}

func straceSpec() tools.Spec {
	return tools.Spec{
		Name:             "strace",
		Category:         types.CategorySystem,
		Description:      "Trace system calls of a running process",
		Package:          "strace",
		RequiresRoot:     true,
		VersionArgs:      []string{"-V"},
		DefaultOperation: "attach",
		Operations: []tools.Operation{
			{
				Name:        "attach",
				Description: "Attach to a PID and summarize syscalls",
				Args: func(target string, _ map[string]string) []string {
					return []string{"-c", "-p", target}
				},
				Timeout:      15 * time.Second,
				MaxOutput:    tools.WideMaxOutput,
				RequiresRoot: true,
				NeedsTarget:  true,
				// strace exits nonzero when detached by the timeout.
				AllowNonzeroExit: true,
			},
		},
		Routes: []tools.Route{
			versionRoute(),
			{Keywords: []string{"trace", "syscall", "appels système"}, Operation: "attach", Action: "trace", Example: "strace attach 1234"},
			helpRoutes()[0],
			helpRoutes()[1],
		},
		Warning: "Attaching to a process pauses it briefly. Requires root.",
	}
}

func macchangerSpec(cfg config.ToolsConfig) tools.Spec {
	iface := cfg.DefaultIface
	if iface == "" {
		iface = "eth0"
	}
	return tools.Spec{
		Name:             "macchanger",
		Category:         types.CategoryWireless,
		Description:      "Show or randomize the MAC address of an interface",
		Package:          "macchanger",
		RequiresRoot:     true,
		VersionArgs:      []string{"--version"},
		DefaultOperation: "show",
		Operations: []tools.Operation{
			{
				Name:        "show",
				Description: "Show the current and permanent MAC",
				Args: func(target string, _ map[string]string) []string {
					if target == "" {
						target = iface
					}
					return []string{"-s", target}
				},
				Timeout:   10 * time.Second,
				MaxOutput: tools.DefaultMaxOutput,
			},
			{
				Name:        "random",
				Description: "Set a random MAC",
				Args: func(target string, _ map[string]string) []string {
					if target == "" {
						target = iface
					}
					return []string{"-r", target}
				},
				Timeout:      10 * time.Second,
				MaxOutput:    tools.DefaultMaxOutput,
				RequiresRoot: true,
			},
		},
		Routes: []tools.Route{
			versionRoute(),
			{Keywords: []string{"random", "aléatoire", "change", "spoof"}, Operation: "random", Action: "randomize", Example: "randomize mac of eth0"},
			{Keywords: []string{"show", "montre", "mac"}, Operation: "show", Action: "show", Example: "show mac of eth0"},
			helpRoutes()[0],
			helpRoutes()[1],
		},
		Warning: "Changing the MAC drops the link. Requires root.",
	}
}

func smbmapSpec() tools.Spec {
	return tools.Spec{
		Name:             "smbmap",
		Category:         types.CategoryRecon,
		Description:      "SMB share enumeration",
		Package:          "smbmap",
		DefaultOperation: "shares",
		Operations: []tools.Operation{
			{
				Name:        "shares",
				Description: "List shares as the null user",
				Args: func(target string, _ map[string]string) []string {
					return []string{"-H", target}
				},
				Timeout:          60 * time.Second,
				MaxOutput:        tools.DefaultMaxOutput,
				NeedsTarget:      true,
				AllowNonzeroExit: true,
				Parse: func(output string, result *types.ToolResult) {
					result.EntriesFound = strings.Count(output, "Disk")
				},
			},
		},
		Routes: []tools.Route{
			versionRoute(),
			{Keywords: []string{"share", "partage", "smb", "samba"}, Operation: "shares", NeedsTarget: true, Action: "share_enum", Example: "list smb shares of 192.168.1.10"},
			helpRoutes()[0],
			helpRoutes()[1],
		},
	}
}

func rpcclientSpec() tools.Spec {
	return tools.Spec{
		Name:             "rpcclient",
		Category:         types.CategoryRecon,
		Description:      "MSRPC enumeration against Windows hosts",
		Package:          "samba-common-bin",
		DefaultOperation: "users",
		Operations: []tools.Operation{
			{
				Name:        "users",
				Description: "Enumerate domain users over a null session",
				Args: func(target string, _ map[string]string) []string {
					return []string{"-U", "", "-N", target, "-c", "enumdomusers"}
				},
				Timeout:          60 * time.Second,
				MaxOutput:        tools.DefaultMaxOutput,
				NeedsTarget:      true,
				AllowNonzeroExit: true,
				Parse: func(output string, result *types.ToolResult) {
					result.EntriesFound = strings.Count(output, "user:")
				},
			},
		},
		Routes: []tools.Route{
			versionRoute(),
			{Keywords: []string{"user", "utilisateur", "rpc", "null session"}, Operation: "users", NeedsTarget: true, Action: "user_enum", Example: "enumerate users of 192.168.1.10"},
			helpRoutes()[0],
			helpRoutes()[1],
		},
	}
}

func unameSpec() tools.Spec {
	return tools.Spec{
		Name:             "uname",
		Category:         types.CategorySystem,
		Description:      "Local kernel and architecture information",
		Package:          "coreutils",
		DefaultOperation: "info",
		Operations: []tools.Operation{
			{
				Name:        "info",
				Description: "Full kernel identification",
				Args:        staticArgs("-a"),
				Timeout:     5 * time.Second,
				MaxOutput:   tools.DefaultMaxOutput,
			},
		},
		Routes: []tools.Route{
			{Keywords: []string{"kernel", "noyau", "system", "système", "machine"}, Operation: "info", Action: "kernel_info", Example: "show kernel info"},
			helpRoutes()[0],
			helpRoutes()[1],
		},
	}
}

func netstatSpec() tools.Spec {
	return tools.Spec{
		Name:             "netstat",
		Category:         types.CategorySystem,
		Description:      "Local sockets and listening services",
		Package:          "net-tools",
		DefaultOperation: "listening",
		Operations: []tools.Operation{
			{
				Name:        "listening",
				Description: "TCP sockets in LISTEN state",
				Args:        staticArgs("-tln"),
				Timeout:     10 * time.Second,
				MaxOutput:   tools.DefaultMaxOutput,
				Parse: func(output string, result *types.ToolResult) {
					result.PortsFound = strings.Count(output, "LISTEN")
				},
			},
			{
				Name:        "connections",
				Description: "Established TCP and UDP connections",
				Args:        staticArgs("-tun"),
				Timeout:     10 * time.Second,
				MaxOutput:   tools.WideMaxOutput,
				Parse: func(output string, result *types.ToolResult) {
					result.EntriesFound = strings.Count(output, "ESTABLISHED")
				},
			},
		},
		Routes: []tools.Route{
			versionRoute(),
			{Keywords: []string{"listen", "écoute", "port ouvert", "open port"}, Operation: "listening", Action: "listening", Example: "show listening ports"},
			{Keywords: []string{"connection", "connexion", "established"}, Operation: "connections", Action: "connections", Example: "show active connections"},
			helpRoutes()[0],
			helpRoutes()[1],
		},
	}
}
