package catalog

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/CodeMonkeyCybersecurity/sharingan/internal/tools"
	"github.com/CodeMonkeyCybersecurity/sharingan/pkg/types"
)

// Custom tools are declared in YAML so new wrappers do not need a
// rebuild. Argument lists use {{target}} and {{name|default}}
// placeholders resolved from the invocation options.
type customFile struct {
	Tools []customTool `yaml:"tools"`
}

type customTool struct {
	Name             string            `yaml:"name"`
	Binary           string            `yaml:"binary"`
	Category         string            `yaml:"category"`
	Description      string            `yaml:"description"`
	Package          string            `yaml:"package"`
	RequiresRoot     bool              `yaml:"requires_root"`
	VersionArgs      []string          `yaml:"version_args"`
	DefaultOperation string            `yaml:"default_operation"`
	Warning          string            `yaml:"warning"`
	UsageExamples    []string          `yaml:"usage_examples"`
	Operations       []customOperation `yaml:"operations"`
	Routes           []customRoute     `yaml:"routes"`
}

type customOperation struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Args        []string `yaml:"args"`

	// Timeout is a duration string like "90s"; yaml.v3 cannot decode
	// time.Duration directly.
	Timeout string `yaml:"timeout"`

	MaxOutput        int  `yaml:"max_output"`
	RequiresRoot     bool `yaml:"requires_root"`
	NeedsTarget      bool `yaml:"needs_target"`
	AllowNonzeroExit bool `yaml:"allow_nonzero_exit"`

	// CountMarker counts occurrences of a substring into entries_found.
	CountMarker string `yaml:"count_marker"`
}

type customRoute struct {
	Keywords    []string `yaml:"keywords"`
	Operation   string   `yaml:"operation"`
	NeedsTarget bool     `yaml:"needs_target"`
	TargetKind  string   `yaml:"target_kind"`
	Action      string   `yaml:"action"`
	Example     string   `yaml:"example"`
}

// LoadCustom reads tool definitions from a YAML file. A missing file is
// not an error; running without custom tools is the common case.
func LoadCustom(path string) ([]tools.Spec, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read tool definitions: %w", err)
	}

	var file customFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse tool definitions: %w", err)
	}

	specs := make([]tools.Spec, 0, len(file.Tools))
	for _, ct := range file.Tools {
		spec, err := ct.toSpec()
		if err != nil {
			return nil, fmt.Errorf("tool %q: %w", ct.Name, err)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func (ct customTool) toSpec() (tools.Spec, error) {
	if ct.Name == "" {
		return tools.Spec{}, fmt.Errorf("missing name")
	}
	if len(ct.Operations) == 0 {
		return tools.Spec{}, fmt.Errorf("no operations defined")
	}

	spec := tools.Spec{
		Name:             ct.Name,
		Binary:           ct.Binary,
		Category:         parseCategory(ct.Category),
		Description:      ct.Description,
		Package:          ct.Package,
		RequiresRoot:     ct.RequiresRoot,
		VersionArgs:      ct.VersionArgs,
		DefaultOperation: ct.DefaultOperation,
		Warning:          ct.Warning,
		UsageExamples:    ct.UsageExamples,
	}
	if spec.DefaultOperation == "" {
		spec.DefaultOperation = ct.Operations[0].Name
	}

	for _, co := range ct.Operations {
		timeout := 60 * time.Second
		if co.Timeout != "" {
			parsed, err := time.ParseDuration(co.Timeout)
			if err != nil {
				return tools.Spec{}, fmt.Errorf("operation %q: bad timeout %q", co.Name, co.Timeout)
			}
			timeout = parsed
		}

		op := tools.Operation{
			Name:             co.Name,
			Description:      co.Description,
			Args:             templateArgs(co.Args),
			Timeout:          timeout,
			MaxOutput:        co.MaxOutput,
			RequiresRoot:     co.RequiresRoot,
			NeedsTarget:      co.NeedsTarget,
			AllowNonzeroExit: co.AllowNonzeroExit,
		}
		if marker := co.CountMarker; marker != "" {
			op.Parse = func(output string, result *types.ToolResult) {
				result.EntriesFound = strings.Count(output, marker)
			}
		}
		spec.Operations = append(spec.Operations, op)
	}

	for _, cr := range ct.Routes {
		spec.Routes = append(spec.Routes, tools.Route{
			Keywords:    cr.Keywords,
			Operation:   cr.Operation,
			NeedsTarget: cr.NeedsTarget,
			TargetKind:  parseTargetKind(cr.TargetKind),
			Action:      cr.Action,
			Example:     cr.Example,
		})
	}
	spec.Routes = append(spec.Routes, helpRoutes()...)

	return spec, nil
}

// templateArgs resolves {{target}} and {{key|default}} placeholders.
// Arguments that resolve to an empty string are dropped.
func templateArgs(templates []string) func(string, map[string]string) []string {
	return func(target string, options map[string]string) []string {
		args := make([]string, 0, len(templates))
		for _, tmpl := range templates {
			arg := resolvePlaceholders(tmpl, target, options)
			if arg != "" {
				args = append(args, arg)
			}
		}
		return args
	}
}

func resolvePlaceholders(tmpl, target string, options map[string]string) string {
	out := tmpl
	for {
		start := strings.Index(out, "{{")
		if start < 0 {
			return out
		}
		end := strings.Index(out[start:], "}}")
		if end < 0 {
			return out
		}
		end += start

		key := out[start+2 : end]
		fallback := ""
		if idx := strings.IndexByte(key, '|'); idx >= 0 {
			fallback = key[idx+1:]
			key = key[:idx]
		}

		var value string
		if key == "target" {
			value = target
		} else {
			value = options[key]
		}
		if value == "" {
			value = fallback
		}

		out = out[:start] + value + out[end+2:]
	}
}

func parseCategory(s string) types.ToolCategory {
	switch strings.ToLower(s) {
	case "network":
		return types.CategoryNetwork
	case "web":
		return types.CategoryWeb
	case "password":
		return types.CategoryPassword
	case "recon":
		return types.CategoryRecon
	case "exploitation":
		return types.CategoryExploitation
	case "forensic":
		return types.CategoryForensic
	case "wireless":
		return types.CategoryWireless
	default:
		return types.CategorySystem
	}
}

func parseTargetKind(s string) tools.TargetKind {
	switch strings.ToLower(s) {
	case "url":
		return tools.TargetURL
	case "hash":
		return tools.TargetHash
	case "term":
		return tools.TargetTerm
	default:
		return tools.TargetHost
	}
}
