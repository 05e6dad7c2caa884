package tools

import (
	"time"

	"github.com/CodeMonkeyCybersecurity/sharingan/pkg/types"
)

// Spec declares everything the engine needs to wrap one binary: how to
// probe it, which operations it supports, and how natural language
// queries route to those operations. Tools are data, not code.
type Spec struct {
	Name        string
	Binary      string
	Category    types.ToolCategory
	Description string

	// Package is the apt package that provides the binary, used by
	// install suggestions when the probe fails.
	Package string

	RequiresRoot bool

	// VersionArgs invokes the binary for a version banner. Empty means
	// the tool has no safe version flag and Version returns "unknown".
	VersionArgs  []string
	ParseVersion func(output string) string

	Operations []Operation

	// DefaultOperation runs when a query matches the tool but no route.
	DefaultOperation string

	Routes []Route

	Warning       string
	UsageExamples []string
}

// Operation is one way of running the binary. Args builds the argv tail
// from the target and options so specs stay declarative without string
// templating.
type Operation struct {
	Name        string
	Description string
	Args        func(target string, options map[string]string) []string
	Timeout     time.Duration
	MaxOutput   int

	// RequiresRoot marks operations that need raw sockets or interface
	// changes even when the tool itself usually does not.
	RequiresRoot bool

	// AllowNonzeroExit keeps the result successful on a nonzero exit,
	// for tools like fping and dirb that exit nonzero on partial results.
	AllowNonzeroExit bool

	// NeedsTarget rejects invocations without a target before exec.
	NeedsTarget bool

	Parse func(output string, result *types.ToolResult)
}

// Route maps natural language keywords to an operation. Routes are
// evaluated in declaration order and the first match wins, so narrower
// phrases must be declared before broader ones.
type Route struct {
	// Keywords match case-insensitively as substrings; any hit fires.
	Keywords []string

	Operation string

	// NeedsTarget makes the router extract a target from the query and
	// answer with an example when none is found.
	NeedsTarget bool

	// TargetKind selects the extractor: TargetHost (default), TargetURL
	// for web tools, TargetHash for hash identifiers.
	TargetKind TargetKind

	// Action names the route in query results ("quick_scan", "help").
	Action string

	Example string
}

// TargetKind names what a route extracts from the query text.
type TargetKind int

const (
	TargetHost TargetKind = iota
	TargetURL
	TargetHash
	TargetTerm
)

const (
	// DefaultMaxOutput caps captured output for most operations.
	DefaultMaxOutput = 2000

	// WideMaxOutput caps output for verbose operations like full scans.
	WideMaxOutput = 5000

	// QueryMaxOutput caps output embedded in natural language answers.
	QueryMaxOutput = 500
)

func (s Spec) binary() string {
	if s.Binary != "" {
		return s.Binary
	}
	return s.Name
}

func (s Spec) operation(name string) (Operation, bool) {
	for _, op := range s.Operations {
		if op.Name == name {
			return op, true
		}
	}
	return Operation{}, false
}

func (s Spec) operationNames() []string {
	names := make([]string, 0, len(s.Operations))
	for _, op := range s.Operations {
		names = append(names, op.Name)
	}
	return names
}
