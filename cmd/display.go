package cmd

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/CodeMonkeyCybersecurity/sharingan/internal/nlp"
	"github.com/CodeMonkeyCybersecurity/sharingan/pkg/types"
)

func colorRisk(risk types.RiskLevel) string {
	switch risk {
	case types.RiskSafe, types.RiskLow:
		return color.New(color.FgGreen).Sprint(risk.String())
	case types.RiskMedium:
		return color.New(color.FgYellow).Sprint(risk.String())
	case types.RiskHigh, types.RiskCritical:
		return color.New(color.FgRed, color.Bold).Sprint(risk.String())
	default:
		return risk.String()
	}
}

func colorScanStatus(status types.ScanStatus) string {
	switch status {
	case types.ScanStatusCompleted:
		return color.New(color.FgGreen).Sprint("✓ " + string(status))
	case types.ScanStatusRunning, types.ScanStatusPending:
		return color.New(color.FgYellow).Sprint("⟳ " + string(status))
	case types.ScanStatusFailed, types.ScanStatusCancelled:
		return color.New(color.FgRed).Sprint("✗ " + string(status))
	default:
		return string(status)
	}
}

func colorAvailable(available bool) string {
	if available {
		return color.New(color.FgGreen).Sprint("✓")
	}
	return color.New(color.FgRed).Sprint("✗")
}

// printParsed renders the router's analysis of a query, used by
// ask --explain and the shell's /explain mode.
func printParsed(parsed *nlp.ParsedCommand) {
	bold := color.New(color.Bold)

	bold.Println("Analysis")
	fmt.Printf("  Category:   %s\n", parsed.Category)
	fmt.Printf("  Risk:       %s\n", colorRisk(parsed.Risk))
	fmt.Printf("  Confidence: %.0f%%\n", parsed.Confidence*100)
	if parsed.Tool != "" {
		fmt.Printf("  Tool:       %s\n", parsed.Tool)
	}
	if parsed.Operation != "" {
		fmt.Printf("  Operation:  %s\n", parsed.Operation)
	}
	if parsed.Target != "" {
		fmt.Printf("  Target:     %s\n", parsed.Target)
	}
	if len(parsed.Options) > 0 {
		fmt.Printf("  Options:    %s\n", formatOptions(parsed.Options))
	}
	if parsed.FinalCommand != "" {
		fmt.Printf("  Command:    %s\n", color.New(color.FgCyan).Sprint(parsed.FinalCommand))
	}
	for _, w := range parsed.Warnings {
		fmt.Printf("  %s %s\n", color.New(color.FgYellow).Sprint("⚠"), w)
	}
	for _, s := range parsed.Suggestions {
		fmt.Printf("  Hint: %s\n", s)
	}
}

// printToolResult renders one tool run: the command line, the counters
// the parser extracted and the raw output.
func printToolResult(res *types.ToolResult) {
	if res == nil {
		return
	}

	status := color.New(color.FgGreen).Sprint("✓ success")
	if !res.Success {
		status = color.New(color.FgRed).Sprint("✗ failed")
	}
	fmt.Printf("\n%s  %s %s (%s)\n", status, res.Tool, res.Operation, res.Duration.Round(time.Millisecond))
	if res.Command != "" {
		fmt.Printf("  $ %s\n", color.New(color.FgCyan).Sprint(res.Command))
	}
	if res.Error != "" {
		fmt.Printf("  %s\n", color.New(color.FgRed).Sprint(res.Error))
	}

	var counters []string
	if res.HostsFound > 0 {
		counters = append(counters, fmt.Sprintf("%d hosts", res.HostsFound))
	}
	if res.PortsFound > 0 {
		counters = append(counters, fmt.Sprintf("%d ports", res.PortsFound))
	}
	if res.EntriesFound > 0 {
		counters = append(counters, fmt.Sprintf("%d entries", res.EntriesFound))
	}
	if len(counters) > 0 {
		fmt.Printf("  Found: %s\n", strings.Join(counters, ", "))
	}

	if res.Output != "" {
		fmt.Println()
		fmt.Println(res.Output)
		if res.Truncated {
			fmt.Println(color.New(color.Faint).Sprint("(output truncated)"))
		}
	}
}

func formatOptions(options map[string]string) string {
	parts := make([]string, 0, len(options))
	for k, v := range options {
		parts = append(parts, k+"="+v)
	}
	sort.Strings(parts)
	return strings.Join(parts, " ")
}
