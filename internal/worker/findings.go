package worker

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/CodeMonkeyCybersecurity/sharingan/pkg/types"
)

const maxEvidenceLines = 5

// extractFindings derives findings from a finished run. Severity comes
// from what the output proves: enumeration results are informational,
// an injection point is high, working credentials are critical.
func extractFindings(job *types.Job, result *types.ToolResult) []types.Finding {
	if result == nil || !result.Success {
		return nil
	}

	var findings []types.Finding
	add := func(severity types.Severity, title, evidence string) {
		findings = append(findings, types.Finding{
			ID:       uuid.New().String(),
			ScanID:   job.ID,
			Tool:     job.Tool,
			Severity: severity,
			Title:    title,
			Description: fmt.Sprintf("%s %s against %s",
				job.Tool, job.Operation, job.Target),
			Evidence:  evidence,
			CreatedAt: time.Now(),
		})
	}

	lower := strings.ToLower(result.Output)

	switch job.Tool {
	case "sqlmap":
		if strings.Contains(lower, "vulnerable") || strings.Contains(lower, "injection") {
			add(types.SeverityHigh,
				fmt.Sprintf("SQL injection point on %s", job.Target),
				matchingLines(result.Output, []string{"vulnerable", "injection"}))
		}
	case "hydra":
		if creds := matchingLines(result.Output, []string{"login:"}); creds != "" &&
			strings.Contains(lower, "password:") {
			add(types.SeverityCritical,
				fmt.Sprintf("Valid credentials found on %s", job.Target), creds)
		}
	case "nikto":
		if result.EntriesFound > 0 {
			add(types.SeverityMedium,
				fmt.Sprintf("%d web server issues on %s", result.EntriesFound, job.Target),
				matchingLines(result.Output, []string{"+ "}))
		}
	}

	if result.PortsFound > 0 {
		add(types.SeverityInfo,
			fmt.Sprintf("%d open ports on %s", result.PortsFound, job.Target),
			matchingLines(result.Output, []string{"/tcp", "/udp", "open"}))
	}
	if result.HostsFound > 1 {
		add(types.SeverityInfo,
			fmt.Sprintf("%d live hosts discovered", result.HostsFound), "")
	}
	if result.EntriesFound > 0 && job.Tool != "nikto" {
		add(types.SeverityInfo,
			fmt.Sprintf("%d entries enumerated on %s", result.EntriesFound, job.Target), "")
	}

	return findings
}

// matchingLines collects up to maxEvidenceLines output lines containing
// any of the markers, case insensitively.
func matchingLines(output string, markers []string) string {
	var matched []string
	for _, line := range strings.Split(output, "\n") {
		lower := strings.ToLower(line)
		for _, marker := range markers {
			if strings.Contains(lower, strings.ToLower(marker)) {
				matched = append(matched, strings.TrimSpace(line))
				break
			}
		}
		if len(matched) >= maxEvidenceLines {
			break
		}
	}
	return strings.Join(matched, "\n")
}
