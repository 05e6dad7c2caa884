package detector

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Report writes a colored summary of the last scan.
func (d *Detector) Report(w io.Writer) {
	summary := d.Summary()

	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)

	fmt.Fprintln(w, strings.Repeat("=", 60))
	bold.Fprintln(w, "  TOOL DETECTION REPORT")
	fmt.Fprintln(w, strings.Repeat("=", 60))
	if !summary.ScanTime.IsZero() {
		fmt.Fprintf(w, "Scan time:  %s\n", summary.ScanTime.Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintf(w, "Installed:  %s\n",
		green.Sprintf("%d/%d", summary.TotalInstalled, summary.TotalScanned))
	fmt.Fprintf(w, "Categories: %s\n\n", strings.Join(summary.CategoriesFound, ", "))

	d.mu.Lock()
	detected := d.detected
	d.mu.Unlock()

	for _, category := range categoryOrder {
		names := summary.ToolsByCategory[category]
		if len(names) == 0 {
			continue
		}
		bold.Fprintf(w, "%s (%d)\n", strings.ToUpper(strings.ReplaceAll(category, "_", " ")), len(names))
		for _, name := range names {
			fmt.Fprintf(w, "  %s %-16s %s\n", green.Sprint("✓"), name, detected[name].Path)
		}
		fmt.Fprintln(w)
	}

	if len(summary.NotInstalled) > 0 {
		red.Fprintf(w, "Not installed (%d): ", len(summary.NotInstalled))
		fmt.Fprintln(w, strings.Join(summary.NotInstalled, ", "))
	}
}
