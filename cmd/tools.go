package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/CodeMonkeyCybersecurity/sharingan/internal/detector"
)

var toolsJSON bool

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "Inspect the tool registry and what is installed",
}

var toolsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered tools and their availability",
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := buildRegistry(cfg, buildLimiter(cfg))
		if err != nil {
			return err
		}

		bold := color.New(color.Bold)
		bold.Printf("%-3s %-14s %-12s %s\n", "", "TOOL", "CATEGORY", "DESCRIPTION")
		for _, tool := range registry.List() {
			st := tool.Status()
			fmt.Printf("%-3s %-14s %-12s %s\n", colorAvailable(st.Available), st.Name, st.Category, st.Description)
		}
		return nil
	},
}

var toolsDetectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Scan PATH for known security tools",
	RunE: func(cmd *cobra.Command, args []string) error {
		det := detector.New(log)
		det.ScanAll()

		if toolsJSON {
			out, err := det.JSON()
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		}

		summary := det.Summary()
		if det.IsKali() {
			fmt.Println(color.New(color.FgMagenta).Sprint("Kali Linux detected"))
		}
		fmt.Printf("Scanned %d tools, %d installed\n\n", summary.TotalScanned, summary.TotalInstalled)

		installed := det.Installed()
		categories := make([]string, 0, len(summary.ToolsByCategory))
		for category := range summary.ToolsByCategory {
			categories = append(categories, category)
		}
		sort.Strings(categories)
		for _, category := range categories {
			color.New(color.Bold).Println(category)
			for _, name := range summary.ToolsByCategory[category] {
				fmt.Printf("  %s %-16s %s\n", colorAvailable(true), name, installed[name].Path)
			}
		}

		if len(summary.NotInstalled) > 0 {
			fmt.Printf("\nNot installed: %s\n", strings.Join(summary.NotInstalled, ", "))
		}
		return nil
	},
}

var toolsInfoCmd = &cobra.Command{
	Use:   "info <tool>",
	Short: "Show one tool's operations, warnings and examples",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := buildRegistry(cfg, buildLimiter(cfg))
		if err != nil {
			return err
		}
		tool, err := registry.Get(args[0])
		if err != nil {
			return err
		}

		st := tool.Status()
		color.New(color.Bold).Println(st.Name)
		fmt.Printf("  Available: %s\n", colorAvailable(st.Available))
		fmt.Printf("  Category:  %s\n", st.Category)
		if st.Description != "" {
			fmt.Printf("  About:     %s\n", st.Description)
		}
		if !st.Available && st.Package != "" {
			fmt.Printf("  Install:   apt install %s\n", st.Package)
		}
		if st.RequiresRoot {
			fmt.Printf("  %s\n", color.New(color.FgYellow).Sprint("Requires root"))
		}
		if st.Warning != "" {
			fmt.Printf("  %s %s\n", color.New(color.FgRed).Sprint("⚠"), st.Warning)
		}
		if len(st.Modes) > 0 {
			fmt.Printf("  Modes:     %s\n", strings.Join(st.Modes, ", "))
		}
		if len(st.SupportedQueries) > 0 {
			fmt.Println("  Understands:")
			for _, q := range st.SupportedQueries {
				fmt.Printf("    - %s\n", q)
			}
		}
		if len(st.UsageExamples) > 0 {
			fmt.Println("  Examples:")
			for _, ex := range st.UsageExamples {
				fmt.Printf("    $ %s\n", ex)
			}
		}
		return nil
	},
}

var toolsReportCmd = &cobra.Command{
	Use:   "report",
	Short: "Full readiness report: registry versus what is on PATH",
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := buildRegistry(cfg, buildLimiter(cfg))
		if err != nil {
			return err
		}
		det := detector.New(log)
		det.ScanAll()
		summary := det.Summary()

		color.New(color.Bold).Println("Sharingan readiness report")
		if det.IsKali() {
			fmt.Println("  Platform: Kali Linux")
		}
		fmt.Printf("  Registered tools: %d\n", len(registry.Names()))
		fmt.Printf("  On PATH: %d of %d known binaries\n\n", summary.TotalInstalled, summary.TotalScanned)

		var missing []string
		for _, tool := range registry.List() {
			st := tool.Status()
			if !st.Available {
				suggestion := st.Name
				if st.Package != "" {
					suggestion = st.Package
				}
				missing = append(missing, suggestion)
			}
		}
		if len(missing) == 0 {
			fmt.Println(color.New(color.FgGreen).Sprint("✓ Every registered tool is ready."))
			return nil
		}
		sort.Strings(missing)
		fmt.Println("Missing packages:")
		fmt.Printf("  apt install %s\n", strings.Join(missing, " "))
		return nil
	},
}

func init() {
	toolsDetectCmd.Flags().BoolVar(&toolsJSON, "json", false, "print the raw detection result as JSON")
	toolsCmd.AddCommand(toolsListCmd, toolsDetectCmd, toolsInfoCmd, toolsReportCmd)
	rootCmd.AddCommand(toolsCmd)
}
