package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/CodeMonkeyCybersecurity/sharingan/internal/core"
	"github.com/CodeMonkeyCybersecurity/sharingan/internal/credentials"
	"github.com/CodeMonkeyCybersecurity/sharingan/internal/genome"
	"github.com/CodeMonkeyCybersecurity/sharingan/internal/nlp"
	"github.com/CodeMonkeyCybersecurity/sharingan/internal/telemetry"
)

var askExplain bool

var askCmd = &cobra.Command{
	Use:   "ask \"<query>\"",
	Short: "Run a natural language query (French or English)",
	Long: `Route a natural language query to the matching security tool.

Instincts learned in the genome answer first; otherwise the query goes
through the rule table. Risky commands ask for confirmation unless
--yes is set.

Examples:
  sharingan ask "scan ports on 192.168.1.1"
  sharingan ask "qui est example.com"
  sharingan ask --explain "brute force ssh on 10.0.0.5"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAsk(cmd.Context(), args[0])
	},
}

func init() {
	askCmd.Flags().BoolVar(&askExplain, "explain", false, "show the analysis without executing")
	rootCmd.AddCommand(askCmd)
}

func runAsk(ctx context.Context, query string) error {
	limiter := buildLimiter(cfg)
	registry, err := buildRegistry(cfg, limiter)
	if err != nil {
		return err
	}

	tel, err := telemetry.New(ctx, cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer tel.Close()

	router := nlp.NewRouter(registry, tel, log)

	if askExplain {
		printParsed(router.Parse(query))
		return nil
	}

	// Instincts answer before the rule table gets a look.
	if gen, err := genome.New(cfg.Genome, log); err == nil {
		defer gen.Close()
		if instinct, merr := gen.MatchInstinct(ctx, query); merr == nil {
			fmt.Println(color.New(color.FgMagenta).Sprint("⚡ ") + instinct.Response)
			return nil
		} else if !errors.Is(merr, core.ErrNoInstinct) {
			log.Warnw("Instinct lookup failed", "error", merr)
		}
	}

	execCtx, cancel := context.WithTimeout(ctx, cfg.Worker.ScanTimeout)
	defer cancel()

	res, err := router.Execute(execCtx, query, cfg.Security.AutoConfirm)
	if errors.Is(err, core.ErrConfirmationRequired) {
		if !confirmRisky(bufio.NewReader(os.Stdin), res.Parsed) {
			fmt.Println("Aborted.")
			return nil
		}
		res, err = router.Execute(execCtx, query, true)
	}
	if err != nil {
		if res != nil && res.Parsed != nil {
			printParsed(res.Parsed)
		}
		return err
	}

	// No tool matched; the analysis carries the warnings and hints.
	if res.Result == nil {
		printParsed(res.Parsed)
		return nil
	}

	printToolResult(res.Result)
	return nil
}

// confirmRisky shows the analysis and asks before running a command the
// router flagged. Non-interactive runs refuse instead of hanging. The
// caller supplies its stdin reader so buffered shell input is not lost.
func confirmRisky(reader *bufio.Reader, parsed *nlp.ParsedCommand) bool {
	if parsed != nil {
		printParsed(parsed)
	}
	if !credentials.IsInteractive() {
		fmt.Println(color.New(color.FgYellow).Sprint("Confirmation required; re-run with --yes."))
		return false
	}
	fmt.Printf("%s Run this command? [y/N] ", color.New(color.FgYellow).Sprint("⚠"))
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes" || answer == "o" || answer == "oui"
}
