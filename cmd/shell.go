package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/CodeMonkeyCybersecurity/sharingan/internal/core"
	"github.com/CodeMonkeyCybersecurity/sharingan/internal/genome"
	"github.com/CodeMonkeyCybersecurity/sharingan/internal/nlp"
	"github.com/CodeMonkeyCybersecurity/sharingan/internal/telemetry"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Interactive natural language shell",
	Long: `Start an interactive session. Type queries in French or English;
slash commands control the session:

  /explain   toggle showing the analysis before each run
  /history   show the queries from this session
  /tools     list registered tools and availability
  /exit      leave the shell`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runShell(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(shellCmd)
}

type shellSession struct {
	router   *nlp.Router
	registry core.ToolRegistry
	genome   *genome.Store
	reader   *bufio.Reader
	history  []string
	explain  bool
}

func runShell(ctx context.Context) error {
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

	sess := &shellSession{
		router:   nlp.NewRouter(registry, tel, log),
		registry: registry,
		reader:   bufio.NewReader(os.Stdin),
	}
	if gen, gerr := genome.New(cfg.Genome, log); gerr == nil {
		sess.genome = gen
		defer gen.Close()
	} else {
		log.Warnw("Genome unavailable, instincts disabled", "error", gerr)
	}

	color.New(color.FgRed, color.Bold).Println("sharingan")
	fmt.Println("Type a query, or /exit to leave. /explain toggles analysis.")

	prompt := color.New(color.FgRed).Sprint("sharingan> ")
	for {
		fmt.Print(prompt)
		line, err := sess.reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Println()
				return nil
			}
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if done := sess.handleMeta(line); done {
				return nil
			}
			continue
		}

		sess.history = append(sess.history, line)
		sess.runQuery(ctx, line)
	}
}

// handleMeta executes a slash command; true means leave the shell.
func (s *shellSession) handleMeta(line string) bool {
	switch strings.ToLower(strings.Fields(line)[0]) {
	case "/exit", "/quit":
		fmt.Println("Bye.")
		return true
	case "/explain":
		s.explain = !s.explain
		if s.explain {
			fmt.Println("Explain mode on: the analysis prints before each run.")
		} else {
			fmt.Println("Explain mode off.")
		}
	case "/history":
		if len(s.history) == 0 {
			fmt.Println("No queries yet.")
			break
		}
		for i, q := range s.history {
			fmt.Printf("%3d  %s\n", i+1, q)
		}
	case "/tools":
		for _, tool := range s.registry.List() {
			st := tool.Status()
			fmt.Printf("  %s %-14s %s\n", colorAvailable(st.Available), st.Name, st.Description)
		}
	case "/help":
		fmt.Println("/explain  /history  /tools  /exit")
	default:
		fmt.Printf("Unknown command %q. Try /help.\n", line)
	}
	return false
}

func (s *shellSession) runQuery(ctx context.Context, query string) {
	// Instincts answer before the rule table gets a look.
	if s.genome != nil {
		if instinct, err := s.genome.MatchInstinct(ctx, query); err == nil {
			fmt.Println(color.New(color.FgMagenta).Sprint("⚡ ") + instinct.Response)
			return
		} else if !errors.Is(err, core.ErrNoInstinct) {
			log.Warnw("Instinct lookup failed", "error", err)
		}
	}

	if s.explain {
		printParsed(s.router.Parse(query))
	}

	execCtx, cancel := context.WithTimeout(ctx, cfg.Worker.ScanTimeout)
	defer cancel()

	res, err := s.router.Execute(execCtx, query, cfg.Security.AutoConfirm)
	if errors.Is(err, core.ErrConfirmationRequired) {
		if !confirmRisky(s.reader, res.Parsed) {
			fmt.Println("Aborted.")
			return
		}
		res, err = s.router.Execute(execCtx, query, true)
	}
	if err != nil {
		fmt.Println(color.New(color.FgRed).Sprint("✗ ") + err.Error())
		if res != nil && res.Parsed != nil && len(res.Parsed.Suggestions) > 0 {
			for _, hint := range res.Parsed.Suggestions {
				fmt.Printf("  Hint: %s\n", hint)
			}
		}
		return
	}

	// No tool matched; show the analysis instead of silence.
	if res.Result == nil {
		if !s.explain {
			printParsed(res.Parsed)
		}
		return
	}

	printToolResult(res.Result)
}
