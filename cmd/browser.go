package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/CodeMonkeyCybersecurity/sharingan/internal/browserd"
)

var browserWithBridge bool

var browserCmd = &cobra.Command{
	Use:   "browser",
	Short: "Control the headless browser daemon",
	Long: `The browser daemon drives one headless Chrome on a loopback port.
Start it with "browser serve", drive it with "browser send", or run the
file bridge so legacy scripts that drop command files keep working.`,
}

var browserServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the browser daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		driver, err := browserd.NewChromeDriver(cfg.Browser, log)
		if err != nil {
			return fmt.Errorf("failed to launch browser: %w", err)
		}

		srv := browserd.NewServer(cfg.Browser, driver, log)
		if err := srv.Start(ctx); err != nil {
			driver.Close()
			return err
		}
		fmt.Printf("Browser daemon listening on %s:%d\n", cfg.Browser.Host, srv.Port())

		if browserWithBridge {
			bridge := browserd.NewBridge(cfg.Browser, browserd.NewClient(cfg.Browser), log)
			if err := bridge.Start(ctx); err != nil {
				srv.Shutdown()
				return fmt.Errorf("failed to start legacy bridge: %w", err)
			}
			defer bridge.Stop()
			fmt.Printf("Legacy bridge watching %s\n", cfg.Browser.LegacyCmdFile)
		}

		// The daemon also stops itself when a client sends close.
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
		done := make(chan struct{})
		go func() {
			srv.Wait()
			close(done)
		}()
		select {
		case <-shutdown:
			srv.Shutdown()
		case <-done:
		}
		return nil
	},
}

var browserSendCmd = &cobra.Command{
	Use:   "send <command> [args]",
	Short: "Send one command to the running daemon",
	Long: `Commands:
  info                      current page summary
  navigate <url>            open a page
  screenshot [path]         capture the page
  scroll [up|down] [px]     scroll the page
  js <script>               evaluate javascript
  fill <selector> <value>   set a form field
  click <selector>          click an element
  list [selector]           list interactive elements
  close                     stop the daemon`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := sendBrowserCommand(cmd.Context(), args[0], args[1:])
		if errors.Is(err, browserd.ErrNotRunning) {
			return fmt.Errorf("browser daemon is not running (start it with: sharingan browser serve)")
		}
		if err != nil {
			return err
		}
		if err := resp.Err(); err != nil {
			return err
		}

		if resp.Message != "" {
			fmt.Println(resp.Message)
		}
		if len(resp.Data) > 0 {
			out, err := json.MarshalIndent(resp.Data, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
		}
		return nil
	},
}

var browserBridgeCmd = &cobra.Command{
	Use:   "bridge",
	Short: "Run only the legacy file bridge",
	Long: `Watch the legacy command file and forward drops to a daemon that is
already running, writing results back to the legacy output file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		bridge := browserd.NewBridge(cfg.Browser, browserd.NewClient(cfg.Browser), log)
		if err := bridge.Start(ctx); err != nil {
			return err
		}
		defer bridge.Stop()
		fmt.Printf("Bridge watching %s, forwarding to %s:%d\n",
			cfg.Browser.LegacyCmdFile, cfg.Browser.Host, cfg.Browser.Port)

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
		<-shutdown
		return nil
	},
}

func sendBrowserCommand(ctx context.Context, command string, args []string) (*browserd.Response, error) {
	client := browserd.NewClient(cfg.Browser)

	switch command {
	case "info", "status":
		return client.Info(ctx)
	case "navigate":
		if len(args) < 1 {
			return nil, fmt.Errorf("navigate needs a url")
		}
		return client.Navigate(ctx, args[0])
	case "screenshot":
		path := ""
		if len(args) > 0 {
			path = args[0]
		}
		return client.Screenshot(ctx, path)
	case "scroll":
		direction := "down"
		pixels := 0
		for _, arg := range args {
			if arg == "up" || arg == "down" {
				direction = arg
			} else if n, err := strconv.Atoi(arg); err == nil {
				pixels = n
			} else {
				return nil, fmt.Errorf("scroll takes a direction or a pixel count, got %q", arg)
			}
		}
		return client.Scroll(ctx, pixels, direction)
	case "js":
		if len(args) < 1 {
			return nil, fmt.Errorf("js needs a script")
		}
		return client.Eval(ctx, args[0])
	case "fill":
		if len(args) < 2 {
			return nil, fmt.Errorf("fill needs a selector and a value")
		}
		return client.Fill(ctx, args[0], args[1])
	case "click":
		if len(args) < 1 {
			return nil, fmt.Errorf("click needs a selector")
		}
		return client.Click(ctx, args[0])
	case "list":
		selector := ""
		if len(args) > 0 {
			selector = args[0]
		}
		return client.List(ctx, selector)
	case "close", "stop":
		return client.Close(ctx)
	default:
		return nil, fmt.Errorf("unknown browser command %q", command)
	}
}

func init() {
	browserServeCmd.Flags().BoolVar(&browserWithBridge, "bridge", false, "also run the legacy file bridge")
	browserCmd.AddCommand(browserServeCmd, browserSendCmd, browserBridgeCmd)
	rootCmd.AddCommand(browserCmd)
}
