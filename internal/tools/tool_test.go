package tools

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CodeMonkeyCybersecurity/sharingan/internal/config"
	"github.com/CodeMonkeyCybersecurity/sharingan/internal/core"
	"github.com/CodeMonkeyCybersecurity/sharingan/pkg/types"
)

func testSpec() Spec {
	return Spec{
		Name:        "portprobe",
		Binary:      "portprobe",
		Category:    types.CategoryNetwork,
		Description: "Probe open ports on a host",
		VersionArgs: []string{"--version"},
		Operations: []Operation{
			{
				Name:        "quick",
				Description: "Fast probe of common ports",
				Args: func(target string, options map[string]string) []string {
					return []string{"-F", target}
				},
				Timeout:     5 * time.Second,
				MaxOutput:   DefaultMaxOutput,
				NeedsTarget: true,
				Parse: func(output string, result *types.ToolResult) {
					result.PortsFound = strings.Count(output, "open")
				},
			},
			{
				Name:        "sweep",
				Description: "Ping sweep without port probing",
				Args: func(target string, options map[string]string) []string {
					return []string{"-sn", target}
				},
				Timeout:          5 * time.Second,
				NeedsTarget:      true,
				AllowNonzeroExit: true,
			},
		},
		DefaultOperation: "quick",
		Routes: []Route{
			{Keywords: []string{"quick", "rapide"}, Operation: "quick", NeedsTarget: true, Action: "quick_scan", Example: "quick scan of 10.0.0.1"},
			{Keywords: []string{"sweep", "découverte"}, Operation: "sweep", NeedsTarget: true, Action: "sweep", Example: "sweep 192.168.1.0/24"},
			{Keywords: []string{"help", "aide"}, Operation: "help", Action: "help"},
			{Keywords: []string{"version"}, Operation: "version", Action: "version"},
		},
		UsageExamples: []string{"quick scan of 10.0.0.1"},
	}
}

func testTool(t *testing.T, script string) *Tool {
	t.Helper()
	runner := NewRunner(config.ToolsConfig{}, testLogger(t))
	runner.SetLookPath(func(file string) (string, error) {
		return "/usr/bin/" + file, nil
	})
	runner.SetStartCommand(fakeCommand(script))
	return NewTool(testSpec(), runner, testLogger(t))
}

func TestTool_Run(t *testing.T) {
	tool := testTool(t, `printf '22/tcp open ssh\n80/tcp open http\n443/tcp closed https\n'`)

	result, err := tool.Run(context.Background(), "quick", "10.0.0.1", nil)
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, "portprobe", result.Tool)
	assert.Equal(t, "quick", result.Operation)
	assert.Equal(t, "10.0.0.1", result.Target)
	assert.Equal(t, "/usr/bin/portprobe -F 10.0.0.1", result.Command)
	assert.Equal(t, 2, result.PortsFound)
	assert.Empty(t, result.Error)
}

func TestTool_Run_DefaultOperation(t *testing.T) {
	tool := testTool(t, `printf 'no ports\n'`)

	result, err := tool.Run(context.Background(), "", "10.0.0.1", nil)
	require.NoError(t, err)
	assert.Equal(t, "quick", result.Operation)
}

func TestTool_Run_UnknownOperation(t *testing.T) {
	tool := testTool(t, `true`)

	_, err := tool.Run(context.Background(), "exploit", "10.0.0.1", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrUnknownOperation))
	// The error lists what the tool can actually do.
	assert.Contains(t, err.Error(), "quick")
	assert.Contains(t, err.Error(), "sweep")
}

func TestTool_Run_Unavailable(t *testing.T) {
	runner := NewRunner(config.ToolsConfig{}, testLogger(t))
	runner.SetLookPath(func(file string) (string, error) {
		return "", exec.ErrNotFound
	})
	tool := NewTool(testSpec(), runner, testLogger(t))

	_, err := tool.Run(context.Background(), "quick", "10.0.0.1", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrToolUnavailable))
	assert.Contains(t, err.Error(), "sudo apt install portprobe")

	assert.False(t, tool.IsAvailable())
}

func TestTool_Run_MissingTarget(t *testing.T) {
	tool := testTool(t, `true`)

	_, err := tool.Run(context.Background(), "quick", "", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires a target")
}

func TestTool_Run_ExecutionFailure(t *testing.T) {
	tool := testTool(t, `echo scan aborted; exit 1`)

	// Execution failures come back in the result, not as an error.
	result, err := tool.Run(context.Background(), "quick", "10.0.0.1", nil)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "exited with code 1")
	assert.Contains(t, result.Output, "scan aborted")
}

func TestTool_Run_NonzeroExitAllowed(t *testing.T) {
	tool := testTool(t, `echo 'host unreachable'; exit 1`)

	// Sweep tolerates nonzero exits the way fping reports down hosts.
	result, err := tool.Run(context.Background(), "sweep", "192.168.1.0/24", nil)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Contains(t, result.Output, "host unreachable")
}

func TestTool_Run_Timeout(t *testing.T) {
	runner := NewRunner(config.ToolsConfig{}, testLogger(t))
	runner.SetLookPath(func(file string) (string, error) {
		return "/usr/bin/" + file, nil
	})
	runner.SetStartCommand(fakeCommand(`sleep 5`))

	spec := testSpec()
	spec.Operations[0].Timeout = 100 * time.Millisecond
	tool := NewTool(spec, runner, testLogger(t))

	result, err := tool.Run(context.Background(), "quick", "10.0.0.1", nil)
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "timed out after")
}

func TestTool_Version(t *testing.T) {
	tool := testTool(t, `printf 'portprobe 2.1.0\n'`)

	version := tool.Version(context.Background())
	assert.Equal(t, "portprobe 2.1.0", version)

	// Cached on second call.
	assert.Equal(t, version, tool.Version(context.Background()))
}

func TestTool_HandleQuery(t *testing.T) {
	tool := testTool(t, `printf '22/tcp open ssh\n'`)

	qr, err := tool.HandleQuery(context.Background(), "Quick scan of 10.0.0.1")
	require.NoError(t, err)

	assert.True(t, qr.Success)
	assert.Equal(t, "quick_scan", qr.Action)
	assert.Equal(t, "10.0.0.1", qr.Target)
	assert.Contains(t, qr.Output, "22/tcp open ssh")
	require.NotNil(t, qr.Fields)
	assert.Equal(t, 1, qr.Fields["ports_found"])
}

func TestTool_HandleQuery_French(t *testing.T) {
	tool := testTool(t, `printf '80/tcp open http\n'`)

	qr, err := tool.HandleQuery(context.Background(), "scan rapide de 192.168.1.50")
	require.NoError(t, err)
	assert.True(t, qr.Success)
	assert.Equal(t, "quick_scan", qr.Action)
	assert.Equal(t, "192.168.1.50", qr.Target)
}

func TestTool_HandleQuery_FirstMatchWins(t *testing.T) {
	tool := testTool(t, `true`)

	// "quick sweep" matches the quick route first because routes are
	// tried in spec order.
	qr, err := tool.HandleQuery(context.Background(), "quick sweep of 10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, "quick_scan", qr.Action)
}

func TestTool_HandleQuery_NoTarget(t *testing.T) {
	tool := testTool(t, `true`)

	qr, err := tool.HandleQuery(context.Background(), "run a quick scan")
	require.NoError(t, err)
	assert.False(t, qr.Success)
	assert.Equal(t, "no target found in query", qr.Error)
	assert.Equal(t, "quick scan of 10.0.0.1", qr.Example)
}

func TestTool_HandleQuery_Help(t *testing.T) {
	tool := testTool(t, `true`)

	qr, err := tool.HandleQuery(context.Background(), "aide")
	require.NoError(t, err)
	assert.True(t, qr.Success)
	assert.Equal(t, "help", qr.Action)
	assert.Contains(t, qr.Output, "quick")
	assert.Contains(t, qr.Output, "Fast probe of common ports")
}

func TestTool_HandleQuery_NoRouteMatch(t *testing.T) {
	tool := testTool(t, `printf 'portprobe 2.1.0\n'`)

	// Unmatched queries fall through to the tool summary.
	qr, err := tool.HandleQuery(context.Background(), "what is this thing")
	require.NoError(t, err)
	assert.True(t, qr.Success)
	assert.Equal(t, "info", qr.Action)
	assert.Contains(t, qr.Output, "Probe open ports on a host")
}

func TestTool_HandleQuery_PortsOption(t *testing.T) {
	runner := NewRunner(config.ToolsConfig{}, testLogger(t))
	runner.SetLookPath(func(file string) (string, error) {
		return "/usr/bin/" + file, nil
	})
	runner.SetStartCommand(fakeCommand(`true`))

	var gotPorts string
	spec := testSpec()
	spec.Operations[0].Args = func(target string, options map[string]string) []string {
		gotPorts = options["ports"]
		return []string{target}
	}
	tool := NewTool(spec, runner, testLogger(t))

	_, err := tool.HandleQuery(context.Background(), "quick scan ports 22,80 of 10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, "22,80", gotPorts)
}

func TestTool_Status(t *testing.T) {
	tool := testTool(t, `true`)

	status := tool.Status()
	assert.Equal(t, "portprobe", status.Name)
	assert.True(t, status.Available)
	assert.Equal(t, types.CategoryNetwork, status.Category)
	assert.Equal(t, []string{"quick", "sweep"}, status.Modes)
	assert.Contains(t, status.SupportedQueries, "quick_scan")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 100))
	assert.Equal(t, "abc...", Truncate("abcdef", 3))
	assert.Equal(t, "abcdef", Truncate("abcdef", 0))
}
