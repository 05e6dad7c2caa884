package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/CodeMonkeyCybersecurity/sharingan/internal/config"
	"github.com/CodeMonkeyCybersecurity/sharingan/internal/logger"
)

// Runner executes wrapped binaries. Path lookup and process start are
// injectable so tool behavior is testable without the binaries installed.
type Runner struct {
	logger       *logger.Logger
	lookPath     func(file string) (string, error)
	startCommand func(ctx context.Context, name string, args ...string) *exec.Cmd
	binaryPaths  map[string]string
	probeTimeout time.Duration

	mu         sync.Mutex
	probeCache map[string]probeResult
}

type probeResult struct {
	path string
	err  error
}

// InvokeResult carries raw process output back to the tool layer.
type InvokeResult struct {
	Command   string
	Output    string
	Truncated bool
	ExitCode  int
	TimedOut  bool
	Duration  time.Duration
}

func NewRunner(cfg config.ToolsConfig, log *logger.Logger) *Runner {
	probeTimeout := cfg.ProbeTimeout
	if probeTimeout <= 0 {
		probeTimeout = 5 * time.Second
	}
	return &Runner{
		logger:       log.WithComponent("tool-runner"),
		lookPath:     exec.LookPath,
		startCommand: exec.CommandContext,
		binaryPaths:  cfg.BinaryPaths,
		probeTimeout: probeTimeout,
		probeCache:   make(map[string]probeResult),
	}
}

// SetLookPath replaces binary resolution, used by tests to simulate
// installed and missing tools.
func (r *Runner) SetLookPath(fn func(file string) (string, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lookPath = fn
	r.probeCache = make(map[string]probeResult)
}

// SetStartCommand replaces process creation, used by tests to fake
// tool output without executing anything.
func (r *Runner) SetStartCommand(fn func(ctx context.Context, name string, args ...string) *exec.Cmd) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.startCommand = fn
}

// Probe resolves a binary to its path. Results are cached; a config
// override in binary_paths wins over PATH lookup.
func (r *Runner) Probe(binary string) (string, error) {
	r.mu.Lock()
	if cached, ok := r.probeCache[binary]; ok {
		r.mu.Unlock()
		return cached.path, cached.err
	}
	override := r.binaryPaths[binary]
	look := r.lookPath
	r.mu.Unlock()

	candidate := binary
	if override != "" {
		candidate = override
	}

	path, err := look(candidate)
	if err != nil {
		err = fmt.Errorf("binary %q not found: %w", binary, err)
	}

	r.mu.Lock()
	r.probeCache[binary] = probeResult{path: path, err: err}
	r.mu.Unlock()

	return path, err
}

// Invoke runs the binary with a per operation timeout and returns
// combined output capped at maxOutput bytes.
func (r *Runner) Invoke(ctx context.Context, path string, args []string, timeout time.Duration, maxOutput int) (*InvokeResult, error) {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if maxOutput <= 0 {
		maxOutput = DefaultMaxOutput
	}

	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()

	r.mu.Lock()
	startCommand := r.startCommand
	r.mu.Unlock()

	cmd := startCommand(cmdCtx, path, args...)
	// Fixed environment keeps wrapped tools off user shell customization.
	cmd.Env = []string{
		"PATH=/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin",
		"LANG=C",
	}

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	err := cmd.Run()
	duration := time.Since(start)

	result := &InvokeResult{
		Command:  path + " " + strings.Join(args, " "),
		Duration: duration,
	}

	output := buf.String()
	if len(output) > maxOutput {
		output = output[:maxOutput]
		result.Truncated = true
	}
	result.Output = output

	if cmdCtx.Err() == context.DeadlineExceeded {
		result.TimedOut = true
		result.ExitCode = -1
		r.logger.Warnw("Tool invocation timed out",
			"command", path,
			"timeout", timeout.String(),
			"duration_ms", duration.Milliseconds(),
		)
		return result, fmt.Errorf("command timed out after %s", timeout)
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, fmt.Errorf("command exited with code %d", exitErr.ExitCode())
		}
		result.ExitCode = -1
		return result, fmt.Errorf("failed to run command: %w", err)
	}

	return result, nil
}

// ProbeVersion runs the version command with a short timeout and
// returns the first line of output.
func (r *Runner) ProbeVersion(ctx context.Context, path string, args []string) string {
	if len(args) == 0 {
		return "unknown"
	}

	res, err := r.Invoke(ctx, path, args, r.probeTimeout, DefaultMaxOutput)
	if err != nil && (res == nil || res.Output == "") {
		return "unknown"
	}

	line := strings.TrimSpace(res.Output)
	if idx := strings.IndexByte(line, '\n'); idx > 0 {
		line = line[:idx]
	}
	if line == "" {
		return "unknown"
	}
	return strings.TrimSpace(line)
}
