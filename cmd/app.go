package cmd

import (
	"fmt"

	"github.com/CodeMonkeyCybersecurity/sharingan/internal/config"
	"github.com/CodeMonkeyCybersecurity/sharingan/internal/core"
	"github.com/CodeMonkeyCybersecurity/sharingan/internal/ratelimit"
	"github.com/CodeMonkeyCybersecurity/sharingan/internal/tools"
	"github.com/CodeMonkeyCybersecurity/sharingan/internal/tools/catalog"
	"github.com/CodeMonkeyCybersecurity/sharingan/internal/tools/native"
)

// buildLimiter maps the security config onto the scan rate limiter,
// keeping the per-host minimum delay from the preset.
func buildLimiter(cfg *config.Config) *ratelimit.Limiter {
	rl := ratelimit.DefaultConfig()
	if cfg.Security.RateLimit.RequestsPerSecond > 0 {
		rl.RequestsPerSecond = float64(cfg.Security.RateLimit.RequestsPerSecond)
	}
	if cfg.Security.RateLimit.BurstSize > 0 {
		rl.BurstSize = cfg.Security.RateLimit.BurstSize
	}
	return ratelimit.NewLimiter(rl)
}

// buildRegistry assembles every wrapped and native tool: the built-in
// catalog, custom YAML definitions when configured, and the four tools
// implemented in-process.
func buildRegistry(cfg *config.Config, limiter core.RateLimiter) (core.ToolRegistry, error) {
	registry := tools.NewRegistry()
	runner := tools.NewRunner(cfg.Tools, log)

	for _, spec := range catalog.All(cfg.Tools) {
		if err := registry.Register(tools.NewTool(spec, runner, log)); err != nil {
			return nil, fmt.Errorf("failed to register %s: %w", spec.Name, err)
		}
	}

	if cfg.Tools.Definitions != "" {
		custom, err := catalog.LoadCustom(cfg.Tools.Definitions)
		if err != nil {
			return nil, fmt.Errorf("failed to load tool definitions from %s: %w", cfg.Tools.Definitions, err)
		}
		for _, spec := range custom {
			if err := registry.Register(tools.NewTool(spec, runner, log)); err != nil {
				return nil, fmt.Errorf("failed to register %s: %w", spec.Name, err)
			}
		}
	}

	nativeTools := []core.SecurityTool{
		native.NewDNSTool(cfg.Tools.DNSServer, log),
		native.NewWhoisTool(log),
		native.NewLDAPTool(log),
		native.NewSpiderTool(cfg.Tools.SpiderMaxPage, limiter, log),
	}
	for _, tool := range nativeTools {
		if err := registry.Register(tool); err != nil {
			return nil, fmt.Errorf("failed to register %s: %w", tool.Name(), err)
		}
	}

	return registry, nil
}
