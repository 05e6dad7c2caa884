// Package cmd wires the sharingan CLI. Configuration resolves in the
// order flags > SHARINGAN_* environment > .sharingan.yaml, and every
// command gets a ready config and logger from the root PersistentPreRunE.
package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/CodeMonkeyCybersecurity/sharingan/internal/config"
	"github.com/CodeMonkeyCybersecurity/sharingan/internal/logger"
)

var (
	cfgFile string
	cfg     *config.Config
	log     *logger.Logger
)

var rootCmd = &cobra.Command{
	Use:   "sharingan",
	Short: "Security tool orchestrator with natural language control",
	Long: `Sharingan wraps the common Kali-style security tools behind one
registry, routes French and English natural language queries to them,
and remembers what worked in a persistent genome.

Run a query directly, drop into the interactive shell, or start the
daemon with an HTTP API and worker pool:

  sharingan ask "scan ports on 192.168.1.1"
  sharingan shell
  sharingan serve`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := initConfig(); err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		var err error
		log, err = logger.New(cfg.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log == nil {
			return
		}
		// Syncing a terminal stdout returns EINVAL on Linux, which is
		// not worth surfacing.
		if err := log.Sync(); err != nil && !strings.Contains(err.Error(), "sync /dev/stdout") {
			fmt.Printf("Warning: failed to sync logger: %v\n", err)
		}
	},
}

// Execute runs the root command. main reports the error as the exit code.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default .sharingan.yaml in cwd or $HOME)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (console, json)")
	rootCmd.PersistentFlags().String("db", "", "database DSN (sqlite path or postgres URL)")
	rootCmd.PersistentFlags().String("redis", "", "redis address for the command bus")
	rootCmd.PersistentFlags().Bool("yes", false, "assume yes for confirmation prompts")

	viper.BindPFlag("logger.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("logger.format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("database.dsn", rootCmd.PersistentFlags().Lookup("db"))
	viper.BindPFlag("redis.addr", rootCmd.PersistentFlags().Lookup("redis"))
	viper.BindPFlag("security.auto_confirm", rootCmd.PersistentFlags().Lookup("yes"))
}

// initConfig builds cfg from defaults, an optional .sharingan.yaml and
// the SHARINGAN_* environment, in ascending precedence.
func initConfig() error {
	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(".sharingan")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
	}

	viper.SetEnvPrefix("SHARINGAN")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// Only an explicitly named config file is required to exist.
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound && cfgFile != "" {
			return fmt.Errorf("failed to read config file %s: %w", cfgFile, err)
		}
	}

	cfg = config.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to parse configuration: %w", err)
	}
	return nil
}

func setDefaults() {
	def := config.DefaultConfig()

	viper.SetDefault("logger.level", def.Logger.Level)
	viper.SetDefault("logger.format", def.Logger.Format)
	viper.SetDefault("logger.output_paths", def.Logger.OutputPaths)

	viper.SetDefault("telemetry.enabled", def.Telemetry.Enabled)
	viper.SetDefault("telemetry.service_name", def.Telemetry.ServiceName)
	viper.SetDefault("telemetry.exporter_type", def.Telemetry.ExporterType)
	viper.SetDefault("telemetry.endpoint", def.Telemetry.Endpoint)
	viper.SetDefault("telemetry.sample_rate", def.Telemetry.SampleRate)

	viper.SetDefault("database.driver", def.Database.Driver)
	viper.SetDefault("database.dsn", def.Database.DSN)
	viper.SetDefault("database.max_connections", def.Database.MaxConnections)
	viper.SetDefault("database.max_idle_conns", def.Database.MaxIdleConns)
	viper.SetDefault("database.conn_max_lifetime", def.Database.ConnMaxLifetime)

	viper.SetDefault("redis.addr", def.Redis.Addr)
	viper.SetDefault("redis.db", def.Redis.DB)
	viper.SetDefault("redis.max_retries", def.Redis.MaxRetries)
	viper.SetDefault("redis.dial_timeout", def.Redis.DialTimeout)
	viper.SetDefault("redis.read_timeout", def.Redis.ReadTimeout)
	viper.SetDefault("redis.write_timeout", def.Redis.WriteTimeout)

	viper.SetDefault("worker.count", def.Worker.Count)
	viper.SetDefault("worker.queue_poll_interval", def.Worker.QueuePollInterval)
	viper.SetDefault("worker.max_retries", def.Worker.MaxRetries)
	viper.SetDefault("worker.retry_delay", def.Worker.RetryDelay)
	viper.SetDefault("worker.scan_timeout", def.Worker.ScanTimeout)

	viper.SetDefault("api.host", def.API.Host)
	viper.SetDefault("api.port", def.API.Port)
	viper.SetDefault("api.enable_cors", def.API.EnableCORS)
	viper.SetDefault("api.enable_auth", def.API.EnableAuth)
	viper.SetDefault("api.timeout", def.API.Timeout)

	viper.SetDefault("browser.host", def.Browser.Host)
	viper.SetDefault("browser.port", def.Browser.Port)
	viper.SetDefault("browser.headless", def.Browser.Headless)
	viper.SetDefault("browser.command_timeout", def.Browser.CommandTimeout)
	viper.SetDefault("browser.legacy_cmd_file", def.Browser.LegacyCmdFile)
	viper.SetDefault("browser.legacy_out_file", def.Browser.LegacyOutFile)
	viper.SetDefault("browser.screenshot_dir", def.Browser.ScreenshotDir)

	viper.SetDefault("tools.dirb_wordlist", def.Tools.DirbWordlist)
	viper.SetDefault("tools.dns_wordlist", def.Tools.DNSWordlist)
	viper.SetDefault("tools.rockyou_path", def.Tools.RockyouPath)
	viper.SetDefault("tools.probe_timeout", def.Tools.ProbeTimeout)
	viper.SetDefault("tools.spider_max_pages", def.Tools.SpiderMaxPage)

	viper.SetDefault("genome.db_path", def.Genome.DBPath)
	viper.SetDefault("genome.snapshots_dir", def.Genome.SnapshotsDir)

	viper.SetDefault("security.rate_limit.requests_per_second", def.Security.RateLimit.RequestsPerSecond)
	viper.SetDefault("security.rate_limit.burst_size", def.Security.RateLimit.BurstSize)
	viper.SetDefault("security.auto_confirm", def.Security.AutoConfirm)
}
