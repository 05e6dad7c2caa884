package config

import (
	"time"
)

type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Worker    WorkerConfig    `mapstructure:"worker"`
	API       APIConfig       `mapstructure:"api"`
	Browser   BrowserConfig   `mapstructure:"browser"`
	Tools     ToolsConfig     `mapstructure:"tools"`
	Genome    GenomeConfig    `mapstructure:"genome"`
	Security  SecurityConfig  `mapstructure:"security"`
}

type LoggerConfig struct {
	Level       string   `mapstructure:"level"`
	Format      string   `mapstructure:"format"`
	OutputPaths []string `mapstructure:"output_paths"`
}

type TelemetryConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	ServiceName  string  `mapstructure:"service_name"`
	ExporterType string  `mapstructure:"exporter_type"`
	Endpoint     string  `mapstructure:"endpoint"`
	SampleRate   float64 `mapstructure:"sample_rate"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxConnections  int           `mapstructure:"max_connections"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	MaxRetries   int           `mapstructure:"max_retries"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type WorkerConfig struct {
	Count             int           `mapstructure:"count"`
	QueuePollInterval time.Duration `mapstructure:"queue_poll_interval"`
	MaxRetries        int           `mapstructure:"max_retries"`
	RetryDelay        time.Duration `mapstructure:"retry_delay"`
	ScanTimeout       time.Duration `mapstructure:"scan_timeout"`
}

type APIConfig struct {
	Host       string        `mapstructure:"host"`
	Port       int           `mapstructure:"port"`
	EnableCORS bool          `mapstructure:"enable_cors"`
	APIKey     string        `mapstructure:"api_key"`
	EnableAuth bool          `mapstructure:"enable_auth"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// BrowserConfig drives the browser command daemon on the loopback RPC port.
type BrowserConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	Headless       bool          `mapstructure:"headless"`
	CommandTimeout time.Duration `mapstructure:"command_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
	LegacyCmdFile  string        `mapstructure:"legacy_cmd_file"`
	LegacyOutFile  string        `mapstructure:"legacy_out_file"`
	ScreenshotDir  string        `mapstructure:"screenshot_dir"`
}

type ToolsConfig struct {
	// BinaryPaths overrides PATH resolution per tool name.
	BinaryPaths map[string]string `mapstructure:"binary_paths"`
	// Definitions is an optional YAML file adding custom external tools.
	Definitions   string        `mapstructure:"definitions"`
	DirbWordlist  string        `mapstructure:"dirb_wordlist"`
	DNSWordlist   string        `mapstructure:"dns_wordlist"`
	RockyouPath   string        `mapstructure:"rockyou_path"`
	ProbeTimeout  time.Duration `mapstructure:"probe_timeout"`
	DefaultIface  string        `mapstructure:"default_iface"`
	DNSServer     string        `mapstructure:"dns_server"`
	SpiderMaxPage int           `mapstructure:"spider_max_pages"`
}

type GenomeConfig struct {
	DBPath       string `mapstructure:"db_path"`
	SnapshotsDir string `mapstructure:"snapshots_dir"`
}

type SecurityConfig struct {
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	// AutoConfirm skips the confirmation gate for high-risk commands.
	AutoConfirm bool `mapstructure:"auto_confirm"`
}

type RateLimitConfig struct {
	RequestsPerSecond int `mapstructure:"requests_per_second"`
	BurstSize         int `mapstructure:"burst_size"`
}

// DefaultConfig returns the configuration used when no file, env or flag
// overrides a value.
func DefaultConfig() *Config {
	return &Config{
		Logger: LoggerConfig{
			Level:       "info",
			Format:      "console",
			OutputPaths: []string{"stdout"},
		},
		Telemetry: TelemetryConfig{
			Enabled:      false,
			ServiceName:  "sharingan",
			ExporterType: "otlp",
			Endpoint:     "localhost:4318",
			SampleRate:   1.0,
		},
		Database: DatabaseConfig{
			Driver:          "sqlite",
			DSN:             "sharingan.db",
			MaxConnections:  10,
			MaxIdleConns:    5,
			ConnMaxLifetime: time.Hour,
		},
		Redis: RedisConfig{
			Addr:         "localhost:6379",
			DB:           0,
			MaxRetries:   3,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Worker: WorkerConfig{
			Count:             3,
			QueuePollInterval: time.Second,
			MaxRetries:        3,
			RetryDelay:        5 * time.Second,
			ScanTimeout:       10 * time.Minute,
		},
		API: APIConfig{
			Host:       "127.0.0.1",
			Port:       8080,
			EnableCORS: true,
			Timeout:    30 * time.Second,
		},
		Browser: BrowserConfig{
			Host:           "127.0.0.1",
			Port:           19999,
			Headless:       true,
			CommandTimeout: 30 * time.Second,
			LegacyCmdFile:  "/tmp/generic_browser_cmd.txt",
			LegacyOutFile:  "/tmp/generic_browser_result.txt",
			ScreenshotDir:  "screenshots",
		},
		Tools: ToolsConfig{
			BinaryPaths:   map[string]string{},
			DirbWordlist:  "/usr/share/dirb/wordlists/common.txt",
			DNSWordlist:   "/usr/share/wordlists/dns/subdomains-top1million-5000.txt",
			RockyouPath:   "/usr/share/wordlists/rockyou.txt",
			ProbeTimeout:  5 * time.Second,
			DNSServer:     "",
			SpiderMaxPage: 10,
		},
		Genome: GenomeConfig{
			DBPath:       "genome.db",
			SnapshotsDir: "dna_snapshots",
		},
		Security: SecurityConfig{
			RateLimit: RateLimitConfig{
				RequestsPerSecond: 10,
				BurstSize:         5,
			},
			AutoConfirm: false,
		},
	}
}
