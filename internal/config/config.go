package config

import (
	"time"

	"github.com/speedsleuth/speed-sleuth/internal/models"
)

// Run modes
const (
	// ModeOnce runs a single speed test and exits with its status code
	ModeOnce = "once"

	// ModeMonitor runs speed tests on an interval and dispatches records
	ModeMonitor = "monitor"
)

// Config represents the complete application configuration
type Config struct {
	General       GeneralConfig       `yaml:"general"`
	Providers     ProvidersConfig     `yaml:"providers"`
	Browser       BrowserConfig       `yaml:"browser"`
	Logging       LoggingConfig       `yaml:"logging"`
	Elasticsearch ElasticsearchConfig `yaml:"elasticsearch"`
	SNMP          SNMPConfig          `yaml:"snmp"`
	Prometheus    PrometheusConfig    `yaml:"prometheus"`
	Advanced      AdvancedConfig      `yaml:"advanced"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Mode          string        `yaml:"mode"`
	RunInterval   time.Duration `yaml:"run_interval"`
	GlobalTimeout time.Duration `yaml:"global_timeout"`
	CacheSize     int           `yaml:"cache_size"`
}

// ProvidersConfig contains the list of speed-test providers to run
type ProvidersConfig struct {
	List []models.ProviderDefinition `yaml:"list"`
}

// BrowserConfig contains browser-specific settings
type BrowserConfig struct {
	BinaryPath   string `yaml:"binary_path"`
	Headless     bool   `yaml:"headless"`
	UserAgent    string `yaml:"user_agent"`
	WindowWidth  int    `yaml:"window_width"`
	WindowHeight int    `yaml:"window_height"`
	Language     string `yaml:"language"`
	DisableGPU   bool   `yaml:"disable_gpu"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ElasticsearchConfig contains Elasticsearch output settings
type ElasticsearchConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Endpoint      string        `yaml:"endpoint"`
	IndexPattern  string        `yaml:"index_pattern"`
	Username      string        `yaml:"username"`
	Password      string        `yaml:"password"`
	APIKey        string        `yaml:"api_key"`
	BulkSize      int           `yaml:"bulk_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	MaxRetries    int           `yaml:"max_retries"`
	TLSSkipVerify bool          `yaml:"tls_skip_verify"`
}

// SNMPConfig contains SNMP agent settings
type SNMPConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Port          int    `yaml:"port"`
	Community     string `yaml:"community"`
	ListenAddress string `yaml:"listen_address"`
	EnterpriseOID string `yaml:"enterprise_oid"`
}

// PrometheusConfig contains Prometheus exporter settings
type PrometheusConfig struct {
	Enabled          bool      `yaml:"enabled"`
	Port             int       `yaml:"port"`
	Path             string    `yaml:"path"`
	ListenAddress    string    `yaml:"listen_address"`
	IncludeGoMetrics bool      `yaml:"include_go_metrics"`
	DurationBuckets  []float64 `yaml:"duration_buckets"`
}

// AdvancedConfig contains advanced/debugging settings
type AdvancedConfig struct {
	HealthCheckEnabled bool          `yaml:"health_check_enabled"`
	HealthCheckPort    int           `yaml:"health_check_port"`
	HealthCheckPath    string        `yaml:"health_check_path"`
	ShutdownTimeout    time.Duration `yaml:"shutdown_timeout"`
	ScreenshotPath     string        `yaml:"screenshot_path"`
}

// Load loads configuration from defaults and environment variables
func Load() (*Config, error) {
	cfg := DefaultConfig()

	if err := LoadFromEnv(cfg); err != nil {
		return nil, err
	}

	if len(cfg.Providers.List) == 0 {
		cfg.Providers.List = DefaultProviders()
	}

	return cfg, nil
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		General: GeneralConfig{
			Mode:          ModeOnce,
			RunInterval:   15 * time.Minute,
			GlobalTimeout: 5 * time.Minute,
			CacheSize:     100,
		},
		Browser: BrowserConfig{
			Headless:     true,
			WindowWidth:  1400,
			WindowHeight: 900,
			Language:     "en_US",
			DisableGPU:   true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Elasticsearch: ElasticsearchConfig{
			Enabled:       false,
			IndexPattern:  "speed-sleuth-%{+yyyy.MM.dd}",
			BulkSize:      50,
			FlushInterval: 10 * time.Second,
			MaxRetries:    3,
		},
		SNMP: SNMPConfig{
			Enabled:       false,
			Port:          161,
			Community:     "public",
			ListenAddress: "0.0.0.0",
			EnterpriseOID: ".1.3.6.1.4.1.99999",
		},
		Prometheus: PrometheusConfig{
			Enabled:          false,
			Port:             9090,
			Path:             "/metrics",
			ListenAddress:    "0.0.0.0",
			IncludeGoMetrics: true,
			DurationBuckets:  []float64{5000, 15000, 30000, 60000, 120000, 180000, 300000},
		},
		Advanced: AdvancedConfig{
			HealthCheckEnabled: true,
			HealthCheckPort:    8080,
			HealthCheckPath:    "/health",
			ShutdownTimeout:    30 * time.Second,
			ScreenshotPath:     "/tmp/screenshots",
		},
	}
}

// DefaultProviders returns the default list of providers to run
func DefaultProviders() []models.ProviderDefinition {
	return []models.ProviderDefinition{
		{
			Name:           "speedtest",
			OutputFile:     models.DefaultResultFile,
			TimeoutSeconds: 300,
		},
	}
}
