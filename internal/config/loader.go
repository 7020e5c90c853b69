package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/speedsleuth/speed-sleuth/internal/models"
)

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv(cfg *Config) error {
	// General settings
	if v := os.Getenv("MODE"); v != "" {
		if v != ModeOnce && v != ModeMonitor {
			return fmt.Errorf("invalid MODE: %q (want %q or %q)", v, ModeOnce, ModeMonitor)
		}
		cfg.General.Mode = v
	}

	if v := os.Getenv("RUN_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid RUN_INTERVAL: %w", err)
		}
		cfg.General.RunInterval = d
	}

	if v := os.Getenv("GLOBAL_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid GLOBAL_TIMEOUT: %w", err)
		}
		cfg.General.GlobalTimeout = d
	}

	if v := os.Getenv("CACHE_SIZE"); v != "" {
		var size int
		fmt.Sscanf(v, "%d", &size)
		if size > 0 {
			cfg.General.CacheSize = size
		}
	}

	// Providers from comma-separated list
	if v := os.Getenv("PROVIDERS"); v != "" {
		providers, err := ParseProviderList(v)
		if err != nil {
			return fmt.Errorf("invalid PROVIDERS: %w", err)
		}
		cfg.Providers.List = providers
	}

	if v := os.Getenv("OUTPUT_FILE"); v != "" {
		for i := range cfg.Providers.List {
			cfg.Providers.List[i].OutputFile = v
		}
	}

	// Browser settings
	if v := os.Getenv("BROWSER_PATH"); v != "" {
		cfg.Browser.BinaryPath = v
	}

	if v := os.Getenv("BROWSER_HEADLESS"); v != "" {
		cfg.Browser.Headless = v == "true" || v == "1"
	}

	if v := os.Getenv("BROWSER_USER_AGENT"); v != "" {
		cfg.Browser.UserAgent = v
	}

	if v := os.Getenv("BROWSER_LANGUAGE"); v != "" {
		cfg.Browser.Language = v
	}

	// Logging
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	// Elasticsearch
	if v := os.Getenv("ES_ENABLED"); v != "" {
		cfg.Elasticsearch.Enabled = v == "true" || v == "1"
	}

	if v := os.Getenv("ES_ENDPOINT"); v != "" {
		cfg.Elasticsearch.Endpoint = v
	}

	if v := os.Getenv("ES_INDEX_PATTERN"); v != "" {
		cfg.Elasticsearch.IndexPattern = v
	}

	if v := os.Getenv("ES_USERNAME"); v != "" {
		cfg.Elasticsearch.Username = v
	}

	if v := os.Getenv("ES_PASSWORD"); v != "" {
		cfg.Elasticsearch.Password = v
	}

	if v := os.Getenv("ES_API_KEY"); v != "" {
		cfg.Elasticsearch.APIKey = v
	}

	if v := os.Getenv("ES_BULK_SIZE"); v != "" {
		var size int
		fmt.Sscanf(v, "%d", &size)
		if size > 0 {
			cfg.Elasticsearch.BulkSize = size
		}
	}

	if v := os.Getenv("ES_FLUSH_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid ES_FLUSH_INTERVAL: %w", err)
		}
		cfg.Elasticsearch.FlushInterval = d
	}

	// SNMP
	if v := os.Getenv("SNMP_ENABLED"); v != "" {
		cfg.SNMP.Enabled = v == "true" || v == "1"
	}

	if v := os.Getenv("SNMP_PORT"); v != "" {
		var port int
		fmt.Sscanf(v, "%d", &port)
		if port > 0 {
			cfg.SNMP.Port = port
		}
	}

	if v := os.Getenv("SNMP_COMMUNITY"); v != "" {
		cfg.SNMP.Community = v
	}

	if v := os.Getenv("SNMP_LISTEN_ADDRESS"); v != "" {
		cfg.SNMP.ListenAddress = v
	}

	// Prometheus
	if v := os.Getenv("PROM_ENABLED"); v != "" {
		cfg.Prometheus.Enabled = v == "true" || v == "1"
	}

	if v := os.Getenv("PROM_PORT"); v != "" {
		var port int
		fmt.Sscanf(v, "%d", &port)
		if port > 0 {
			cfg.Prometheus.Port = port
		}
	}

	if v := os.Getenv("PROM_PATH"); v != "" {
		cfg.Prometheus.Path = v
	}

	if v := os.Getenv("PROM_LISTEN_ADDRESS"); v != "" {
		cfg.Prometheus.ListenAddress = v
	}

	// Advanced
	if v := os.Getenv("HEALTH_CHECK_ENABLED"); v != "" {
		cfg.Advanced.HealthCheckEnabled = v == "true" || v == "1"
	}

	if v := os.Getenv("HEALTH_CHECK_PORT"); v != "" {
		var port int
		fmt.Sscanf(v, "%d", &port)
		if port > 0 {
			cfg.Advanced.HealthCheckPort = port
		}
	}

	if v := os.Getenv("SCREENSHOT_PATH"); v != "" {
		cfg.Advanced.ScreenshotPath = v
	}

	return nil
}

// ParseProviderList parses a comma-separated list of provider entries.
// Each entry is a provider name with an optional output file, separated
// by a colon: "speedtest" or "speedtest:result.png".
func ParseProviderList(providersStr string) ([]models.ProviderDefinition, error) {
	if providersStr == "" {
		return nil, nil
	}

	parts := strings.Split(providersStr, ",")
	providers := make([]models.ProviderDefinition, 0, len(parts))

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		name := part
		outputFile := ""
		if idx := strings.Index(part, ":"); idx >= 0 {
			name = strings.TrimSpace(part[:idx])
			outputFile = strings.TrimSpace(part[idx+1:])
		}

		if name == "" {
			return nil, fmt.Errorf("provider entry %q has no name", part)
		}

		providers = append(providers, models.ProviderDefinition{
			Name:           name,
			OutputFile:     outputFile,
			TimeoutSeconds: 300,
		})
	}

	return providers, nil
}
