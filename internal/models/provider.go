package models

import "time"

// DefaultResultFile is the screenshot filename used when none is configured
const DefaultResultFile = "speedtest-result.png"

// ProviderDefinition represents one speed-test provider to run
type ProviderDefinition struct {
	// Name identifies the provider driver (e.g., "speedtest")
	Name string `yaml:"name" json:"name"`

	// OutputFile is the screenshot path for one-shot runs
	OutputFile string `yaml:"output_file" json:"output_file,omitempty"`

	// TimeoutSeconds is the maximum time for one full run
	TimeoutSeconds int `yaml:"timeout_seconds" json:"timeout_seconds"`
}

// GetTimeout returns the run timeout for this provider
func (p *ProviderDefinition) GetTimeout() time.Duration {
	if p.TimeoutSeconds <= 0 {
		return 5 * time.Minute // Default: waits alone can take minutes
	}
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// GetOutputFile returns the screenshot filename, falling back to the default
func (p *ProviderDefinition) GetOutputFile() string {
	if p.OutputFile != "" {
		return p.OutputFile
	}
	return DefaultResultFile
}
