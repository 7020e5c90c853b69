package models

import "time"

// RunRecord represents the outcome of one speed-test run
type RunRecord struct {
	// Timestamp when the run started
	Timestamp time.Time `json:"@timestamp"`

	// RunID is a unique identifier for this run
	RunID string `json:"run_id"`

	// Provider information
	Provider ProviderInfo `json:"provider"`

	// Status information
	Status StatusInfo `json:"status"`

	// DurationMs is the total run time in milliseconds
	DurationMs int64 `json:"duration_ms"`

	// Screenshot information (if a screenshot was captured)
	Screenshot *ScreenshotInfo `json:"screenshot,omitempty"`

	// Error information (if the run failed)
	Error *ErrorInfo `json:"error,omitempty"`

	// Metadata about the run environment
	Metadata RunMetadata `json:"metadata,omitempty"`
}

// ProviderInfo contains information about the provider that ran the test
type ProviderInfo struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

// StatusInfo contains the result status
type StatusInfo struct {
	Success  bool   `json:"success"`
	ExitCode int    `json:"exit_code"`
	Message  string `json:"message,omitempty"`
}

// ScreenshotInfo describes the captured result screenshot
type ScreenshotInfo struct {
	// Path is where the screenshot file was written
	Path string `json:"path"`

	// SizeBytes is the size of the screenshot file
	SizeBytes int64 `json:"size_bytes"`
}

// ErrorInfo contains error details when a run fails
type ErrorInfo struct {
	// ErrorType categorizes the error (e.g., "timeout", "not_interactable", "launch")
	ErrorType string `json:"error_type"`

	// ErrorMessage is the human-readable error message
	ErrorMessage string `json:"error_message"`
}

// RunMetadata contains information about the run environment
type RunMetadata struct {
	// Hostname of the monitor instance
	Hostname string `json:"hostname,omitempty"`

	// Version of the speed-sleuth software
	Version string `json:"version,omitempty"`

	// Browser user agent
	UserAgent string `json:"user_agent,omitempty"`
}
