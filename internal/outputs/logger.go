package outputs

import (
	"encoding/json"
	"log/slog"
	"os"

	"github.com/speedsleuth/speed-sleuth/internal/config"
	"github.com/speedsleuth/speed-sleuth/internal/models"
)

// Logger outputs run records as JSON lines or structured text on stdout
type Logger struct {
	logger *slog.Logger
	config *config.LoggingConfig
}

// NewLogger creates a new run-record logger
func NewLogger(cfg *config.LoggingConfig) (*Logger, error) {
	// JSON format writes raw documents in Write; the slog handler is
	// only needed for text format
	var logger *slog.Logger

	if cfg.Format != "json" {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: ParseLogLevel(cfg.Level),
		}))
	}

	return &Logger{
		logger: logger,
		config: cfg,
	}, nil
}

// Write outputs a run record to stdout
func (l *Logger) Write(record *models.RunRecord) error {
	if l.config.Format == "json" {
		data, err := json.Marshal(record)
		if err != nil {
			return err
		}
		// Raw write keeps the output clean JSON lines
		os.Stdout.Write(data)
		os.Stdout.Write([]byte("\n"))
		return nil
	}

	l.logger.Info("run_record",
		"provider", record.Provider.Name,
		"success", record.Status.Success,
		"exit_code", record.Status.ExitCode,
		"duration_ms", record.DurationMs,
	)

	return nil
}

// Name returns the output module name
func (l *Logger) Name() string {
	return "logger"
}

// ParseLogLevel converts a level string to slog.Level
func ParseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
