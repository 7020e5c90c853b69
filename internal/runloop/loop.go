package runloop

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/speedsleuth/speed-sleuth/internal/browser"
	"github.com/speedsleuth/speed-sleuth/internal/config"
	"github.com/speedsleuth/speed-sleuth/internal/health"
	"github.com/speedsleuth/speed-sleuth/internal/metrics"
	"github.com/speedsleuth/speed-sleuth/internal/models"
	"github.com/speedsleuth/speed-sleuth/internal/provider"
)

const (
	// Maximum consecutive browser launch failures before exiting cleanly
	maxConsecutiveLaunchFailures = 5

	version = "1.0.0"
)

// RunLoop manages the continuous speed-test cycle in monitor mode
type RunLoop struct {
	config                    *config.Config
	iterator                  *ProviderIterator
	launcher                  browser.Launcher
	dispatcher                *metrics.Dispatcher
	health                    *health.Server
	logger                    *slog.Logger
	stopChan                  chan struct{}
	hostname                  string
	consecutiveLaunchFailures int
}

// NewRunLoop creates a new continuous run loop
func NewRunLoop(cfg *config.Config, launcher browser.Launcher, dispatcher *metrics.Dispatcher, healthServer *health.Server) (*RunLoop, error) {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	if cfg.Advanced.ScreenshotPath != "" {
		if err := os.MkdirAll(cfg.Advanced.ScreenshotPath, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create screenshot directory: %w", err)
		}
	}

	return &RunLoop{
		config:     cfg,
		iterator:   NewProviderIterator(cfg.Providers.List),
		launcher:   launcher,
		dispatcher: dispatcher,
		health:     healthServer,
		logger:     slog.Default(),
		stopChan:   make(chan struct{}),
		hostname:   hostname,
	}, nil
}

// Run starts the continuous run loop. One provider is run per tick,
// round-robin, with a fresh browser session for every run.
func (l *RunLoop) Run(ctx context.Context) error {
	l.logger.Info("Starting continuous run loop",
		"providers", l.iterator.Count(),
		"run_interval", l.config.General.RunInterval,
	)

	ticker := time.NewTicker(l.config.General.RunInterval)
	defer ticker.Stop()

	// Run immediately on start
	l.runSingle(ctx)

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Run loop stopped by context")
			return ctx.Err()

		case <-l.stopChan:
			l.logger.Info("Run loop stopped by Stop() call")
			return nil

		case <-ticker.C:
			l.runSingle(ctx)
		}
	}
}

// Stop terminates the loop after the current run
func (l *RunLoop) Stop() {
	close(l.stopChan)
}

// runSingle executes one speed-test run
func (l *RunLoop) runSingle(ctx context.Context) {
	def := l.iterator.Next()
	if def.Name == "" {
		return
	}

	l.logger.Debug("Running provider", "provider", def.Name)

	runCtx, cancel := context.WithTimeout(ctx, def.GetTimeout())
	defer cancel()

	start := time.Now()

	// The loop must outlive a failed run, so the provider's exit funnel
	// is replaced with a no-op and the exit code is read from Run
	p, err := provider.New(runCtx, def.Name, l.launcher,
		provider.WithLogger(l.logger),
		provider.WithExitFunc(func(int) {}),
	)
	if err != nil {
		l.logger.Error("Failed to create provider", "provider", def.Name, "error", err)
		return
	}

	if !p.Acquired() {
		l.consecutiveLaunchFailures++
		l.logger.Warn("Browser failed to launch",
			"consecutive_failures", l.consecutiveLaunchFailures,
			"max_allowed", maxConsecutiveLaunchFailures,
		)

		// Too many launch failures means resource exhaustion, not a bad
		// speed test. Exit cleanly so the container supervisor restarts
		// us with a fresh environment.
		if l.consecutiveLaunchFailures >= maxConsecutiveLaunchFailures {
			l.logger.Error("Too many consecutive browser launch failures - exiting for restart",
				"consecutive_failures", l.consecutiveLaunchFailures,
			)
			fmt.Fprintf(os.Stderr, "FATAL: browser failed to launch %d consecutive times - restart needed\n", l.consecutiveLaunchFailures)
			os.Exit(1)
		}

		// Launch failures are not dispatched; they say nothing about the test
		return
	}

	l.consecutiveLaunchFailures = 0

	filename := l.screenshotPath(def, start)
	code := p.Run(runCtx, filename)

	record := l.buildRecord(def, p.URL(), code, start, filename)
	l.health.RecordRun(record.Status.Success)
	l.dispatcher.Dispatch(record)
}

// screenshotPath returns a unique screenshot filename for this run
func (l *RunLoop) screenshotPath(def models.ProviderDefinition, t time.Time) string {
	name := fmt.Sprintf("%s-%s.png", def.Name, t.Format("20060102-150405"))
	return filepath.Join(l.config.Advanced.ScreenshotPath, name)
}

// buildRecord assembles the run record dispatched to the outputs
func (l *RunLoop) buildRecord(def models.ProviderDefinition, url string, code int, start time.Time, filename string) *models.RunRecord {
	record := &models.RunRecord{
		Timestamp: start,
		RunID:     uuid.New().String(),
		Provider: models.ProviderInfo{
			Name: def.Name,
			URL:  url,
		},
		Status: models.StatusInfo{
			Success:  code == provider.ExitOK,
			ExitCode: code,
		},
		DurationMs: time.Since(start).Milliseconds(),
		Metadata: models.RunMetadata{
			Hostname:  l.hostname,
			Version:   version,
			UserAgent: l.config.Browser.UserAgent,
		},
	}

	if record.Status.Success {
		record.Status.Message = "Speed test completed"
		if info, err := os.Stat(filename); err == nil {
			record.Screenshot = &models.ScreenshotInfo{
				Path:      filename,
				SizeBytes: info.Size(),
			}
		}
	} else {
		record.Status.Message = "Speed test failed"
		record.Error = &models.ErrorInfo{
			ErrorType:    "run_failure",
			ErrorMessage: fmt.Sprintf("provider %s exited with code %d", def.Name, code),
		}
	}

	return record
}
