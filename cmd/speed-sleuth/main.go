package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/speedsleuth/speed-sleuth/internal/browser"
	"github.com/speedsleuth/speed-sleuth/internal/config"
	"github.com/speedsleuth/speed-sleuth/internal/health"
	"github.com/speedsleuth/speed-sleuth/internal/metrics"
	"github.com/speedsleuth/speed-sleuth/internal/outputs"
	"github.com/speedsleuth/speed-sleuth/internal/provider"
	"github.com/speedsleuth/speed-sleuth/internal/runloop"

	// Concrete providers register themselves
	_ "github.com/speedsleuth/speed-sleuth/internal/provider/speedtest"
)

const version = "1.0.0"

func main() {
	printBanner()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	setupLogging(&cfg.Logging)

	launcher := browser.NewChromeLauncher(&cfg.Browser)

	switch cfg.General.Mode {
	case config.ModeMonitor:
		runMonitor(cfg, launcher)
	default:
		runOnce(cfg, launcher)
	}
}

// runOnce performs a single speed test and exits with its status code.
// On failure the provider's cleanup terminates the process directly.
func runOnce(cfg *config.Config, launcher browser.Launcher) {
	def := cfg.Providers.List[0]

	ctx, cancel := context.WithTimeout(context.Background(), cfg.General.GlobalTimeout)
	defer cancel()

	p, err := provider.New(ctx, def.Name, launcher)
	if err != nil {
		log.Fatalf("Failed to create provider: %v", err)
	}

	code := p.Run(ctx, def.GetOutputFile())
	if code == provider.ExitOK {
		log.Printf("Speed test complete, results written to %s", def.GetOutputFile())
	}
	os.Exit(code)
}

// runMonitor starts the continuous monitor with all configured outputs
func runMonitor(cfg *config.Config, launcher browser.Launcher) {
	log.Printf("Loaded configuration: %d providers to run", len(cfg.Providers.List))
	log.Printf("  Run interval: %v", cfg.General.RunInterval)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dispatcher := metrics.NewDispatcher()

	// The JSON/text logger is always on
	logger, err := outputs.NewLogger(&cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	dispatcher.RegisterOutput(logger)
	log.Println("✓ Run-record logger enabled")

	esOutput, err := outputs.NewElasticsearchOutput(&cfg.Elasticsearch)
	if err != nil {
		log.Fatalf("Failed to create Elasticsearch output: %v", err)
	}
	if esOutput != nil {
		dispatcher.RegisterOutput(esOutput)
		log.Println("✓ Elasticsearch output enabled")
	}

	promOutput, err := outputs.NewPrometheusOutput(&cfg.Prometheus)
	if err != nil {
		log.Fatalf("Failed to create Prometheus output: %v", err)
	}
	if promOutput != nil {
		dispatcher.RegisterOutput(promOutput)
		log.Println("✓ Prometheus exporter enabled")
	}

	snmpOutput, err := outputs.NewSNMPOutput(&cfg.SNMP, cfg.General.CacheSize)
	if err != nil {
		log.Fatalf("Failed to create SNMP output: %v", err)
	}
	if snmpOutput != nil {
		dispatcher.RegisterOutput(snmpOutput)
		log.Println("✓ SNMP agent enabled")
	}

	healthCfg := &health.Config{
		Enabled:       cfg.Advanced.HealthCheckEnabled,
		Port:          cfg.Advanced.HealthCheckPort,
		Path:          cfg.Advanced.HealthCheckPath,
		ListenAddress: "0.0.0.0",
		StaleAfter:    3 * cfg.General.RunInterval,
	}
	healthServer, err := health.NewServer(healthCfg)
	if err != nil {
		log.Fatalf("Failed to create health check server: %v", err)
	}
	if healthServer != nil {
		log.Println("✓ Health check endpoint enabled")
	}

	loop, err := runloop.NewRunLoop(cfg, launcher, dispatcher, healthServer)
	if err != nil {
		log.Fatalf("Failed to create run loop: %v", err)
	}
	log.Println("✓ Run loop initialized")

	loopDone := make(chan error, 1)
	go func() {
		loopDone <- loop.Run(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	log.Println("speed-sleuth monitor started. Press Ctrl+C to stop.")
	log.Println()

	loopStopped := false
	select {
	case <-sigChan:
		log.Println("\nReceived shutdown signal...")
	case err := <-loopDone:
		loopStopped = true
		if err != nil {
			log.Printf("Run loop exited with error: %v", err)
		}
	}

	log.Println("Shutting down gracefully...")
	cancel()

	if !loopStopped {
		select {
		case <-loopDone:
			log.Println("✓ Run loop stopped")
		case <-time.After(cfg.Advanced.ShutdownTimeout):
			log.Println("⚠ Shutdown timeout exceeded")
		}
	}

	if esOutput != nil {
		if err := esOutput.Close(); err != nil {
			log.Printf("Error closing Elasticsearch output: %v", err)
		} else {
			log.Println("✓ Elasticsearch output closed")
		}
	}

	if promOutput != nil {
		if err := promOutput.Close(); err != nil {
			log.Printf("Error closing Prometheus exporter: %v", err)
		} else {
			log.Println("✓ Prometheus exporter closed")
		}
	}

	if snmpOutput != nil {
		if err := snmpOutput.Close(); err != nil {
			log.Printf("Error closing SNMP agent: %v", err)
		} else {
			log.Println("✓ SNMP agent closed")
		}
	}

	if healthServer != nil {
		if err := healthServer.Close(); err != nil {
			log.Printf("Error closing health check server: %v", err)
		} else {
			log.Println("✓ Health check server closed")
		}
	}

	log.Println("Shutdown complete")
}

// setupLogging configures the default slog logger
func setupLogging(cfg *config.LoggingConfig) {
	level := outputs.ParseLogLevel(cfg.Level)

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(handler))
}

func printBanner() {
	fmt.Println("╔════════════════════════════════════════════════════════════╗")
	fmt.Println("║  speed-sleuth                                              ║")
	fmt.Printf("║  Version: %-48s ║\n", version)
	fmt.Println("║  Browser-driven internet speed tests with screenshots      ║")
	fmt.Println("╚════════════════════════════════════════════════════════════╝")
	fmt.Println()
}
