package outputs

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/speedsleuth/speed-sleuth/internal/config"
	"github.com/speedsleuth/speed-sleuth/internal/models"
)

// PrometheusOutput exposes run metrics via an HTTP endpoint
type PrometheusOutput struct {
	config *config.PrometheusConfig
	server *http.Server

	// Metrics
	runTotal             *prometheus.CounterVec
	runDurationMs        *prometheus.GaugeVec
	runDurationHistogram *prometheus.HistogramVec
	lastSuccessTimestamp *prometheus.GaugeVec
	screenshotBytes      *prometheus.GaugeVec
}

// NewPrometheusOutput creates a new Prometheus exporter
func NewPrometheusOutput(cfg *config.PrometheusConfig) (*PrometheusOutput, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	p := &PrometheusOutput{
		config: cfg,
	}

	p.runTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "speed_sleuth_run_total",
			Help: "Total number of speed-test runs performed",
		},
		[]string{"provider", "status"},
	)

	p.runDurationMs = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "speed_sleuth_run_duration_ms",
			Help: "Duration of the most recent run in milliseconds",
		},
		[]string{"provider"},
	)

	buckets := cfg.DurationBuckets
	if len(buckets) == 0 {
		buckets = []float64{5000, 15000, 30000, 60000, 120000, 180000, 300000}
	}

	p.runDurationHistogram = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "speed_sleuth_run_duration_histogram_ms",
			Help:    "Histogram of run durations in milliseconds",
			Buckets: buckets,
		},
		[]string{"provider"},
	)

	p.lastSuccessTimestamp = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "speed_sleuth_last_success_timestamp_seconds",
			Help: "Unix timestamp of the last successful run",
		},
		[]string{"provider"},
	)

	p.screenshotBytes = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "speed_sleuth_screenshot_bytes",
			Help: "Size of the most recent result screenshot in bytes",
		},
		[]string{"provider"},
	)

	collectors := []prometheus.Collector{
		p.runTotal,
		p.runDurationMs,
		p.runDurationHistogram,
		p.lastSuccessTimestamp,
		p.screenshotBytes,
	}

	mux := http.NewServeMux()

	if cfg.IncludeGoMetrics {
		for _, c := range collectors {
			prometheus.MustRegister(c)
		}
		mux.Handle(cfg.Path, promhttp.Handler())
	} else {
		// Custom registry keeps the Go runtime metrics out
		registry := prometheus.NewRegistry()
		for _, c := range collectors {
			registry.MustRegister(c)
		}
		mux.Handle(cfg.Path, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	addr := fmt.Sprintf("%s:%d", cfg.ListenAddress, cfg.Port)
	p.server = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("Starting Prometheus exporter on %s%s", addr, cfg.Path)
		if err := p.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("Prometheus server error: %v", err)
		}
	}()

	return p, nil
}

// Write updates Prometheus metrics with the run record
func (p *PrometheusOutput) Write(record *models.RunRecord) error {
	if p == nil {
		return nil
	}

	providerName := record.Provider.Name

	status := "failure"
	if record.Status.Success {
		status = "success"
	}
	p.runTotal.WithLabelValues(providerName, status).Inc()

	durationMs := float64(record.DurationMs)
	p.runDurationMs.WithLabelValues(providerName).Set(durationMs)
	p.runDurationHistogram.WithLabelValues(providerName).Observe(durationMs)

	if record.Status.Success {
		p.lastSuccessTimestamp.WithLabelValues(providerName).Set(float64(record.Timestamp.Unix()))
	}

	if record.Screenshot != nil {
		p.screenshotBytes.WithLabelValues(providerName).Set(float64(record.Screenshot.SizeBytes))
	}

	return nil
}

// Name returns the output module name
func (p *PrometheusOutput) Name() string {
	return "prometheus"
}

// Close shuts down the HTTP server
func (p *PrometheusOutput) Close() error {
	if p == nil || p.server == nil {
		return nil
	}

	log.Println("Shutting down Prometheus exporter...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return p.server.Shutdown(ctx)
}
