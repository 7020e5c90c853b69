package health

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"
)

// Server provides a health check endpoint for the monitor mode
type Server struct {
	config       *Config
	server       *http.Server
	mu           sync.RWMutex
	lastRunTime  time.Time
	runCount     int64
	successCount int64
	failureCount int64
	isHealthy    bool
}

// Config contains health check server configuration
type Config struct {
	Enabled       bool
	Port          int
	Path          string
	ListenAddress string

	// StaleAfter marks the monitor unhealthy when no run has completed
	// within this window. Zero disables the staleness check.
	StaleAfter time.Duration
}

// Response is the JSON response structure
type Response struct {
	Status       string    `json:"status"`
	Timestamp    time.Time `json:"timestamp"`
	LastRunTime  time.Time `json:"last_run_time,omitempty"`
	RunCount     int64     `json:"run_count"`
	SuccessCount int64     `json:"success_count"`
	FailureCount int64     `json:"failure_count"`
	Uptime       string    `json:"uptime"`
}

var startTime = time.Now()

// NewServer creates a new health check server
func NewServer(cfg *Config) (*Server, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	h := &Server{
		config:    cfg,
		isHealthy: true,
	}

	mux := http.NewServeMux()
	mux.HandleFunc(cfg.Path, h.handleHealth)

	addr := fmt.Sprintf("%s:%d", cfg.ListenAddress, cfg.Port)
	h.server = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("Health check endpoint started on %s%s", addr, cfg.Path)
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("Health check server error: %v", err)
		}
	}()

	return h, nil
}

// handleHealth handles health check requests
func (h *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	status := "healthy"
	statusCode := http.StatusOK

	// Speed-test runs are minutes apart, so staleness is measured
	// against the configured window rather than a fixed cutoff
	if h.config.StaleAfter > 0 && h.runCount > 0 && time.Since(h.lastRunTime) > h.config.StaleAfter {
		status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	}

	if !h.isHealthy {
		status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	}

	response := Response{
		Status:       status,
		Timestamp:    time.Now(),
		LastRunTime:  h.lastRunTime,
		RunCount:     h.runCount,
		SuccessCount: h.successCount,
		FailureCount: h.failureCount,
		Uptime:       time.Since(startTime).String(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Printf("Error encoding health response: %v", err)
	}
}

// RecordRun records a completed speed-test run
func (h *Server) RecordRun(success bool) {
	if h == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastRunTime = time.Now()
	h.runCount++

	if success {
		h.successCount++
	} else {
		h.failureCount++
	}
}

// SetHealthy sets the health status
func (h *Server) SetHealthy(healthy bool) {
	if h == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.isHealthy = healthy
}

// GetStats returns current health statistics
func (h *Server) GetStats() (runCount, successCount, failureCount int64, lastRunTime time.Time) {
	if h == nil {
		return 0, 0, 0, time.Time{}
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.runCount, h.successCount, h.failureCount, h.lastRunTime
}

// Close shuts down the health check server
func (h *Server) Close() error {
	if h == nil || h.server == nil {
		return nil
	}

	log.Println("Shutting down health check server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return h.server.Shutdown(ctx)
}
