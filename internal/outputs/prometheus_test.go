package outputs

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/speedsleuth/speed-sleuth/internal/config"
	"github.com/speedsleuth/speed-sleuth/internal/models"
)

// TestNewPrometheusOutput_Disabled tests that nil is returned when disabled
func TestNewPrometheusOutput_Disabled(t *testing.T) {
	out, err := NewPrometheusOutput(&config.PrometheusConfig{Enabled: false})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if out != nil {
		t.Error("Expected nil output when disabled")
	}
}

// TestPrometheusWrite tests metric updates from a run record
func TestPrometheusWrite(t *testing.T) {
	out, err := NewPrometheusOutput(&config.PrometheusConfig{
		Enabled:       true,
		Port:          19090,
		Path:          "/metrics",
		ListenAddress: "127.0.0.1",
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	defer out.Close()

	record := &models.RunRecord{
		Timestamp:  time.Now(),
		Provider:   models.ProviderInfo{Name: "speedtest"},
		Status:     models.StatusInfo{Success: true, ExitCode: 0},
		DurationMs: 45000,
		Screenshot: &models.ScreenshotInfo{Path: "result.png", SizeBytes: 2048},
	}

	if err := out.Write(record); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if got := testutil.ToFloat64(out.runTotal.WithLabelValues("speedtest", "success")); got != 1 {
		t.Errorf("Expected 1 successful run, got %f", got)
	}
	if got := testutil.ToFloat64(out.runDurationMs.WithLabelValues("speedtest")); got != 45000 {
		t.Errorf("Expected duration gauge 45000, got %f", got)
	}
	if got := testutil.ToFloat64(out.screenshotBytes.WithLabelValues("speedtest")); got != 2048 {
		t.Errorf("Expected screenshot size 2048, got %f", got)
	}

	record.Status = models.StatusInfo{Success: false, ExitCode: 1}
	if err := out.Write(record); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got := testutil.ToFloat64(out.runTotal.WithLabelValues("speedtest", "failure")); got != 1 {
		t.Errorf("Expected 1 failed run, got %f", got)
	}
}

// TestPrometheusWrite_Nil tests that writing to a nil output is safe
func TestPrometheusWrite_Nil(t *testing.T) {
	var out *PrometheusOutput
	if err := out.Write(&models.RunRecord{}); err != nil {
		t.Errorf("Unexpected error from nil output: %v", err)
	}
}
