package outputs

import (
	"testing"
	"time"

	"github.com/speedsleuth/speed-sleuth/internal/config"
)

// TestFormatIndexName tests date pattern expansion in index names
func TestFormatIndexName(t *testing.T) {
	ts := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		pattern  string
		expected string
	}{
		{"speed-sleuth-%{+yyyy.MM.dd}", "speed-sleuth-2024.01.15"},
		{"speed-sleuth-%{+yyyy.MM}", "speed-sleuth-2024.01"},
		{"speed-sleuth-%{+yyyy}", "speed-sleuth-2024"},
		{"speed-sleuth", "speed-sleuth"},
	}

	for _, tt := range tests {
		e := &ElasticsearchOutput{
			config: &config.ElasticsearchConfig{IndexPattern: tt.pattern},
		}
		if got := e.formatIndexName(ts); got != tt.expected {
			t.Errorf("formatIndexName(%q) = %q, want %q", tt.pattern, got, tt.expected)
		}
	}
}

// TestElasticsearchOutput_Disabled tests that nil is returned when disabled
func TestElasticsearchOutput_Disabled(t *testing.T) {
	out, err := NewElasticsearchOutput(&config.ElasticsearchConfig{Enabled: false})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if out != nil {
		t.Error("Expected nil output when disabled")
	}
}

// TestElasticsearchWrite_Nil tests that writing to a nil output is safe
func TestElasticsearchWrite_Nil(t *testing.T) {
	var out *ElasticsearchOutput
	if err := out.Write(nil); err != nil {
		t.Errorf("Unexpected error from nil output: %v", err)
	}
}
