package observability

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"verbose", zerolog.InfoLevel},
	}
	for _, tc := range tests {
		if got := ParseLevel(tc.in); got != tc.want {
			t.Errorf("ParseLevel(%q): got %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerTo(&buf, "calculator", "info", "json")

	log.Debug().Msg("hidden")
	log.Info().Str("engine", "lcr").Msg("calculated")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d log lines, want 1 (debug filtered): %q", len(lines), buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["component"] != "calculator" {
		t.Errorf("component: got %v", entry["component"])
	}
	if entry["engine"] != "lcr" {
		t.Errorf("engine: got %v", entry["engine"])
	}
	if _, ok := entry["time"]; !ok {
		t.Error("expected a timestamp field")
	}
}

func TestNewLoggerText(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerTo(&buf, "api", "debug", "text")
	log.Debug().Msg("console output")

	out := buf.String()
	if !strings.Contains(out, "console output") {
		t.Errorf("missing message in %q", out)
	}
	if strings.HasPrefix(strings.TrimSpace(out), "{") {
		t.Errorf("text format should not emit JSON: %q", out)
	}
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.ObserveCalculation("leverage", OutcomeOK, time.Millisecond)
	m.ObserveCalculation("leverage", OutcomeDivisionByZero, time.Millisecond)
	m.ObserveCalculation("leverage", OutcomeOK, time.Millisecond)
	m.ObserveCompliance("leverage", true)
	m.ObserveUpstream("chat", "ok", 20*time.Millisecond)

	if got := testutil.ToFloat64(m.Calculations.WithLabelValues("leverage", OutcomeOK)); got != 2 {
		t.Errorf("calculations ok: got %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.ComplianceResults.WithLabelValues("leverage", "true")); got != 1 {
		t.Errorf("compliance true: got %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.UpstreamRequests.WithLabelValues("chat", "ok")); got != 1 {
		t.Errorf("upstream ok: got %v, want 1", got)
	}

	// A second registry must accept a fresh set of collectors.
	NewMetrics(prometheus.NewRegistry())
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveCalculation("lcr", OutcomeOK, time.Millisecond)
	m.ObserveCompliance("lcr", true)
	m.ObserveUpstream("stats", "ok", time.Millisecond)
}

func TestHealthChecker(t *testing.T) {
	h := NewHealthChecker()
	if h.IsReady() {
		t.Error("checker should start not ready")
	}
	h.SetReady(true)
	if !h.IsReady() {
		t.Error("checker should be ready after SetReady(true)")
	}
	if h.Uptime() < 0 {
		t.Error("uptime should be non-negative")
	}
}
