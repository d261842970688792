package pipeline_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"musicosa/internal/flowgate"
	"musicosa/internal/pipeline"
)

func TestMetricsTextfileIncludesDecisions(t *testing.T) {
	m := pipeline.NewMetrics()
	hook := m.DecisionHook()
	hook("stage_1_collect", flowgate.Retry)
	hook("stage_1_collect", flowgate.Retry)
	hook("stage_1_execute", flowgate.Continue)

	path := filepath.Join(t.TempDir(), "textfile", "musicosa.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	text := string(data)
	for _, want := range []string{
		`musicosa_gate_decisions_total{control="r",step="stage_1_collect"} 2`,
		`musicosa_gate_decisions_total{control="c",step="stage_1_execute"} 1`,
		"musicosa_last_run_timestamp_seconds",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected %q in textfile:\n%s", want, text)
		}
	}
}

func TestNilMetricsAreInert(t *testing.T) {
	var m *pipeline.Metrics
	m.DecisionHook()("stage_1_collect", flowgate.Abort)
	if err := m.WriteTextfile(filepath.Join(t.TempDir(), "musicosa.prom")); err != nil {
		t.Fatalf("expected nil metrics to skip export, got %v", err)
	}
	if m.Registry() != nil {
		t.Fatal("expected nil registry")
	}
}
