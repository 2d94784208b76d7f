package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Collector) float64 {
	t.Helper()
	ch := make(chan prometheus.Metric, 1)
	c.Collect(ch)
	var m dto.Metric
	if err := (<-ch).Write(&m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	if m.Counter != nil {
		return m.Counter.GetValue()
	}
	return m.Gauge.GetValue()
}

func TestRecordCalculation(t *testing.T) {
	m := NewMetricsWith(prometheus.NewRegistry(), "test")

	m.RecordCalculation("kinematics", 0.2, "")
	m.RecordCalculation("kinematics", 0.3, "")
	m.RecordCalculation("kinematics", 0.1, "invalid_input")

	if v := counterValue(t, m.CalculationsTotal.WithLabelValues("kinematics", "success")); v != 2 {
		t.Errorf("success count = %v, want 2", v)
	}
	if v := counterValue(t, m.CalculationsTotal.WithLabelValues("kinematics", "error")); v != 1 {
		t.Errorf("error count = %v, want 1", v)
	}
	if v := counterValue(t, m.CalculationErrors.WithLabelValues("kinematics", "invalid_input")); v != 1 {
		t.Errorf("invalid_input count = %v, want 1", v)
	}
}

func TestUpdateHistoryStats(t *testing.T) {
	m := NewMetricsWith(prometheus.NewRegistry(), "test")

	m.UpdateHistoryStats(3, map[string]int{"Optics": 2, "Energy": 1})
	if v := counterValue(t, m.HistoryEntries); v != 3 {
		t.Errorf("history_entries = %v, want 3", v)
	}
	if v := counterValue(t, m.HistoryEntriesByModule.WithLabelValues("Optics")); v != 2 {
		t.Errorf("Optics = %v, want 2", v)
	}

	m.RecordTrim(0)
	m.RecordTrim(4)
	if v := counterValue(t, m.HistoryTrimmed); v != 4 {
		t.Errorf("history_trimmed_total = %v, want 4", v)
	}
}
