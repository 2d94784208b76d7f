package events

import (
	"testing"

	"github.com/oriys/physlab/internal/domain"
)

func TestSubjectFor(t *testing.T) {
	tests := []struct {
		module string
		want   string
	}{
		{"Kinematics", "calculation.kinematics.recorded"},
		{"Ohm's Law", "calculation.ohm_s_law.recorded"},
		{"Scientific Calculator", "calculation.scientific_calculator.recorded"},
		{"  ", "calculation.unknown.recorded"},
	}
	for _, tt := range tests {
		if got := SubjectFor(tt.module); got != tt.want {
			t.Errorf("SubjectFor(%q) = %q, want %q", tt.module, got, tt.want)
		}
	}
}

// TestCalculationEvent_RoundTrip 验证事件封装后可以还原历史记录
func TestCalculationEvent_RoundTrip(t *testing.T) {
	entry := domain.NewHistoryEntry("Optics", map[string]any{"f": 10.0}, map[string]any{"v": 30.0})

	event, err := NewCalculationEvent("test", entry)
	if err != nil {
		t.Fatalf("NewCalculationEvent: %v", err)
	}
	if event.ID != entry.ID || event.Subject != "calculation.optics.recorded" {
		t.Errorf("event = %+v", event)
	}

	payload := []byte(`{"id":"` + event.ID + `","type":"calculation.recorded","data":` + string(event.Data) + `}`)
	got, err := DecodeCalculation(payload)
	if err != nil {
		t.Fatalf("DecodeCalculation: %v", err)
	}
	if got.Module != "Optics" || got.Outputs["v"] != 30.0 {
		t.Errorf("decoded = %+v", got)
	}

	if _, err := DecodeCalculation([]byte(`{"type":"other","data":{}}`)); err == nil {
		t.Error("expected error for unexpected event type")
	}
}
