package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestRecorder_IncrementsAreObservable(t *testing.T) {
	r := NewRecorder(prometheus.NewRegistry())

	r.IncEnqueued()
	r.IncCompleted()
	r.IncFailed()
	r.IncFailed()
	r.IncDead()

	if v := counterValue(t, r.JobsEnqueued); v != 1 {
		t.Errorf("JobsEnqueued = %v, want 1", v)
	}
	if v := counterValue(t, r.JobsCompleted); v != 1 {
		t.Errorf("JobsCompleted = %v, want 1", v)
	}
	if v := counterValue(t, r.JobsFailed); v != 2 {
		t.Errorf("JobsFailed = %v, want 2", v)
	}
	if v := counterValue(t, r.JobsDead); v != 1 {
		t.Errorf("JobsDead = %v, want 1", v)
	}
}

func TestRecorder_NilSafe(t *testing.T) {
	var r *Recorder

	// None of these should panic on a nil Recorder — a worker built
	// without `metrics serve` running must behave identically.
	r.IncEnqueued()
	r.IncCompleted()
	r.IncFailed()
	r.IncDead()
	r.RefreshGauges(map[string]int{"pending": 1}, 2)
}

func TestRecorder_RefreshGaugesSetsPointInTimeValues(t *testing.T) {
	r := NewRecorder(prometheus.NewRegistry())
	r.RefreshGauges(map[string]int{"pending": 3, "running": 1}, 2)

	var m dto.Metric
	if err := r.JobsPending.Write(&m); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if m.GetGauge().GetValue() != 3 {
		t.Errorf("JobsPending = %v, want 3", m.GetGauge().GetValue())
	}
}
