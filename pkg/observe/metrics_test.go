package observe

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/linq2js/resignal"
)

func gatherCounter(t *testing.T, reg *prometheus.Registry, name, signal string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, m := range fam.GetMetric() {
			if metricLabel(m, "signal") == signal {
				if m.GetCounter() != nil {
					return m.GetCounter().GetValue()
				}
				return m.GetGauge().GetValue()
			}
		}
	}
	return 0
}

func gatherGauge(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
	for _, fam := range families {
		if fam.GetName() == name {
			return fam.GetMetric()[0].GetGauge().GetValue()
		}
	}
	return 0
}

func metricLabel(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}

func TestPrometheusCountsLifecycle(t *testing.T) {
	reg := prometheus.NewRegistry()
	stop := Prometheus(WithRegistry(reg), WithNamespace("test"))
	defer stop()

	s := resignal.New[int](resignal.WithKey[int]("counter"))
	s.Invoke(resignal.Value(1))
	s.Invoke(resignal.Value(2))
	s.Invoke(resignal.Effect(func(*resignal.Context) (resignal.Result[int], error) {
		return resignal.Result[int]{}, errors.New("boom")
	}))

	if got := gatherCounter(t, reg, "test_invocations_total", "counter"); got != 3 {
		t.Errorf("invocations_total = %.0f, want 3", got)
	}
	if got := gatherCounter(t, reg, "test_emits_total", "counter"); got != 2 {
		t.Errorf("emits_total = %.0f, want 2", got)
	}
	if got := gatherCounter(t, reg, "test_errors_total", "counter"); got != 1 {
		t.Errorf("errors_total = %.0f, want 1", got)
	}
}

func TestPrometheusTracksLoadingAndCancel(t *testing.T) {
	reg := prometheus.NewRegistry()
	stop := Prometheus(WithRegistry(reg), WithNamespace("test"))
	defer stop()

	s := resignal.New[int](resignal.WithKey[int]("job"))
	s.Invoke(resignal.Future(resignal.NewTask[int]()))
	s.Cancel()

	if got := gatherCounter(t, reg, "test_loading_total", "job"); got != 1 {
		t.Errorf("loading_total = %.0f, want 1", got)
	}
	if got := gatherCounter(t, reg, "test_cancels_total", "job"); got != 1 {
		t.Errorf("cancels_total = %.0f, want 1", got)
	}
}

func TestPrometheusLiveContextGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	stop := Prometheus(WithRegistry(reg), WithNamespace("test"))
	defer stop()

	s := resignal.New[int]()
	task := resignal.NewTask[int]()
	s.Invoke(resignal.Future(task))

	if got := gatherGauge(t, reg, "test_live_contexts"); got != 1 {
		t.Errorf("live_contexts = %.0f, want 1 while pending", got)
	}

	task.Complete(1)
	if got := gatherGauge(t, reg, "test_live_contexts"); got != 0 {
		t.Errorf("live_contexts = %.0f, want 0 after settlement", got)
	}
}

func TestPrometheusStopDetachesHook(t *testing.T) {
	reg := prometheus.NewRegistry()
	stop := Prometheus(WithRegistry(reg), WithNamespace("test"))

	s := resignal.New[int](resignal.WithKey[int]("x"))
	s.Invoke(resignal.Value(1))
	stop()
	s.Invoke(resignal.Value(2))

	if got := gatherCounter(t, reg, "test_invocations_total", "x"); got != 1 {
		t.Errorf("invocations_total = %.0f, want 1 after stop", got)
	}
}
