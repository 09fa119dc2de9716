package observability

import (
	"fmt"
	"testing"
	"time"
)

func TestPipelineWindowSnapshot(t *testing.T) {
	w := newPipelineWindow(8)
	w.observe(StageGenerate, 500*time.Millisecond)
	w.observe(StageGenerate, 700*time.Millisecond)
	w.observe(StageGenerate, 7*time.Second)
	w.count("generation_fallback")
	w.count("generation_fallback")

	snap := w.snapshot()
	if snap.WindowSize != 8 {
		t.Fatalf("WindowSize = %d, want 8", snap.WindowSize)
	}
	if len(snap.Stages) != 1 {
		t.Fatalf("len(Stages) = %d, want 1", len(snap.Stages))
	}
	s := snap.Stages[0]
	if s.Stage != StageGenerate || s.Samples != 3 {
		t.Fatalf("stage = %q samples = %d, want generate and 3", s.Stage, s.Samples)
	}
	if s.LastMS != 7000 || s.MaxMS != 7000 {
		t.Fatalf("LastMS = %.2f MaxMS = %.2f, want 7000", s.LastMS, s.MaxMS)
	}
	if s.P50MS != 700 || s.P95MS != 7000 {
		t.Fatalf("P50MS = %.2f P95MS = %.2f, want 700 and 7000", s.P50MS, s.P95MS)
	}
	if s.BudgetMS != 6000 || s.OverBudget != 1 {
		t.Fatalf("BudgetMS = %.2f OverBudget = %d, want 6000 and 1", s.BudgetMS, s.OverBudget)
	}
	if len(snap.Indicators) != 1 || snap.Indicators[0].Count != 2 {
		t.Fatalf("Indicators = %+v, want one indicator with count 2", snap.Indicators)
	}
}

func TestPipelineWindowKeepsNewestSamples(t *testing.T) {
	w := newPipelineWindow(4)
	for i := 1; i <= 6; i++ {
		w.observe(StageEmbed, time.Duration(i*100)*time.Millisecond)
	}
	s := w.snapshot().Stages[0]
	if s.Samples != 4 {
		t.Fatalf("Samples = %d, want 4", s.Samples)
	}
	if s.AvgMS != 450 {
		t.Fatalf("AvgMS = %.2f, want 450", s.AvgMS)
	}
}

func TestPipelineWindowReportsPipelineOrder(t *testing.T) {
	w := newPipelineWindow(4)
	w.observe(StageTotal, time.Second)
	w.observe("custom", time.Millisecond)
	w.observe(StageHistory, time.Millisecond)
	w.observe(StageRetrieve, time.Millisecond)

	var got []Stage
	for _, s := range w.snapshot().Stages {
		got = append(got, s.Stage)
	}
	want := []Stage{StageHistory, StageRetrieve, StageTotal, "custom"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("order = %v, want %v", got, want)
	}

	w.reset()
	if n := len(w.snapshot().Stages); n != 0 {
		t.Fatalf("len(Stages) after reset = %d, want 0", n)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveStage(StageTotal, time.Second)
	m.ObserveChat("ok")
	m.ObserveFallback()
	if got := len(m.StageSnapshot().Stages); got != 0 {
		t.Fatalf("len(Stages) = %d, want 0", got)
	}
}

func TestMetricsObserveStage(t *testing.T) {
	m := NewMetrics(fmt.Sprintf("chatbot_test_obs_%d", time.Now().UnixNano()))
	m.ObserveStage(StageRetrieve, 40*time.Millisecond)
	m.ObserveSideEffectFailure("analytics")
	snap := m.StageSnapshot()
	if len(snap.Stages) != 1 || snap.Stages[0].LastMS != 40 {
		t.Fatalf("Stages = %+v, want retrieve at 40ms", snap.Stages)
	}
	if len(snap.Indicators) != 1 || snap.Indicators[0].Name != "analytics_failed" {
		t.Fatalf("Indicators = %+v, want analytics_failed", snap.Indicators)
	}
}
