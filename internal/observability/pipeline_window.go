package observability

import (
	"math"
	"sort"
	"strings"
	"sync"
	"time"
)

// Stage names one step of a chat pipeline run.
type Stage string

const (
	StageHistory  Stage = "history"
	StageIntent   Stage = "intent"
	StageEmbed    Stage = "embed"
	StageRetrieve Stage = "retrieve"
	StageHydrate  Stage = "hydrate"
	StageGenerate Stage = "generate"
	StageTotal    Stage = "total"
)

// pipelineOrder is the order stages are reported in. Stages not listed here
// follow, sorted by name.
var pipelineOrder = []Stage{
	StageHistory, StageIntent, StageEmbed, StageRetrieve, StageHydrate, StageGenerate, StageTotal,
}

// stageBudgets are per-run latency budgets. Embed and generate include
// provider retries.
var stageBudgets = map[Stage]time.Duration{
	StageHistory:  100 * time.Millisecond,
	StageIntent:   1500 * time.Millisecond,
	StageEmbed:    2 * time.Second,
	StageRetrieve: 500 * time.Millisecond,
	StageHydrate:  300 * time.Millisecond,
	StageGenerate: 6 * time.Second,
	StageTotal:    10 * time.Second,
}

type StageStats struct {
	Stage      Stage   `json:"stage"`
	Samples    int     `json:"samples"`
	LastMS     float64 `json:"last_ms"`
	AvgMS      float64 `json:"avg_ms"`
	P50MS      float64 `json:"p50_ms"`
	P95MS      float64 `json:"p95_ms"`
	MaxMS      float64 `json:"max_ms"`
	BudgetMS   float64 `json:"budget_ms,omitempty"`
	OverBudget int     `json:"over_budget"`
}

type Indicator struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type StageSnapshot struct {
	GeneratedAt time.Time    `json:"generated_at"`
	WindowSize  int          `json:"window_size"`
	Stages      []StageStats `json:"stages"`
	Indicators  []Indicator  `json:"indicators,omitempty"`
}

// pipelineWindow keeps the most recent size samples per stage plus event
// counts since the last reset.
type pipelineWindow struct {
	mu      sync.Mutex
	size    int
	samples map[Stage][]time.Duration
	events  map[string]int
}

func newPipelineWindow(size int) *pipelineWindow {
	if size <= 0 {
		size = 256
	}
	return &pipelineWindow{
		size:    size,
		samples: make(map[Stage][]time.Duration),
		events:  make(map[string]int),
	}
}

func (w *pipelineWindow) observe(stage Stage, d time.Duration) {
	if stage == "" || d < 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	s := append(w.samples[stage], d)
	if len(s) > w.size {
		s = append([]time.Duration(nil), s[len(s)-w.size:]...)
	}
	w.samples[stage] = s
}

func (w *pipelineWindow) count(event string) {
	event = strings.TrimSpace(event)
	if event == "" {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.events[event]++
}

func (w *pipelineWindow) snapshot() StageSnapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	snap := StageSnapshot{
		GeneratedAt: time.Now().UTC(),
		WindowSize:  w.size,
		Stages:      make([]StageStats, 0, len(w.samples)),
	}
	for _, stage := range w.reportOrder() {
		snap.Stages = append(snap.Stages, summarizeStage(stage, w.samples[stage]))
	}

	names := make([]string, 0, len(w.events))
	for name := range w.events {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		snap.Indicators = append(snap.Indicators, Indicator{Name: name, Count: w.events[name]})
	}
	return snap
}

func (w *pipelineWindow) reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.samples = make(map[Stage][]time.Duration)
	w.events = make(map[string]int)
}

func (w *pipelineWindow) reportOrder() []Stage {
	known := make(map[Stage]bool, len(pipelineOrder))
	out := make([]Stage, 0, len(w.samples))
	for _, stage := range pipelineOrder {
		known[stage] = true
		if len(w.samples[stage]) > 0 {
			out = append(out, stage)
		}
	}
	var extra []Stage
	for stage, s := range w.samples {
		if !known[stage] && len(s) > 0 {
			extra = append(extra, stage)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(out, extra...)
}

func summarizeStage(stage Stage, samples []time.Duration) StageStats {
	sorted := append([]time.Duration(nil), samples...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	budget := stageBudgets[stage]
	var sum time.Duration
	over := 0
	for _, d := range samples {
		sum += d
		if budget > 0 && d > budget {
			over++
		}
	}
	n := len(sorted)
	return StageStats{
		Stage:      stage,
		Samples:    n,
		LastMS:     millis(samples[n-1]),
		AvgMS:      millis(sum / time.Duration(n)),
		P50MS:      millis(nearestRank(sorted, 0.50)),
		P95MS:      millis(nearestRank(sorted, 0.95)),
		MaxMS:      millis(sorted[n-1]),
		BudgetMS:   millis(budget),
		OverBudget: over,
	}
}

// nearestRank expects sorted to be non-empty and ascending.
func nearestRank(sorted []time.Duration, q float64) time.Duration {
	idx := int(q*float64(len(sorted))+0.5) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// millis rounds to two decimals.
func millis(d time.Duration) float64 {
	return math.Round(float64(d.Microseconds())/10) / 100
}
