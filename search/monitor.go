package search

import (
	"fmt"
	"io"
	"sync"

	"github.com/poiesic/scout/core"
	"github.com/poiesic/scout/discovery"
	"github.com/poiesic/scout/prioritize"
)

// RunMonitor provides hooks to observe an orchestration run.
// Implement this interface to trace intermediate results per stage and window.
type RunMonitor interface {
	Start(runID string, req core.SearchRequest)
	AfterDiscovery(window core.WindowTag, candidates []core.CandidateURL, stats discovery.Stats)
	AfterFilter(window core.WindowTag, kept []core.CandidateURL, droppedAggregators int)
	AfterPrioritize(window core.WindowTag, result *prioritize.Result)
	AfterExtraction(window core.WindowTag, candidates []*core.EventCandidate, failures int)
	AfterValidation(window core.WindowTag, accepted, rejected []*core.EventCandidate)
	WindowExpanded(window core.WindowTag, req core.SearchRequest)
	Finish(result *core.RunResult)
}

// noopMonitor is a no-op implementation of RunMonitor
type noopMonitor struct{}

var _ RunMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string, _ core.SearchRequest)                                      {}
func (n *noopMonitor) AfterDiscovery(_ core.WindowTag, _ []core.CandidateURL, _ discovery.Stats) {}
func (n *noopMonitor) AfterFilter(_ core.WindowTag, _ []core.CandidateURL, _ int)                {}
func (n *noopMonitor) AfterPrioritize(_ core.WindowTag, _ *prioritize.Result)                    {}
func (n *noopMonitor) AfterExtraction(_ core.WindowTag, _ []*core.EventCandidate, _ int)         {}
func (n *noopMonitor) AfterValidation(_ core.WindowTag, _, _ []*core.EventCandidate)             {}
func (n *noopMonitor) WindowExpanded(_ core.WindowTag, _ core.SearchRequest)                     {}
func (n *noopMonitor) Finish(_ *core.RunResult)                                                  {}

// WriterMonitor prints a one-line trace per stage.
type WriterMonitor struct {
	mu sync.Mutex
	w  io.Writer
}

var _ RunMonitor = (*WriterMonitor)(nil)

// NewWriterMonitor creates a monitor writing to w.
func NewWriterMonitor(w io.Writer) *WriterMonitor {
	return &WriterMonitor{w: w}
}

func (m *WriterMonitor) printf(format string, args ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fmt.Fprintf(m.w, format+"\n", args...)
}

func (m *WriterMonitor) Start(runID string, req core.SearchRequest) {
	m.printf("run %s: term=%q country=%s window=%s..%s", runID, req.Term, req.Country,
		req.From.Format("2006-01-02"), req.To.Format("2006-01-02"))
}

func (m *WriterMonitor) AfterDiscovery(window core.WindowTag, candidates []core.CandidateURL, stats discovery.Stats) {
	m.printf("[%s] discovery: %d urls from %d variants (cache %d/%d, calls %d, dropped %d)",
		window, len(candidates), stats.Variants, stats.CacheHits, stats.CacheLookups,
		stats.ProviderCalls, stats.DroppedVariants)
}

func (m *WriterMonitor) AfterFilter(window core.WindowTag, kept []core.CandidateURL, droppedAggregators int) {
	m.printf("[%s] filter: kept %d, dropped %d aggregator urls", window, len(kept), droppedAggregators)
}

func (m *WriterMonitor) AfterPrioritize(window core.WindowTag, result *prioritize.Result) {
	kept := 0
	for _, s := range result.Scored {
		if s.Keep {
			kept++
		}
	}
	m.printf("[%s] prioritize: %d of %d kept, %d of %d batches on fallback",
		window, kept, len(result.Scored), result.FallbackBatches, len(result.Batches))
}

func (m *WriterMonitor) AfterExtraction(window core.WindowTag, candidates []*core.EventCandidate, failures int) {
	m.printf("[%s] extraction: %d candidates, %d failures", window, len(candidates), failures)
}

func (m *WriterMonitor) AfterValidation(window core.WindowTag, accepted, rejected []*core.EventCandidate) {
	m.printf("[%s] quality: %d accepted, %d rejected", window, len(accepted), len(rejected))
	for _, c := range rejected {
		if c.Verdict != nil {
			m.printf("  rejected %s (score %.2f): %v", c.SourceURL, c.Verdict.Score, c.Verdict.Reasons)
		}
	}
}

func (m *WriterMonitor) WindowExpanded(window core.WindowTag, req core.SearchRequest) {
	m.printf("expanding to %s: %s..%s", window, req.From.Format("2006-01-02"), req.To.Format("2006-01-02"))
}

func (m *WriterMonitor) Finish(result *core.RunResult) {
	md := result.Metadata
	m.printf("run %s finished: %d candidates, cache hit ratio %.2f, windows %v",
		md.ID, len(result.Candidates), md.CacheHitRatio(), md.WindowCounts)
	for _, d := range md.Degraded {
		m.printf("  degraded: %s", d)
	}
}
