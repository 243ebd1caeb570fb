// Package recorder measures wall-clock latency and outcome around every
// adapter call and keeps the per-operation-kind sample sets the diagnostic
// analyzer consumes.
package recorder

import (
	"sync"
	"sync/atomic"
	"time"
)

// Kind identifies an operation class. String values double as report keys.
type Kind string

const (
	KindPing   Kind = "ping"
	KindSet    Kind = "set"
	KindGet    Kind = "get"
	KindDel    Kind = "del"
	KindReload Kind = "reload"
)

// Kinds lists every operation kind in report order.
var Kinds = []Kind{KindPing, KindSet, KindGet, KindDel, KindReload}

// Outcome is what a measured closure reports back.
type Outcome struct {
	OK     bool
	ErrMsg string
}

// Sample is one recorded operation. Immutable once recorded.
type Sample struct {
	Kind    Kind
	Latency time.Duration
	Success bool
	ErrMsg  string
}

// Recorder accumulates samples per kind. Safe for concurrent use; sample
// order within a kind is issuance order as seen by the recorder.
type Recorder struct {
	Requests uint64
	Success  uint64
	Fail     uint64

	mu      sync.Mutex
	samples map[Kind][]Sample
	hists   map[Kind]*SafeHistogram
}

func New() *Recorder {
	r := &Recorder{
		samples: make(map[Kind][]Sample),
		hists:   make(map[Kind]*SafeHistogram),
	}
	for _, k := range Kinds {
		r.hists[k] = NewSafeHistogram()
	}
	return r
}

// Measure wall-clocks call and records the result. The closure itself is
// expected to swallow failures into the Outcome; the recorder never
// re-raises anything.
func (r *Recorder) Measure(kind Kind, call func() Outcome) Sample {
	start := time.Now()
	out := call()
	elapsed := time.Since(start)

	s := Sample{
		Kind:    kind,
		Latency: elapsed,
		Success: out.OK,
		ErrMsg:  out.ErrMsg,
	}
	r.record(s)
	return s
}

func (r *Recorder) record(s Sample) {
	atomic.AddUint64(&r.Requests, 1)
	if s.Success {
		atomic.AddUint64(&r.Success, 1)
	} else {
		atomic.AddUint64(&r.Fail, 1)
	}
	r.hists[s.Kind].RecordDuration(s.Latency)

	r.mu.Lock()
	r.samples[s.Kind] = append(r.samples[s.Kind], s)
	r.mu.Unlock()
}

// Samples returns a copy of the recorded samples for a kind.
func (r *Recorder) Samples(kind Kind) []Sample {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Sample, len(r.samples[kind]))
	copy(out, r.samples[kind])
	return out
}

// LatencySeconds returns per-sample latencies for a kind, in seconds.
func (r *Recorder) LatencySeconds(kind Kind) []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]float64, 0, len(r.samples[kind]))
	for _, s := range r.samples[kind] {
		out = append(out, s.Latency.Seconds())
	}
	return out
}

// Errors returns the error messages recorded for failed samples of a kind.
func (r *Recorder) Errors(kind Kind) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, s := range r.samples[kind] {
		if !s.Success && s.ErrMsg != "" {
			out = append(out, s.ErrMsg)
		}
	}
	return out
}

// SuccessRate returns the fraction of successful samples for a kind.
// A kind with no samples reports 1.0 so it never trips the low-success
// condition on its own.
func (r *Recorder) SuccessRate(kind Kind) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := len(r.samples[kind])
	if total == 0 {
		return 1.0
	}
	ok := 0
	for _, s := range r.samples[kind] {
		if s.Success {
			ok++
		}
	}
	return float64(ok) / float64(total)
}

// Count returns how many samples a kind holds.
func (r *Recorder) Count(kind Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.samples[kind])
}

// Snapshot is a cheap copy of the aggregate state for live display.
type Snapshot struct {
	Requests uint64
	Success  uint64
	Fail     uint64
	Inflight int64

	P50Ms float64
	P90Ms float64
	P99Ms float64
	MaxMs int64
}

// Snapshot merges all kinds into one view. Percentiles come from the
// set histogram when it has data, else ping, since those dominate any run.
func (r *Recorder) Snapshot(inflight int64) Snapshot {
	h := r.hists[KindSet]
	if h.TotalCount() == 0 {
		h = r.hists[KindPing]
	}
	return Snapshot{
		Requests: atomic.LoadUint64(&r.Requests),
		Success:  atomic.LoadUint64(&r.Success),
		Fail:     atomic.LoadUint64(&r.Fail),
		Inflight: inflight,
		P50Ms:    float64(h.ValueAtQuantile(50)) / 1000.0,
		P90Ms:    float64(h.ValueAtQuantile(90)) / 1000.0,
		P99Ms:    float64(h.ValueAtQuantile(99)) / 1000.0,
		MaxMs:    h.Max() / 1000,
	}
}

// Hist exposes the per-kind histogram, mostly for summaries.
func (r *Recorder) Hist(kind Kind) *SafeHistogram {
	return r.hists[kind]
}
