package diag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sessionprobe/internal/recorder"
)

func input() Input {
	return Input{
		Latency:     make(map[recorder.Kind][]float64),
		SuccessRate: make(map[recorder.Kind]float64),
		Errors:      make(map[recorder.Kind][]string),
	}
}

func TestVerdictOverload(t *testing.T) {
	in := input()
	// Slow, noisy and failing at once: high mean, high spread over six or
	// more samples, and a sub-threshold success rate.
	in.Latency[recorder.KindPing] = []float64{0.1, 0.2, 1.5, 0.1, 2.0, 0.2}
	in.SuccessRate[recorder.KindPing] = 0.80
	in.Errors[recorder.KindPing] = []string{"code 14: unavailable"}

	a := Analyze(in)
	assert.True(t, a.HighLatency)
	assert.True(t, a.HighVariance)
	assert.True(t, a.LowSuccess)
	assert.Equal(t, VerdictOverload, a.Verdict)
}

func TestVerdictNetworkDelay(t *testing.T) {
	in := input()
	// Uniformly slow: high mean, tight spread, nothing failing.
	in.Latency[recorder.KindPing] = []float64{0.6, 0.7, 0.65, 0.62, 0.68, 0.66}
	in.SuccessRate[recorder.KindPing] = 1.0

	a := Analyze(in)
	assert.True(t, a.HighLatency)
	assert.False(t, a.HighVariance)
	assert.Equal(t, VerdictNetworkDelay, a.Verdict)
}

func TestVerdictLogicDefect(t *testing.T) {
	in := input()
	// Fast but failing with recorded errors.
	in.Latency[recorder.KindSet] = []float64{0.01, 0.02, 0.01, 0.012, 0.011, 0.013}
	in.SuccessRate[recorder.KindSet] = 0.5
	in.Errors[recorder.KindSet] = []string{"code 2: failed to save session"}

	a := Analyze(in)
	assert.False(t, a.HighLatency)
	assert.True(t, a.LowSuccess)
	assert.True(t, a.HasErrors)
	assert.Equal(t, VerdictLogicDefect, a.Verdict)
}

func TestVerdictContention(t *testing.T) {
	in := input()
	// Low mean with wild spread: most calls instant, some stuck behind a
	// lock.
	in.Latency[recorder.KindGet] = []float64{0.001, 0.001, 0.001, 0.001, 0.001, 0.3}
	in.SuccessRate[recorder.KindGet] = 1.0

	a := Analyze(in)
	assert.False(t, a.HighLatency)
	assert.True(t, a.HighVariance)
	assert.Equal(t, VerdictContention, a.Verdict)
}

func TestVerdictHarness(t *testing.T) {
	in := input()
	in.Latency[recorder.KindPing] = []float64{0.01, 0.012, 0.011, 0.013, 0.009, 0.01}
	in.SuccessRate[recorder.KindPing] = 1.0

	a := Analyze(in)
	assert.Equal(t, VerdictHarness, a.Verdict)
}

func TestVerdictIndeterminate(t *testing.T) {
	in := input()
	// Low success with no recorded error text matches no positive rule.
	in.Latency[recorder.KindDel] = []float64{0.01, 0.012, 0.011, 0.013, 0.009, 0.01}
	in.SuccessRate[recorder.KindDel] = 0.5

	a := Analyze(in)
	assert.True(t, a.LowSuccess)
	assert.False(t, a.HasErrors)
	assert.Equal(t, VerdictIndeterminate, a.Verdict)
}

func TestVarianceNeedsEnoughSamples(t *testing.T) {
	in := input()
	// Same spread as the contention case but below the sample floor, so
	// variance must not fire.
	in.Latency[recorder.KindGet] = []float64{0.001, 0.001, 0.3}
	in.SuccessRate[recorder.KindGet] = 1.0

	a := Analyze(in)
	assert.False(t, a.HighVariance)
	assert.Equal(t, VerdictHarness, a.Verdict)
}

func TestHighLatencyOutranksErrorRules(t *testing.T) {
	// Uniformly slow AND failing: the latency rule sits earlier in the
	// precedence order than the error-pattern rule, so without variance
	// evidence the read is still a delay, not a logic defect.
	in := input()
	in.Latency[recorder.KindPing] = []float64{0.6, 0.7, 0.65}
	in.Latency[recorder.KindSet] = []float64{0.6, 0.62}
	in.SuccessRate[recorder.KindPing] = 0.9
	in.SuccessRate[recorder.KindSet] = 0.99
	in.Errors[recorder.KindPing] = []string{"code 14: unavailable"}

	a := Analyze(in)
	assert.True(t, a.HighLatency)
	assert.False(t, a.HighVariance, "too few samples to trust a spread")
	assert.True(t, a.LowSuccess)
	assert.Equal(t, VerdictNetworkDelay, a.Verdict)
}

func TestAnalyzeIsPure(t *testing.T) {
	in := input()
	in.Latency[recorder.KindPing] = []float64{0.6, 0.7, 0.65, 0.62, 0.68, 0.66}
	in.SuccessRate[recorder.KindPing] = 1.0

	first := Analyze(in)
	second := Analyze(in)
	assert.Equal(t, first, second)
}

func TestStdevUsesSampleDivisor(t *testing.T) {
	xs := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	m := mean(xs)
	require.InDelta(t, 5.0, m, 1e-9)
	// Sample stdev of this classic set is ~2.138, population stdev exactly 2.
	assert.InDelta(t, 2.138, stdev(xs, m), 0.001)
}

func TestInputFromRecorderCoversEveryKind(t *testing.T) {
	rec := recorder.New()
	rec.Measure(recorder.KindPing, func() recorder.Outcome { return recorder.Outcome{OK: true} })
	rec.Measure(recorder.KindSet, func() recorder.Outcome { return recorder.Outcome{ErrMsg: "code 2: boom"} })

	in := InputFromRecorder(rec)
	for _, kind := range recorder.Kinds {
		_, ok := in.Latency[kind]
		assert.True(t, ok, string(kind))
	}
	assert.Len(t, in.Errors[recorder.KindSet], 1)
	assert.Equal(t, 1.0, in.SuccessRate[recorder.KindPing])
}
