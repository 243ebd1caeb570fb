// Package diag turns raw latency/success/error samples into a single
// categorical root-cause verdict.
package diag

import (
	"math"

	"sessionprobe/internal/recorder"
)

// Verdict is the analyzer's categorical conclusion.
type Verdict string

const (
	VerdictOverload      Verdict = "server overload/resource exhaustion"
	VerdictNetworkDelay  Verdict = "network/consistent processing delay"
	VerdictLogicDefect   Verdict = "server logic/resource defect"
	VerdictContention    Verdict = "server-side contention/race"
	VerdictHarness       Verdict = "harness/environment likely at fault"
	VerdictIndeterminate Verdict = "indeterminate, insufficient evidence"
)

// Thresholds of the decision procedure.
const (
	highLatencyMean  = 0.5  // seconds
	varianceFraction = 0.5  // stdev > mean * this
	minVarianceCount = 6    // stdev only trusted with this many samples
	minSuccessRate   = 0.95
)

// Input is everything the analyzer consumes. Latencies are in seconds.
type Input struct {
	Latency     map[recorder.Kind][]float64
	SuccessRate map[recorder.Kind]float64
	Errors      map[recorder.Kind][]string
}

// KindEvidence is the per-kind arithmetic behind the verdict.
type KindEvidence struct {
	Kind        recorder.Kind `json:"kind"`
	Count       int           `json:"count"`
	Mean        float64       `json:"mean_seconds"`
	Stdev       float64       `json:"stdev_seconds"`
	SuccessRate float64       `json:"success_rate"`
	ErrorCount  int           `json:"error_count"`
}

// Analysis is the verdict plus the conditions and evidence that led to it.
type Analysis struct {
	Verdict Verdict `json:"verdict"`

	HighLatency  bool `json:"high_latency"`
	HighVariance bool `json:"high_variance"`
	LowSuccess   bool `json:"low_success"`
	HasErrors    bool `json:"has_errors"`

	Evidence []KindEvidence `json:"evidence"`
}

// Analyze is a pure function of its input: same samples, same verdict.
// Rules are evaluated in precedence order; the first match wins.
func Analyze(in Input) Analysis {
	var a Analysis

	for _, kind := range recorder.Kinds {
		lats := in.Latency[kind]
		ev := KindEvidence{
			Kind:        kind,
			Count:       len(lats),
			SuccessRate: rateOrOne(in.SuccessRate, kind),
			ErrorCount:  len(in.Errors[kind]),
		}

		if len(lats) > 0 {
			ev.Mean = mean(lats)
			if ev.Mean > highLatencyMean {
				a.HighLatency = true
			}
			if len(lats) >= minVarianceCount {
				ev.Stdev = stdev(lats, ev.Mean)
				if ev.Stdev > ev.Mean*varianceFraction {
					a.HighVariance = true
				}
			}
		}
		if ev.SuccessRate < minSuccessRate {
			a.LowSuccess = true
		}
		if ev.ErrorCount > 0 {
			a.HasErrors = true
		}
		a.Evidence = append(a.Evidence, ev)
	}

	switch {
	case a.HighLatency && a.HighVariance && a.LowSuccess:
		a.Verdict = VerdictOverload
	case a.HighLatency && !a.HighVariance:
		a.Verdict = VerdictNetworkDelay
	case a.LowSuccess && a.HasErrors:
		a.Verdict = VerdictLogicDefect
	case a.HighVariance && !a.HighLatency:
		a.Verdict = VerdictContention
	case !a.HighLatency && !a.HighVariance && !a.LowSuccess:
		a.Verdict = VerdictHarness
	default:
		a.Verdict = VerdictIndeterminate
	}
	return a
}

// InputFromRecorder snapshots a recorder into analyzer input.
func InputFromRecorder(rec *recorder.Recorder) Input {
	in := Input{
		Latency:     make(map[recorder.Kind][]float64),
		SuccessRate: make(map[recorder.Kind]float64),
		Errors:      make(map[recorder.Kind][]string),
	}
	for _, kind := range recorder.Kinds {
		in.Latency[kind] = rec.LatencySeconds(kind)
		in.SuccessRate[kind] = rec.SuccessRate(kind)
		in.Errors[kind] = rec.Errors(kind)
	}
	return in
}

func rateOrOne(rates map[recorder.Kind]float64, kind recorder.Kind) float64 {
	if r, ok := rates[kind]; ok {
		return r
	}
	return 1.0
}

func mean(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stdev is the sample standard deviation (n-1 divisor).
func stdev(xs []float64, m float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		d := x - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(xs)-1))
}
