package diag

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"sessionprobe/internal/client"
	"sessionprobe/internal/recorder"
)

// ProbeConfig sizes the three sub-probes.
type ProbeConfig struct {
	OperationCount int // ops per kind in the latency probe
	ErrorIters     int // invalid-input iterations in the error probe
	Concurrency    int // fan-out width of the concurrency probe
}

func (c ProbeConfig) withDefaults() ProbeConfig {
	if c.OperationCount <= 0 {
		c.OperationCount = 50
	}
	if c.ErrorIters <= 0 {
		c.ErrorIters = 20
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 20
	}
	return c
}

// Runner drives the diagnostic sub-probes against one client, feeding a
// shared recorder that Analyze consumes afterwards.
type Runner struct {
	cfg ProbeConfig
	c   *client.Client
	rec *recorder.Recorder
	log zerolog.Logger
}

func NewRunner(cfg ProbeConfig, c *client.Client, rec *recorder.Recorder, log zerolog.Logger) *Runner {
	return &Runner{cfg: cfg.withDefaults(), c: c, rec: rec, log: log}
}

// RunAll runs every sub-probe in order and returns the analysis.
func (r *Runner) RunAll(ctx context.Context) Analysis {
	r.RunLatencyProbe(ctx)
	r.RunErrorPatternProbe(ctx)
	r.RunConcurrencyProbe(ctx)
	return Analyze(InputFromRecorder(r.rec))
}

// RunLatencyProbe issues a fixed count of each operation kind serially and
// logs per-kind latency and success-rate summaries.
func (r *Runner) RunLatencyProbe(ctx context.Context) {
	n := r.cfg.OperationCount
	r.log.Info().Int("count", n).Msg("latency probe")

	for i := 0; i < n; i++ {
		r.rec.Measure(recorder.KindPing, func() recorder.Outcome {
			if r.c.Ping(ctx) {
				return recorder.Outcome{OK: true}
			}
			return recorder.Outcome{ErrMsg: "ping failed"}
		})
	}
	r.logKind(recorder.KindPing)

	var ids []string
	for i := 0; i < n; i++ {
		uid := int64(10000 + i)
		var st client.Status
		var sid string
		r.rec.Measure(recorder.KindSet, func() recorder.Outcome {
			st, sid = r.c.Set(ctx, uid)
			return statusOutcome(st)
		})
		if st.OK() && sid != "" {
			ids = append(ids, sid)
		}
	}
	r.logKind(recorder.KindSet)

	for _, sid := range ids {
		r.rec.Measure(recorder.KindGet, func() recorder.Outcome {
			st, _ := r.c.Get(ctx, sid)
			return statusOutcome(st)
		})
	}
	r.logKind(recorder.KindGet)

	for _, sid := range ids {
		r.rec.Measure(recorder.KindDel, func() recorder.Outcome {
			return statusOutcome(r.c.Del(ctx, sid))
		})
	}
	r.logKind(recorder.KindDel)
}

// RunErrorPatternProbe elicits specific error classes: unknown ids,
// repeated deletes of one id, special-character ids, extreme uids.
func (r *Runner) RunErrorPatternProbe(ctx context.Context) {
	r.log.Info().Msg("error pattern probe")

	for i := 0; i < r.cfg.ErrorIters; i++ {
		sid := fmt.Sprintf("invalid_session_%d", i)
		r.rec.Measure(recorder.KindGet, func() recorder.Outcome {
			st, _ := r.c.Get(ctx, sid)
			return statusOutcome(st)
		})
	}

	// Delete the same session repeatedly; the second and later deletes
	// probe idempotency, whatever status they come back with.
	var st client.Status
	var sid string
	r.rec.Measure(recorder.KindSet, func() recorder.Outcome {
		st, sid = r.c.Set(ctx, 99999)
		return statusOutcome(st)
	})
	if st.OK() && sid != "" {
		for i := 0; i < 4; i++ {
			r.rec.Measure(recorder.KindDel, func() recorder.Outcome {
				return statusOutcome(r.c.Del(ctx, sid))
			})
		}
	}

	for _, special := range []string{"", " ", "'", `"`, ";", "<script>"} {
		r.rec.Measure(recorder.KindGet, func() recorder.Outcome {
			st, _ := r.c.Get(ctx, special)
			return statusOutcome(st)
		})
	}

	for _, uid := range []int64{0, -1, 1<<31 - 1, 1 << 31, 1<<63 - 1} {
		var st client.Status
		var sid string
		r.rec.Measure(recorder.KindSet, func() recorder.Outcome {
			st, sid = r.c.Set(ctx, uid)
			return statusOutcome(st)
		})
		if st.OK() && sid != "" {
			r.rec.Measure(recorder.KindDel, func() recorder.Outcome {
				return statusOutcome(r.c.Del(ctx, sid))
			})
		}
	}
}

// RunConcurrencyProbe creates a batch of sessions, then fetches and
// deletes them with full fan-out to probe contention.
func (r *Runner) RunConcurrencyProbe(ctx context.Context) {
	level := r.cfg.Concurrency
	r.log.Info().Int("level", level).Msg("concurrency probe")

	var ids []string
	for i := 0; i < level; i++ {
		uid := int64(20000 + i)
		var st client.Status
		var sid string
		r.rec.Measure(recorder.KindSet, func() recorder.Outcome {
			st, sid = r.c.Set(ctx, uid)
			return statusOutcome(st)
		})
		if st.OK() && sid != "" {
			ids = append(ids, sid)
		}
	}
	if len(ids) == 0 {
		r.log.Warn().Msg("no sessions created, skipping concurrency probe")
		return
	}

	var wg sync.WaitGroup
	for i := 0; i < level; i++ {
		sid := ids[i%len(ids)]
		wg.Add(1)
		go func(sid string) {
			defer wg.Done()
			r.rec.Measure(recorder.KindGet, func() recorder.Outcome {
				st, _ := r.c.Get(ctx, sid)
				return statusOutcome(st)
			})
		}(sid)
	}
	wg.Wait()

	for _, sid := range ids {
		wg.Add(1)
		go func(sid string) {
			defer wg.Done()
			r.rec.Measure(recorder.KindDel, func() recorder.Outcome {
				return statusOutcome(r.c.Del(ctx, sid))
			})
		}(sid)
	}
	wg.Wait()
}

func (r *Runner) logKind(kind recorder.Kind) {
	h := r.rec.Hist(kind)
	r.log.Info().
		Str("op", string(kind)).
		Float64("mean_ms", h.Mean()/1000.0).
		Float64("p99_ms", float64(h.ValueAtQuantile(99))/1000.0).
		Float64("success_rate", r.rec.SuccessRate(kind)).
		Msg("probe summary")
}

func statusOutcome(s client.Status) recorder.Outcome {
	if s.OK() {
		return recorder.Outcome{OK: true}
	}
	return recorder.Outcome{ErrMsg: fmt.Sprintf("code %d: %s", s.Code, s.Msg)}
}
