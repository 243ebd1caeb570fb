// Package leak runs a long-horizon session workload to surface unbounded
// server-side growth. It only produces the tracked-population time series;
// interpreting the trend is left to whoever reads it.
package leak

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"sessionprobe/internal/client"
	"sessionprobe/internal/recorder"
)

type Config struct {
	Duration time.Duration
	Interval time.Duration

	BatchSize   int // sessions created per checkpoint
	SampleLimit int // most-recent sessions fetched per checkpoint
	Cap         int // tracked-population ceiling before eviction
	Evict       int // oldest sessions deleted once over Cap
}

func (c Config) withDefaults() Config {
	if c.Duration <= 0 {
		c.Duration = time.Hour
	}
	if c.Interval <= 0 {
		c.Interval = 5 * time.Minute
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 10
	}
	if c.SampleLimit <= 0 {
		c.SampleLimit = 20
	}
	if c.Cap <= 0 {
		c.Cap = 100
	}
	if c.Evict <= 0 {
		c.Evict = 20
	}
	return c
}

// Point is one checkpoint observation.
type Point struct {
	At      time.Time `json:"at"`
	Tracked int       `json:"tracked"`
}

type Prober struct {
	cfg Config
	c   *client.Client
	rec *recorder.Recorder
	log zerolog.Logger
}

func New(cfg Config, c *client.Client, rec *recorder.Recorder, log zerolog.Logger) *Prober {
	return &Prober{cfg: cfg.withDefaults(), c: c, rec: rec, log: log}
}

// Run loops checkpoints until the deadline, then cleans up every session
// it still tracks. A deadline hit mid-checkpoint finishes that checkpoint;
// no new one is scheduled after it.
func (p *Prober) Run(ctx context.Context) ([]Point, error) {
	cfg := p.cfg
	deadline := time.Now().Add(cfg.Duration)
	active := make(map[string]time.Time) // id -> creation time
	var series []Point

	p.log.Info().
		Dur("duration", cfg.Duration).
		Dur("interval", cfg.Interval).
		Int("cap", cfg.Cap).
		Msg("starting leak probe")

	checkpoint := 0
	for time.Now().Before(deadline) {
		checkpoint++
		p.runCheckpoint(ctx, checkpoint, active)

		series = append(series, Point{At: time.Now(), Tracked: len(active)})
		p.log.Info().Int("checkpoint", checkpoint).Int("tracked", len(active)).Msg("checkpoint done")

		if ctx.Err() != nil {
			break
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		wait := cfg.Interval
		if wait > remaining {
			wait = remaining
		}
		select {
		case <-ctx.Done():
		case <-time.After(wait):
		}
		if ctx.Err() != nil {
			break
		}
	}

	// Cleanup must outlive the run's context: a Ctrl-C cancel is exactly
	// when leaving sessions behind is least acceptable.
	p.cleanup(context.WithoutCancel(ctx), active)
	p.log.Info().Int("checkpoints", checkpoint).Msg("leak probe complete")
	return series, nil
}

func (p *Prober) runCheckpoint(ctx context.Context, n int, active map[string]time.Time) {
	cfg := p.cfg

	// Create a small fresh batch; uid derives from the clock so repeated
	// checkpoints never collide.
	base := time.Now().UnixMilli() % 1_000_000
	for i := 0; i < cfg.BatchSize; i++ {
		uid := base + int64(i)
		var st client.Status
		var sid string
		p.rec.Measure(recorder.KindSet, func() recorder.Outcome {
			st, sid = p.c.Set(ctx, uid)
			return statusOutcome(st)
		})
		if st.OK() && sid != "" {
			active[sid] = time.Now()
		}
	}

	// Touch the most recently created sessions.
	recent := idsByAge(active)
	if len(recent) > cfg.SampleLimit {
		recent = recent[len(recent)-cfg.SampleLimit:]
	}
	for _, sid := range recent {
		p.rec.Measure(recorder.KindGet, func() recorder.Outcome {
			st, _ := p.c.Get(ctx, sid)
			return statusOutcome(st)
		})
	}

	// Evict the oldest once over cap. The id leaves local bookkeeping even
	// if the delete failed; the next checkpoint reissues similar deletes.
	if len(active) > cfg.Cap {
		oldest := idsByAge(active)
		if len(oldest) > cfg.Evict {
			oldest = oldest[:cfg.Evict]
		}
		for _, sid := range oldest {
			p.rec.Measure(recorder.KindDel, func() recorder.Outcome {
				st := p.c.Del(ctx, sid)
				return statusOutcome(st)
			})
			delete(active, sid)
		}
		p.log.Info().Int("checkpoint", n).Int("evicted", len(oldest)).Msg("evicted oldest sessions")
	}
}

func (p *Prober) cleanup(ctx context.Context, active map[string]time.Time) {
	if len(active) == 0 {
		return
	}
	p.log.Info().Int("tracked", len(active)).Msg("cleaning up remaining sessions")
	for sid := range active {
		p.rec.Measure(recorder.KindDel, func() recorder.Outcome {
			st := p.c.Del(ctx, sid)
			return statusOutcome(st)
		})
	}
}

// idsByAge returns ids sorted oldest first.
func idsByAge(active map[string]time.Time) []string {
	ids := make([]string, 0, len(active))
	for sid := range active {
		ids = append(ids, sid)
	}
	sort.Slice(ids, func(i, j int) bool {
		return active[ids[i]].Before(active[ids[j]])
	})
	return ids
}

func statusOutcome(s client.Status) recorder.Outcome {
	if s.OK() {
		return recorder.Outcome{OK: true}
	}
	return recorder.Outcome{ErrMsg: fmt.Sprintf("code %d: %s", s.Code, s.Msg)}
}
