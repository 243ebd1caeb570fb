// Package stress churns large session populations through a pool of
// simulated clients: batched creation, then rounds of randomized
// get/delete traffic against each client's own session set.
package stress

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"sessionprobe/internal/client"
	"sessionprobe/internal/recorder"
)

type Config struct {
	Clients           int
	SessionsPerClient int
	BatchSize         int
	BatchPause        time.Duration
	Rounds            int
	DeleteProb        float64
}

func (c Config) withDefaults() Config {
	if c.Clients <= 0 {
		c.Clients = 10
	}
	if c.SessionsPerClient <= 0 {
		c.SessionsPerClient = 100
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 10
	}
	if c.BatchPause < 0 {
		c.BatchPause = 0
	}
	if c.Rounds <= 0 {
		c.Rounds = 3
	}
	return c
}

// Result is one client's workload outcome. Remaining counts sessions the
// client still tracks locally; the service's own view may differ.
type Result struct {
	Created   int
	Remaining int
}

// Totals sums Results across clients.
type Totals struct {
	Created   int
	Remaining int
	Duration  time.Duration
}

// DialFunc opens a fresh connection; every simulated client gets its own.
type DialFunc func() (*client.Client, error)

type Orchestrator struct {
	cfg  Config
	dial DialFunc
	rec  *recorder.Recorder
	log  zerolog.Logger

	inflight int64

	// Updates carries periodic snapshots for live display. Sends never
	// block; stale updates are dropped.
	Updates chan recorder.Snapshot
}

func New(cfg Config, dial DialFunc, rec *recorder.Recorder, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:     cfg.withDefaults(),
		dial:    dial,
		rec:     rec,
		log:     log,
		Updates: make(chan recorder.Snapshot, 100),
	}
}

// ExpectedOps estimates a run's total op count for progress display.
// Churn sampling is randomized, so this is an estimate, not a promise.
func ExpectedOps(cfg Config) uint64 {
	cfg = cfg.withDefaults()
	perRound := cfg.SessionsPerClient / 2
	if perRound < 10 {
		perRound = 10
	}
	creates := cfg.Clients * cfg.SessionsPerClient
	return uint64(creates + cfg.Rounds*cfg.Clients*perRound)
}

// StartTickLoop pushes snapshots onto Updates until ctx is done.
func (o *Orchestrator) StartTickLoop(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				select {
				case o.Updates <- o.rec.Snapshot(atomic.LoadInt64(&o.inflight)):
				default:
				}
			}
		}
	}()
}

// Run drives every client's workload concurrently and sums the results.
// Clients share nothing but the recorder; contention between them happens
// at the service, which is the point.
func (o *Orchestrator) Run(ctx context.Context) (Totals, []Result, error) {
	cfg := o.cfg
	start := time.Now()
	o.log.Info().
		Int("clients", cfg.Clients).
		Int("sessions_per_client", cfg.SessionsPerClient).
		Int("batch", cfg.BatchSize).
		Int("rounds", cfg.Rounds).
		Float64("delete_prob", cfg.DeleteProb).
		Msg("starting stress run")

	results := make([]Result, cfg.Clients)
	errs := make([]error, cfg.Clients)

	var wg sync.WaitGroup
	for i := 0; i < cfg.Clients; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			results[id], errs[id] = o.runClient(ctx, id)
		}(i)
	}
	wg.Wait()

	var totals Totals
	for i, r := range results {
		if errs[i] != nil {
			return totals, results, fmt.Errorf("client %d: %w", i, errs[i])
		}
		totals.Created += r.Created
		totals.Remaining += r.Remaining
	}
	totals.Duration = time.Since(start)

	o.log.Info().
		Int("created", totals.Created).
		Int("remaining", totals.Remaining).
		Dur("elapsed", totals.Duration).
		Msg("stress run complete")
	return totals, results, nil
}

func (o *Orchestrator) runClient(ctx context.Context, id int) (Result, error) {
	c, err := o.dial()
	if err != nil {
		return Result{}, err
	}
	defer c.Close()

	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(id)))
	sessions := make(map[string]int64) // owned by this goroutine; batch joins are the only sync points

	created := o.createPhase(ctx, c, id, sessions)
	o.log.Info().Int("client", id).Int("created", created).Msg("creation phase done")

	o.churnPhase(ctx, c, id, rng, sessions)

	return Result{Created: created, Remaining: len(sessions)}, nil
}

// createPhase creates the target session count in batches: all creates in
// a batch fan out concurrently and join before the next batch starts, so
// burst concurrency never exceeds BatchSize per client.
func (o *Orchestrator) createPhase(ctx context.Context, c *client.Client, id int, sessions map[string]int64) int {
	cfg := o.cfg
	created := 0

	for batchStart := 0; batchStart < cfg.SessionsPerClient; batchStart += cfg.BatchSize {
		batchEnd := batchStart + cfg.BatchSize
		if batchEnd > cfg.SessionsPerClient {
			batchEnd = cfg.SessionsPerClient
		}

		type createOut struct {
			id  string
			uid int64
		}
		outs := make([]createOut, batchEnd-batchStart)

		var wg sync.WaitGroup
		for i := batchStart; i < batchEnd; i++ {
			wg.Add(1)
			go func(slot, sessionIdx int) {
				defer wg.Done()
				atomic.AddInt64(&o.inflight, 1)
				defer atomic.AddInt64(&o.inflight, -1)

				uid := int64(10000*id + sessionIdx) // unique across clients
				var st client.Status
				var sid string
				o.rec.Measure(recorder.KindSet, func() recorder.Outcome {
					st, sid = c.Set(ctx, uid)
					return statusOutcome(st)
				})
				if st.OK() && sid != "" {
					outs[slot] = createOut{id: sid, uid: uid}
				}
			}(i-batchStart, i)
		}
		wg.Wait()

		for _, out := range outs {
			if out.id != "" {
				sessions[out.id] = out.uid
				created++
			}
		}

		if cfg.BatchPause > 0 {
			time.Sleep(cfg.BatchPause)
		}
	}
	return created
}

// churnPhase runs rounds of randomized get/delete traffic over the
// client's tracked set. A successful delete drops the id from local
// bookkeeping regardless of what the service did with its resources.
func (o *Orchestrator) churnPhase(ctx context.Context, c *client.Client, id int, rng *rand.Rand, sessions map[string]int64) {
	cfg := o.cfg

	for round := 0; round < cfg.Rounds; round++ {
		if len(sessions) == 0 {
			break
		}

		active := make([]string, 0, len(sessions))
		for sid := range sessions {
			active = append(active, sid)
		}
		rng.Shuffle(len(active), func(i, j int) { active[i], active[j] = active[j], active[i] })

		sampleSize := len(active) / 2
		if sampleSize < 10 {
			sampleSize = 10
		}
		if sampleSize > len(active) {
			sampleSize = len(active)
		}
		selected := active[:sampleSize]

		deleted := make([]bool, len(selected))
		success := uint64(0)

		var wg sync.WaitGroup
		for i, sid := range selected {
			doDelete := rng.Float64() < cfg.DeleteProb
			wg.Add(1)
			go func(slot int, sid string, doDelete bool) {
				defer wg.Done()
				atomic.AddInt64(&o.inflight, 1)
				defer atomic.AddInt64(&o.inflight, -1)

				if doDelete {
					var st client.Status
					o.rec.Measure(recorder.KindDel, func() recorder.Outcome {
						st = c.Del(ctx, sid)
						return statusOutcome(st)
					})
					if st.OK() {
						deleted[slot] = true
						atomic.AddUint64(&success, 1)
					}
				} else {
					var st client.Status
					o.rec.Measure(recorder.KindGet, func() recorder.Outcome {
						st, _ = c.Get(ctx, sid)
						return statusOutcome(st)
					})
					if st.OK() {
						atomic.AddUint64(&success, 1)
					}
				}
			}(i, sid, doDelete)
		}
		wg.Wait()

		for i, sid := range selected {
			if deleted[i] {
				delete(sessions, sid)
			}
		}

		o.log.Info().
			Int("client", id).
			Int("round", round+1).
			Uint64("ok", success).
			Int("ops", len(selected)).
			Int("tracked", len(sessions)).
			Msg("churn round done")
	}
}

func statusOutcome(s client.Status) recorder.Outcome {
	if s.OK() {
		return recorder.Outcome{OK: true}
	}
	return recorder.Outcome{ErrMsg: fmt.Sprintf("code %d: %s", s.Code, s.Msg)}
}
