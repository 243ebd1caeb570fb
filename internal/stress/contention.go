package stress

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"sessionprobe/internal/client"
	"sessionprobe/internal/recorder"
)

// ContentionResult is the observed success/failure pattern of the
// shared-uid probe. The harness asserts nothing about uid exclusivity;
// it only records what the service did.
type ContentionResult struct {
	Sessions int
	GetOK    int
	GetTotal int
	DelOK    int
	DelTotal int
}

// RunSameUIDContention has every client concurrently create a session for
// one shared uid, then every client fetch every resulting id, then assigns
// delete ownership of each id to a random client.
func (o *Orchestrator) RunSameUIDContention(ctx context.Context, sharedUID int64) (ContentionResult, error) {
	cfg := o.cfg
	clients := make([]*client.Client, cfg.Clients)
	for i := range clients {
		c, err := o.dial()
		if err != nil {
			return ContentionResult{}, err
		}
		clients[i] = c
		defer c.Close()
	}

	// Every client races to create for the same uid.
	ids := make([]string, len(clients))
	var wg sync.WaitGroup
	for i, c := range clients {
		wg.Add(1)
		go func(slot int, c *client.Client) {
			defer wg.Done()
			var st client.Status
			var sid string
			o.rec.Measure(recorder.KindSet, func() recorder.Outcome {
				st, sid = c.Set(ctx, sharedUID)
				return statusOutcome(st)
			})
			if st.OK() {
				ids[slot] = sid
			}
		}(i, c)
	}
	wg.Wait()

	valid := ids[:0:0]
	for _, sid := range ids {
		if sid != "" {
			valid = append(valid, sid)
		}
	}
	o.log.Info().Int64("uid", sharedUID).Int("sessions", len(valid)).Msg("shared-uid creation done")

	res := ContentionResult{Sessions: len(valid)}

	// Every client fetches every session, one fan-out per id.
	for _, sid := range valid {
		oks := make([]bool, len(clients))
		for i, c := range clients {
			wg.Add(1)
			go func(slot int, c *client.Client) {
				defer wg.Done()
				var st client.Status
				o.rec.Measure(recorder.KindGet, func() recorder.Outcome {
					st, _ = c.Get(ctx, sid)
					return statusOutcome(st)
				})
				oks[slot] = st.OK()
			}(i, c)
		}
		wg.Wait()
		for _, ok := range oks {
			res.GetTotal++
			if ok {
				res.GetOK++
			}
		}
	}

	// Random delete ownership per id.
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	for _, sid := range valid {
		c := clients[rng.Intn(len(clients))]
		var st client.Status
		o.rec.Measure(recorder.KindDel, func() recorder.Outcome {
			st = c.Del(ctx, sid)
			return statusOutcome(st)
		})
		res.DelTotal++
		if st.OK() {
			res.DelOK++
		}
	}

	o.log.Info().
		Int("sessions", res.Sessions).
		Int("get_ok", res.GetOK).
		Int("get_total", res.GetTotal).
		Int("del_ok", res.DelOK).
		Int("del_total", res.DelTotal).
		Msg("shared-uid contention done")
	return res, nil
}

// RunRapidCycle runs n sequential set-then-delete cycles on one client and
// returns how many full cycles succeeded.
func (o *Orchestrator) RunRapidCycle(ctx context.Context, n int) (int, error) {
	c, err := o.dial()
	if err != nil {
		return 0, err
	}
	defer c.Close()

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	success := 0
	for i := 0; i < n; i++ {
		uid := int64(rng.Intn(1_000_000) + 1)

		var st client.Status
		var sid string
		o.rec.Measure(recorder.KindSet, func() recorder.Outcome {
			st, sid = c.Set(ctx, uid)
			return statusOutcome(st)
		})
		if !st.OK() || sid == "" {
			continue
		}

		var del client.Status
		o.rec.Measure(recorder.KindDel, func() recorder.Outcome {
			del = c.Del(ctx, sid)
			return statusOutcome(del)
		})
		if del.OK() {
			success++
		}

		if i%50 == 0 {
			o.log.Info().Int("cycle", i).Int("of", n).Msg("rapid cycle progress")
		}
	}
	return success, nil
}
