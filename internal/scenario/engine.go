package scenario

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"sessionprobe/internal/client"
	"sessionprobe/internal/recorder"
)

// Handle is the harness-side record of a created session. Never mutated;
// the service stays the sole source of truth for existence.
type Handle struct {
	ID        string
	UID       int64
	CreatedAt time.Time
}

// State is the scenario's explicit mutable state: the created-session list
// and the movable current pointer. Current is -1 until the first Set and
// otherwise always a valid index into Sessions.
type State struct {
	Sessions []Handle
	Current  int
}

// Engine runs scenarios against one client, recording every RPC.
type Engine struct {
	client *client.Client
	rec    *recorder.Recorder
	log    zerolog.Logger
}

func New(c *client.Client, rec *recorder.Recorder, log zerolog.Logger) *Engine {
	return &Engine{client: c, rec: rec, log: log}
}

// RunResult is the outcome of one scenario. Scenarios are independent:
// one failure never stops the rest of a suite.
type RunResult struct {
	Name string
	Err  error
}

// RunAll runs each scenario in order and reports per-scenario outcomes.
func (e *Engine) RunAll(ctx context.Context, scenarios []Scenario) []RunResult {
	results := make([]RunResult, 0, len(scenarios))
	for _, sc := range scenarios {
		err := e.Run(ctx, sc)
		if err != nil {
			e.log.Error().Str("scenario", sc.Name).Err(err).Msg("scenario failed")
		} else {
			e.log.Info().Str("scenario", sc.Name).Msg("scenario passed")
		}
		results = append(results, RunResult{Name: sc.Name, Err: err})
	}
	return results
}

// Run executes one scenario, threading the state through each step.
func (e *Engine) Run(ctx context.Context, sc Scenario) error {
	st := State{Current: -1}
	for i, step := range sc.Steps {
		next, err := e.apply(ctx, sc, st, i, step)
		if err != nil {
			return err
		}
		st = next
	}
	return nil
}

func (e *Engine) apply(ctx context.Context, sc Scenario, st State, idx int, step Step) (State, error) {
	e.log.Debug().
		Str("scenario", sc.Name).
		Int("step", idx).
		Stringer("op", step.Kind).
		Int32("expect", step.Expect).
		Msg("applying step")

	switch step.Kind {
	case KindSet:
		return e.applySet(ctx, st, idx, step, sc.UID)

	case KindSetWithUID:
		return e.applySet(ctx, st, idx, step, step.UID)

	case KindGet:
		if st.Current < 0 {
			// Deliberate get-before-set probes are allowed; warn, not fail.
			e.log.Warn().Str("scenario", sc.Name).Int("step", idx).Msg("get with no session yet, skipping")
			return st, nil
		}
		owner := st.Sessions[st.Current]
		var got int64
		var status client.Status
		e.rec.Measure(recorder.KindGet, func() recorder.Outcome {
			status, got = e.client.Get(ctx, owner.ID)
			return outcome(status)
		})
		if status.Code != step.Expect {
			return st, stepError(idx, step, status)
		}
		if status.OK() && got != owner.UID {
			return st, fmt.Errorf("step %d (get): session %s owned by uid %d, service returned uid %d",
				idx, owner.ID, owner.UID, got)
		}
		return st, nil

	case KindDelete:
		if st.Current < 0 {
			e.log.Warn().Str("scenario", sc.Name).Int("step", idx).Msg("delete with no session yet, skipping")
			return st, nil
		}
		target := st.Sessions[st.Current]
		var status client.Status
		e.rec.Measure(recorder.KindDel, func() recorder.Outcome {
			status = e.client.Del(ctx, target.ID)
			return outcome(status)
		})
		if status.Code != step.Expect {
			return st, stepError(idx, step, status)
		}
		// Current is deliberately not repointed; scenarios must Switch.
		return st, nil

	case KindSwitch:
		// Guards scenario authoring bugs, so this aborts before any RPC.
		if step.Index < 0 || step.Index >= len(st.Sessions) {
			return st, fmt.Errorf("step %d (switch): index %d out of range [0,%d)",
				idx, step.Index, len(st.Sessions))
		}
		st.Current = step.Index
		return st, nil

	case KindReload:
		var status client.Status
		e.rec.Measure(recorder.KindReload, func() recorder.Outcome {
			status = e.client.Reload(ctx)
			return outcome(status)
		})
		if status.Code != step.Expect {
			return st, stepError(idx, step, status)
		}
		return st, nil
	}

	return st, fmt.Errorf("step %d: unrecognized step kind %d", idx, step.Kind)
}

func (e *Engine) applySet(ctx context.Context, st State, idx int, step Step, uid int64) (State, error) {
	var status client.Status
	var id string
	e.rec.Measure(recorder.KindSet, func() recorder.Outcome {
		status, id = e.client.Set(ctx, uid)
		return outcome(status)
	})
	if status.Code != step.Expect {
		return st, stepError(idx, step, status)
	}
	if status.OK() {
		if id == "" {
			return st, fmt.Errorf("step %d (%s): success with empty session id", idx, step.Kind)
		}
		st.Sessions = append(st.Sessions, Handle{ID: id, UID: uid, CreatedAt: time.Now()})
		st.Current = len(st.Sessions) - 1
	}
	return st, nil
}

func outcome(s client.Status) recorder.Outcome {
	if s.OK() {
		return recorder.Outcome{OK: true}
	}
	return recorder.Outcome{ErrMsg: fmt.Sprintf("code %d: %s", s.Code, s.Msg)}
}

func stepError(idx int, step Step, got client.Status) error {
	return fmt.Errorf("step %d (%s): expected code %d, got %d (%s)",
		idx, step.Kind, step.Expect, got.Code, got.Msg)
}
