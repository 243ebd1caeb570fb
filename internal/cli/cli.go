// Package cli runs stress workloads headless, with a single-line progress
// readout suitable for CI logs instead of the live dashboard.
package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"sessionprobe/internal/client"
	"sessionprobe/internal/recorder"
	"sessionprobe/internal/stress"
)

func StartStress(target string, cfg stress.Config, log zerolog.Logger) error {
	printHeader(target, cfg)

	rec := recorder.New()
	dial := func() (*client.Client, error) { return client.Dial(target) }
	o := stress.New(cfg, dial, rec, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	o.StartTickLoop(ctx, 200*time.Millisecond)

	start := time.Now()
	done := make(chan struct{})
	var totals stress.Totals
	var runErr error
	go func() {
		totals, _, runErr = o.Run(ctx)
		close(done)
	}()

	expected := stress.ExpectedOps(cfg)
	var last recorder.Snapshot

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case snap := <-o.Updates:
			last = snap

		case <-ticker.C:
			elapsed := time.Since(start)
			rps := 0.0
			if elapsed.Seconds() > 0 {
				rps = float64(last.Requests) / elapsed.Seconds()
			}

			pct := float64(last.Requests) / float64(expected)
			if pct > 1.0 {
				pct = 1.0
			}

			fmt.Printf("\r%s %3.0f%% | %s | Inf: %3d | Ops/s: %.1f | OK: %d | Err: %d",
				progressBar(pct, 20), pct*100,
				elapsed.Round(time.Second),
				last.Inflight,
				rps,
				last.Success,
				last.Fail,
			)

		case <-done:
			fmt.Println()
			if runErr != nil {
				return runErr
			}
			printSummary(rec, totals)
			return nil
		}
	}
}

func printHeader(target string, cfg stress.Config) {
	fmt.Printf("\n🚀 STARTING SESSION STRESS RUN\n")
	fmt.Printf("======================================================================\n")
	fmt.Printf("Target          : %s\n", target)
	fmt.Printf("Clients         : %d\n", cfg.Clients)
	fmt.Printf("Sessions/Client : %d (batches of %d)\n", cfg.SessionsPerClient, cfg.BatchSize)
	fmt.Printf("Churn           : %d rounds, delete prob %.2f\n", cfg.Rounds, cfg.DeleteProb)
	fmt.Printf("======================================================================\n\n")
}

func progressBar(pct float64, width int) string {
	filled := int(pct * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("█", filled) + strings.Repeat("-", width-filled) + "]"
}

func printSummary(rec *recorder.Recorder, totals stress.Totals) {
	fmt.Printf("\n📊 STRESS RUN RESULTS\n")
	fmt.Printf("======================================================================\n")
	fmt.Printf("Total Duration : %s\n", totals.Duration.Round(time.Millisecond))
	fmt.Printf("Created        : %d\n", totals.Created)
	fmt.Printf("Remaining      : %d\n", totals.Remaining)

	fmt.Printf("\n⏱️  LATENCY BY OPERATION (ms)\n")
	for _, kind := range recorder.Kinds {
		h := rec.Hist(kind)
		if h.TotalCount() == 0 {
			continue
		}
		fmt.Printf("   %-6s n=%-6d P50: %-8.2f P90: %-8.2f P99: %-8.2f rate: %.3f\n",
			kind,
			h.TotalCount(),
			float64(h.ValueAtQuantile(50))/1000.0,
			float64(h.ValueAtQuantile(90))/1000.0,
			float64(h.ValueAtQuantile(99))/1000.0,
			rec.SuccessRate(kind),
		)
	}

	errCounts := make(map[string]int)
	for _, kind := range recorder.Kinds {
		for _, msg := range rec.Errors(kind) {
			errCounts[msg]++
		}
	}
	if len(errCounts) > 0 {
		msgs := make([]string, 0, len(errCounts))
		for msg := range errCounts {
			msgs = append(msgs, msg)
		}
		sort.Strings(msgs)

		fmt.Printf("\n❌ FAILURE SUMMARY\n")
		for _, msg := range msgs {
			fmt.Printf("   %d x %s\n", errCounts[msg], msg)
		}
	}
	fmt.Printf("======================================================================\n")
}
