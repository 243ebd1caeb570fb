package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"sessionprobe/internal/cli"
	"sessionprobe/internal/client"
	"sessionprobe/internal/recorder"
	"sessionprobe/internal/stress"
	"sessionprobe/internal/tui"
)

var (
	stressClients    int
	stressSessions   int
	stressBatch      int
	stressPauseMs    int
	stressRounds     int
	stressDeleteProb float64
	stressLive       bool
)

var stressCmd = &cobra.Command{
	Use:   "stress",
	Short: "Churn session populations through a pool of concurrent clients",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger()
		addr := resolveTarget()

		cfg := stress.Config{
			Clients:           stressClients,
			SessionsPerClient: stressSessions,
			BatchSize:         stressBatch,
			BatchPause:        time.Duration(stressPauseMs) * time.Millisecond,
			Rounds:            stressRounds,
			DeleteProb:        stressDeleteProb,
		}

		if !stressLive {
			return cli.StartStress(addr, cfg, log)
		}

		rec := recorder.New()
		dial := func() (*client.Client, error) { return client.Dial(addr) }
		o := stress.New(cfg, dial, rec, log)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		o.StartTickLoop(ctx, 200*time.Millisecond)

		done := make(chan struct{})
		var totals stress.Totals
		var runErr error
		go func() {
			totals, _, runErr = o.Run(ctx)
			close(done)
		}()

		if err := tui.Run(o.Updates, done, stress.ExpectedOps(cfg)); err != nil {
			return err
		}
		cancel()
		<-done
		if runErr != nil {
			return runErr
		}

		fmt.Printf("\ncreated %d, remaining %d in %s\n",
			totals.Created, totals.Remaining, totals.Duration.Round(time.Millisecond))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(stressCmd)

	stressCmd.Flags().IntVarP(&stressClients, "clients", "c", 10, "concurrent simulated clients")
	stressCmd.Flags().IntVarP(&stressSessions, "sessions", "s", 100, "sessions per client")
	stressCmd.Flags().IntVarP(&stressBatch, "batch", "b", 10, "creation batch size per client")
	stressCmd.Flags().IntVar(&stressPauseMs, "pause", 0, "pause between creation batches (ms)")
	stressCmd.Flags().IntVarP(&stressRounds, "rounds", "r", 3, "churn rounds")
	stressCmd.Flags().Float64Var(&stressDeleteProb, "delete-prob", 0.3, "per-op delete probability during churn")
	stressCmd.Flags().BoolVar(&stressLive, "live", false, "show the live dashboard instead of CI output")
}
