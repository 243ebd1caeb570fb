package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"sessionprobe/internal/client"
	"sessionprobe/internal/diag"
	"sessionprobe/internal/recorder"
	"sessionprobe/internal/report"
	"sessionprobe/internal/tui/styles"
)

var (
	diagOps         int
	diagErrorIters  int
	diagConcurrency int
	diagOutDir      string
	diagNoStore     bool
)

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose",
	Short: "Run the full diagnostic probe suite and produce a verdict",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger()
		addr := resolveTarget()

		c, err := client.Dial(addr)
		if err != nil {
			return fmt.Errorf("dial %s: %w", addr, err)
		}
		defer c.Close()

		rec := recorder.New()
		runner := diag.NewRunner(diag.ProbeConfig{
			OperationCount: diagOps,
			ErrorIters:     diagErrorIters,
			Concurrency:    diagConcurrency,
		}, c, rec, log)

		analysis := runner.RunAll(context.Background())

		r := report.Build(addr, rec, analysis)
		name, err := r.WriteJSON(diagOutDir)
		if err != nil {
			return fmt.Errorf("write report: %w", err)
		}

		if !diagNoStore {
			store, err := report.NewStore()
			if err != nil {
				log.Warn().Err(err).Msg("run store unavailable")
			} else {
				defer store.Close()
				if err := store.Save(r); err != nil {
					log.Warn().Err(err).Msg("saving run failed")
				}
			}
		}

		fmt.Println()
		fmt.Println(styles.Title.Render("DIAGNOSIS"))
		fmt.Printf("  Verdict : %s\n", styles.Value.Render(string(analysis.Verdict)))
		for _, ev := range analysis.Evidence {
			if ev.Count == 0 {
				continue
			}
			fmt.Printf("  %-7s n=%-5d mean=%.4fs stdev=%.4fs rate=%.3f errors=%d\n",
				ev.Kind, ev.Count, ev.Mean, ev.Stdev, ev.SuccessRate, ev.ErrorCount)
		}
		fmt.Printf("  Report  : %s\n", name)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(diagnoseCmd)

	diagnoseCmd.Flags().IntVar(&diagOps, "ops", 50, "operations per kind in the latency probe")
	diagnoseCmd.Flags().IntVar(&diagErrorIters, "error-iters", 20, "invalid-input iterations in the error probe")
	diagnoseCmd.Flags().IntVar(&diagConcurrency, "concurrency", 20, "fan-out width of the concurrency probe")
	diagnoseCmd.Flags().StringVarP(&diagOutDir, "out", "o", "", "directory for the JSON report")
	diagnoseCmd.Flags().BoolVar(&diagNoStore, "no-store", false, "skip persisting the run to the local store")
}
