package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"sessionprobe/internal/client"
	"sessionprobe/internal/leak"
	"sessionprobe/internal/recorder"
)

var (
	leakDuration time.Duration
	leakInterval time.Duration
	leakBatch    int
	leakSample   int
	leakCap      int
	leakEvict    int
)

var leakCmd = &cobra.Command{
	Use:   "leak",
	Short: "Run a long-horizon growth probe against the session service",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger()
		addr := resolveTarget()

		c, err := client.Dial(addr)
		if err != nil {
			return fmt.Errorf("dial %s: %w", addr, err)
		}
		defer c.Close()

		// Ctrl-C triggers cleanup rather than leaving sessions behind.
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		rec := recorder.New()
		p := leak.New(leak.Config{
			Duration:    leakDuration,
			Interval:    leakInterval,
			BatchSize:   leakBatch,
			SampleLimit: leakSample,
			Cap:         leakCap,
			Evict:       leakEvict,
		}, c, rec, log)

		series, err := p.Run(ctx)
		if err != nil {
			return err
		}

		name := fmt.Sprintf("leak_%s.json", time.Now().Format("20060102_150405"))
		data, err := json.MarshalIndent(series, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(name, data, 0644); err != nil {
			return err
		}

		fmt.Printf("\n%d checkpoints recorded, series written to %s\n", len(series), name)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(leakCmd)

	leakCmd.Flags().DurationVar(&leakDuration, "duration", time.Hour, "total probe duration")
	leakCmd.Flags().DurationVar(&leakInterval, "interval", 5*time.Minute, "pause between checkpoints")
	leakCmd.Flags().IntVar(&leakBatch, "batch", 10, "sessions created per checkpoint")
	leakCmd.Flags().IntVar(&leakSample, "sample", 20, "recent sessions fetched per checkpoint")
	leakCmd.Flags().IntVar(&leakCap, "cap", 100, "tracked-population ceiling before eviction")
	leakCmd.Flags().IntVar(&leakEvict, "evict", 20, "oldest sessions deleted once over cap")
}
