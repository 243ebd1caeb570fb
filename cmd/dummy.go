package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"sessionprobe/internal/dummy"
)

var (
	dummyPort       int
	dummyFailRate   float64
	dummyMinDelay   time.Duration
	dummyMaxDelay   time.Duration
	dummyStaleReads bool
)

var dummyCmd = &cobra.Command{
	Use:   "dummy",
	Short: "Run the built-in reference session service",
	RunE: func(cmd *cobra.Command, args []string) error {
		return dummy.Start(dummyPort, dummy.ServerConfig{
			FailRate:   dummyFailRate,
			MinDelay:   dummyMinDelay,
			MaxDelay:   dummyMaxDelay,
			StaleReads: dummyStaleReads,
			Log:        newLogger(),
		})
	},
}

func init() {
	rootCmd.AddCommand(dummyCmd)

	dummyCmd.Flags().IntVarP(&dummyPort, "port", "p", 50051, "port to serve on")
	dummyCmd.Flags().Float64Var(&dummyFailRate, "fail-rate", 0, "probability that Set fails")
	dummyCmd.Flags().DurationVar(&dummyMinDelay, "min-delay", 0, "minimum injected latency")
	dummyCmd.Flags().DurationVar(&dummyMaxDelay, "max-delay", 0, "maximum injected latency")
	dummyCmd.Flags().BoolVar(&dummyStaleReads, "stale-reads", false, "keep answering Get for deleted sessions")
}
