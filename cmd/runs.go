package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"sessionprobe/internal/report"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List past diagnostic runs from the local store",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := report.NewStore()
		if err != nil {
			return err
		}
		defer store.Close()

		items := store.List()
		if len(items) == 0 {
			fmt.Println("no stored runs")
			return nil
		}

		for _, r := range items {
			fmt.Printf("%s  %-40s %s\n",
				r.Timestamp.Format(time.RFC3339),
				r.Target,
				r.Verdict,
			)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)
}
