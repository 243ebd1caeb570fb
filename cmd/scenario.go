package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"sessionprobe/internal/client"
	"sessionprobe/internal/recorder"
	"sessionprobe/internal/scenario"
	"sessionprobe/internal/tui/styles"
)

var scenarioCmd = &cobra.Command{
	Use:   "scenario",
	Short: "Run the deterministic session lifecycle scenarios",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger()
		addr := resolveTarget()

		c, err := client.Dial(addr)
		if err != nil {
			return fmt.Errorf("dial %s: %w", addr, err)
		}
		defer c.Close()

		rec := recorder.New()
		eng := scenario.New(c, rec, log)
		results := eng.RunAll(context.Background(), scenario.Builtin())

		failed := 0
		fmt.Println()
		for _, res := range results {
			if res.Err != nil {
				failed++
				fmt.Printf("  %s %s: %v\n", styles.Error.Render("FAIL"), res.Name, res.Err)
			} else {
				fmt.Printf("  %s %s\n", styles.Success.Render("PASS"), res.Name)
			}
		}
		fmt.Printf("\n  %d/%d scenarios passed\n", len(results)-failed, len(results))

		if failed > 0 {
			return fmt.Errorf("%d scenario(s) failed", failed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scenarioCmd)
}
