package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"sessionprobe/internal/client"
	"sessionprobe/internal/recorder"
	"sessionprobe/internal/stress"
)

var (
	contentionUID    int64
	contentionCycles int
)

var contentionCmd = &cobra.Command{
	Use:   "contention",
	Short: "Probe shared-uid contention and rapid create/delete cycling",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := newLogger()
		addr := resolveTarget()
		ctx := context.Background()

		rec := recorder.New()
		dial := func() (*client.Client, error) { return client.Dial(addr) }
		o := stress.New(stress.Config{}, dial, rec, log)

		res, err := o.RunSameUIDContention(ctx, contentionUID)
		if err != nil {
			return err
		}
		fmt.Printf("\nshared uid %d: %d sessions created\n", contentionUID, res.Sessions)
		fmt.Printf("  gets    : %d/%d ok\n", res.GetOK, res.GetTotal)
		fmt.Printf("  deletes : %d/%d ok\n", res.DelOK, res.DelTotal)

		ok, err := o.RunRapidCycle(ctx, contentionCycles)
		if err != nil {
			return err
		}
		fmt.Printf("rapid cycles: %d/%d full set+delete round trips ok\n", ok, contentionCycles)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(contentionCmd)

	contentionCmd.Flags().Int64Var(&contentionUID, "uid", 55555, "uid shared by all contending clients")
	contentionCmd.Flags().IntVar(&contentionCycles, "cycles", 50, "rapid create/delete cycles")
}
