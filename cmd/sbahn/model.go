package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var modelCmd = &cobra.Command{
	Use:   "model [line]",
	Short: "Lists the buckets of a freshly trained model",
	Args:  cobra.RangeArgs(0, 1),
	RunE:  listModel,
}

func init() {
	rootCmd.AddCommand(modelCmd)
}

func listModel(cmd *cobra.Command, args []string) error {
	_, manager, err := loadManager()
	if err != nil {
		return err
	}
	defer manager.Storage().Close()

	m, err := manager.Train()
	if err != nil {
		return err
	}

	entries := m.Entries()
	if len(args) == 1 {
		entries = m.LineEntries(args[0])
	}

	for _, e := range entries {
		fmt.Printf(
			"%-4s %s %-8s n=%-4d mean=%6.1f stddev=%5.1f\n",
			e.Bucket.Line,
			e.Bucket.Time(),
			e.Bucket.Direction,
			e.Count,
			e.Mean,
			e.StdDev,
		)
	}

	return nil
}
