package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Builds the delay model from all records and summarizes it",
	Args:  cobra.NoArgs,
	RunE:  train,
}

func init() {
	rootCmd.AddCommand(trainCmd)
}

func train(cmd *cobra.Command, args []string) error {
	_, manager, err := loadManager()
	if err != nil {
		return err
	}
	defer manager.Storage().Close()

	m, err := manager.Train()
	if err != nil {
		return err
	}

	if m.Len() == 0 {
		fmt.Println("no records, model is empty")
		return nil
	}

	fmt.Printf("trained %d buckets\n", m.Len())
	for _, line := range m.Lines() {
		samples := 0
		entries := m.LineEntries(line)
		for _, e := range entries {
			samples += e.Count
		}
		fmt.Printf("  %s: %d buckets, %d records\n", line, len(entries), samples)
	}

	return nil
}
