package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var addCmd = &cobra.Command{
	Use:   "add <entry>",
	Short: "Records a delay, e.g. \"S4 +5 09:30\"",
	Long: `Records a delay, e.g. "S4 +5 09:30" or "S4 -2 08:00".

Flags go before the entry. An entry starting with a negative delay
needs a "--" in front of it: sbahn add -- -2 S4 08:00`,
	Args: cobra.MinimumNArgs(1),
	RunE: add,
}

func init() {
	// Everything after the first word of the entry is passed through,
	// so "-2" reaches the parser rather than the flag set.
	addCmd.Flags().SetInterspersed(false)
	rootCmd.AddCommand(addCmd)
}

func add(cmd *cobra.Command, args []string) error {
	_, manager, err := loadManager()
	if err != nil {
		return err
	}
	defer manager.Storage().Close()

	record, err := manager.AddEntry(strings.Join(args, " "))
	if err != nil {
		return err
	}

	fmt.Printf(
		"stored #%d: %s %s %s @ %s, delay %+d min\n",
		record.ID,
		record.Line,
		record.ScheduledTime,
		record.Direction,
		record.Station,
		record.Delay,
	)

	return nil
}
