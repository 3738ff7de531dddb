package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"sbahn.dev/delays"
)

var predictCmd = &cobra.Command{
	Use:   "predict <query>",
	Short: "Predicts the delay for a line and time, e.g. \"S4 09:30\"",
	Args:  cobra.MinimumNArgs(1),
	RunE:  predict,
}

func init() {
	predictCmd.Flags().SetInterspersed(false)
	rootCmd.AddCommand(predictCmd)
}

func predict(cmd *cobra.Command, args []string) error {
	_, manager, err := loadManager()
	if err != nil {
		return err
	}
	defer manager.Storage().Close()

	m, err := manager.Train()
	if err != nil {
		return err
	}

	pred, err := manager.PredictText(m, strings.Join(args, " "))
	if errors.Is(err, delays.ErrPredictionUnavailable) {
		fmt.Println("no data for this line yet")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Printf("%s %s (%s)\n", pred.Line, pred.Time, pred.Direction)
	fmt.Printf("  expected delay: %+.1f min\n", pred.Delay)
	switch pred.Source {
	case delays.PredictionExact:
		fmt.Printf("  based on %d records at this time\n", pred.Samples)
	case delays.PredictionWidened:
		fmt.Printf("  based on %d records within %s\n", pred.Samples, pred.Window)
	case delays.PredictionLineAverage:
		fmt.Printf("  based on all %d records of %s\n", pred.Samples, pred.Line)
	}

	return nil
}
