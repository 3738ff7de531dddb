package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"sbahn.dev/delays/source"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Shows delay statistics",
	Args:  cobra.NoArgs,
	RunE:  stats,
}

var recent int

func init() {
	statsCmd.Flags().IntVarP(&recent, "recent", "n", 5, "Number of recent records to list")
	rootCmd.AddCommand(statsCmd)
}

func stats(cmd *cobra.Command, args []string) error {
	cfg, manager, err := loadManager()
	if err != nil {
		return err
	}
	defer manager.Storage().Close()

	loc, err := source.LoadLocation(cfg.Source.Timezone)
	if err != nil {
		return err
	}

	st, err := manager.Stats(recent, loc)
	if err != nil {
		return err
	}

	fmt.Printf("records: %d\n", st.Overall.Count)
	if st.Overall.Count == 0 {
		return nil
	}

	fmt.Printf("mean:    %.1f min (stddev %.1f)\n", st.Overall.Mean, st.Overall.StdDev)
	fmt.Printf("max:     %d min\n", st.Overall.Max)
	fmt.Printf("on time: %d, late: %d\n", st.Overall.OnTime, st.Overall.Late)

	fmt.Println("\nby line:")
	for _, l := range st.Lines {
		fmt.Printf("  %-4s %4d records, mean %.1f min, max %d min\n", l.Line, l.Count, l.Mean, l.Max)
	}

	fmt.Println("\nby weekday:")
	for _, w := range st.Weekdays {
		if w.Count == 0 {
			continue
		}
		fmt.Printf("  %-9s %4d records, mean %.1f min\n", w.Weekday, w.Count, w.Mean)
	}

	if len(st.Recent) > 0 {
		fmt.Printf("\nlast %d:\n", len(st.Recent))
		for _, r := range st.Recent {
			fmt.Printf(
				"  %s %s @ %s (%s): %+d min (%s)\n",
				r.Line,
				r.ScheduledTime,
				r.Station,
				r.Direction,
				r.Delay,
				r.Source,
			)
		}
	}

	return nil
}
