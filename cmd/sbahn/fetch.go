package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetches current delays from the configured source once",
	Args:  cobra.NoArgs,
	RunE:  fetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)
}

func fetch(cmd *cobra.Command, args []string) error {
	cfg, manager, err := loadManager()
	if err != nil {
		return err
	}
	defer manager.Storage().Close()

	ctx := context.Background()

	poller, cleanup, err := buildPoller(ctx, cfg, manager, newLogger())
	if err != nil {
		return err
	}
	defer cleanup()

	n, err := poller.Poll(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("stored %d records\n", n)

	return nil
}
