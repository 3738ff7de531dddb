package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var monitorCmd = &cobra.Command{
	Use:   "monitor [interval_seconds]",
	Short: "Fetches delays periodically until interrupted",
	Args:  cobra.RangeArgs(0, 1),
	RunE:  monitor,
}

var metricsAddr string

func init() {
	monitorCmd.Flags().StringVarP(&metricsAddr, "metrics-addr", "m", "", "Serve /metrics and /health on this address")
	rootCmd.AddCommand(monitorCmd)
}

func monitor(cmd *cobra.Command, args []string) error {
	cfg, manager, err := loadManager()
	if err != nil {
		return err
	}
	defer manager.Storage().Close()

	if len(args) == 1 {
		seconds, err := strconv.Atoi(args[0])
		if err != nil || seconds <= 0 {
			return fmt.Errorf("invalid interval '%s'", args[0])
		}
		cfg.Poller.IntervalSeconds = seconds
	}
	if metricsAddr != "" {
		cfg.Poller.MetricsAddr = metricsAddr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger()

	poller, cleanup, err := buildPoller(ctx, cfg, manager, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	if cfg.Poller.MetricsAddr != "" {
		server := metricsServer(cfg.Poller.MetricsAddr)
		go func() {
			logger.Printf("metrics server listening on %s", server.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Printf("metrics server failed: %v", err)
			}
		}()
		defer shutdown(server, logger)
	}

	return poller.Run(ctx)
}

func metricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func shutdown(server *http.Server, logger *log.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Printf("shutting down %s: %v", server.Addr, err)
	}
}
