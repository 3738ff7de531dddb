package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"sbahn.dev/delays/api"
	"sbahn.dev/delays/source"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves predictions and statistics over HTTP",
	Args:  cobra.NoArgs,
	RunE:  serve,
}

var serveAddr string

func init() {
	serveCmd.Flags().StringVarP(&serveAddr, "addr", "a", "", "Listen address (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func serve(cmd *cobra.Command, args []string) error {
	cfg, manager, err := loadManager()
	if err != nil {
		return err
	}
	defer manager.Storage().Close()

	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	loc, err := source.LoadLocation(cfg.Source.Timezone)
	if err != nil {
		return err
	}

	gin.SetMode(gin.ReleaseMode)
	handler := api.NewHandler(manager)
	handler.Location = loc

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger()

	errCh := make(chan error, 1)
	go func() {
		logger.Printf("listening on %s", server.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdown(server, logger)
	return nil
}
