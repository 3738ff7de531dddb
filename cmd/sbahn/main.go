package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"sbahn.dev/delays"
	"sbahn.dev/delays/config"
	"sbahn.dev/delays/downloader"
	"sbahn.dev/delays/model"
	"sbahn.dev/delays/parse"
	"sbahn.dev/delays/source"
	"sbahn.dev/delays/storage"
)

const (
	gtfsMaxSize = 200 * 1024 * 1024
	gtfsTimeout = 5 * time.Minute
)

var rootCmd = &cobra.Command{
	Use:          "sbahn",
	Short:        "S-Bahn delay recorder",
	Long:         "Records S-Bahn delays and predicts them from history",
	SilenceUsage: true,
}

var (
	configPath  string
	backend     string
	dbDirectory string
	headers     []string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	rootCmd.PersistentFlags().StringVarP(&backend, "backend", "", "", "Storage backend (memory, sqlite, postgres)")
	rootCmd.PersistentFlags().StringVarP(&dbDirectory, "db", "", "", "Directory holding the SQLite database")
	rootCmd.PersistentFlags().StringSliceVarP(
		&headers,
		"header",
		"",
		[]string{},
		"HTTP header sent to the delay source",
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func newLogger() *log.Logger {
	return log.New(os.Stderr, "", log.LstdFlags|log.Lmicroseconds)
}

func parseHeaders(headers []string) (map[string]string, error) {
	parsed := map[string]string{}
	for _, header := range headers {
		parts := strings.SplitN(header, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("'%s' is not on form <key>:<value>", header)
		}
		parsed[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}
	return parsed, nil
}

// Loads the config file and applies flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if backend != "" {
		cfg.Storage.Backend = backend
	}
	if dbDirectory != "" {
		cfg.Storage.Directory = dbDirectory
	}
	return cfg, nil
}

func openStorage(cfg *config.Config) (storage.Storage, error) {
	switch cfg.Storage.Backend {
	case "memory":
		return storage.NewMemoryStorage(), nil
	case "sqlite":
		return storage.NewSQLiteStorage(storage.SQLiteConfig{
			OnDisk:    true,
			Directory: cfg.Storage.Directory,
		})
	case "postgres":
		return storage.NewPSQLStorage(cfg.Storage.PostgresDSN, false)
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
}

func loadSchedule(ctx context.Context, cfg *config.Config) (*delays.Schedule, error) {
	schedule := delays.DefaultSchedule()

	switch {
	case cfg.Schedule.Path != "":
		f, err := os.Open(cfg.Schedule.Path)
		if err != nil {
			return nil, fmt.Errorf("opening schedule: %w", err)
		}
		defer f.Close()

		schedule, err = delays.LoadSchedule(f)
		if err != nil {
			return nil, err
		}

	case cfg.Schedule.GTFS != "":
		feed, err := readFeed(ctx, cfg.Schedule.GTFS)
		if err != nil {
			return nil, err
		}

		opts := parse.StaticScheduleOptions{
			Lines:              map[string]bool{},
			StopIDs:            map[string]bool{},
			InboundDirectionID: cfg.Schedule.InboundDirectionID,
		}
		for _, line := range cfg.Source.Lines {
			opts.Lines[strings.ToUpper(line)] = true
		}
		for _, id := range cfg.Schedule.GTFSStopIDs {
			opts.StopIDs[id] = true
		}

		schedule, err = delays.LoadGTFSSchedule(feed, opts)
		if err != nil {
			return nil, err
		}
	}

	schedule.MatchTolerance = cfg.MatchTolerance()
	return schedule, nil
}

// Reads a GTFS static feed from disk or over http(s).
func readFeed(ctx context.Context, location string) ([]byte, error) {
	if !strings.HasPrefix(location, "http://") && !strings.HasPrefix(location, "https://") {
		buf, err := os.ReadFile(location)
		if err != nil {
			return nil, fmt.Errorf("reading gtfs feed: %w", err)
		}
		return buf, nil
	}

	buf, err := downloader.HTTPGet(ctx, location, nil, downloader.GetOptions{
		MaxSize: gtfsMaxSize,
		Timeout: gtfsTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("downloading gtfs feed: %w", err)
	}
	return buf, nil
}

// Sets up storage, schedule and manager from config. Callers must
// close the returned storage.
func loadManager() (*config.Config, *delays.Manager, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}

	schedule, err := loadSchedule(context.Background(), cfg)
	if err != nil {
		return nil, nil, err
	}

	s, err := openStorage(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("opening storage: %w", err)
	}

	manager := delays.NewManager(s, schedule)
	manager.Predictor.MaxWidenSteps = cfg.Model.MaxWidenSteps

	return cfg, manager, nil
}

func buildSource(cfg *config.Config, logger *log.Logger) (delays.Source, error) {
	extra, err := parseHeaders(headers)
	if err != nil {
		return nil, fmt.Errorf("invalid header: %w", err)
	}

	loc, err := source.LoadLocation(cfg.Source.Timezone)
	if err != nil {
		return nil, err
	}

	switch cfg.Source.Kind {
	case "mvg":
		if len(cfg.Source.Stations) == 0 {
			return nil, fmt.Errorf("no stations configured for the mvg source: set source.stations (id and name) in the config file")
		}
		stations := []source.MVGStation{}
		for _, st := range cfg.Source.Stations {
			stations = append(stations, source.MVGStation{ID: st.ID, Name: st.Name})
		}

		src := source.NewMVGSource(stations, cfg.Source.Lines)
		if cfg.Source.URL != "" {
			src.BaseURL = cfg.Source.URL
		}
		src.Location = loc
		src.Logger = logger
		src.Timeout = cfg.SourceTimeout()
		for k, v := range cfg.Source.Headers {
			src.Headers[k] = v
		}
		for k, v := range extra {
			src.Headers[k] = v
		}
		return src, nil

	case "gtfsrt":
		src := source.NewGTFSRTSource(cfg.Source.URL, parse.RealtimeFilter{
			RouteLines: cfg.Source.RouteLines,
			Stops:      cfg.Source.StopIDs,
		})
		src.Location = loc
		src.Timeout = cfg.SourceTimeout()
		for k, v := range cfg.Source.Headers {
			src.Headers[k] = v
		}
		for k, v := range extra {
			src.Headers[k] = v
		}
		return src, nil
	}

	return nil, fmt.Errorf("unknown source kind %q", cfg.Source.Kind)
}

func buildPoller(ctx context.Context, cfg *config.Config, manager *delays.Manager, logger *log.Logger) (*delays.Poller, func(), error) {
	src, err := buildSource(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	poller := delays.NewPoller(src, manager.Schedule(), manager.Storage())
	poller.Interval = cfg.PollInterval()
	poller.Logger = logger
	if cfg.Source.Kind == "gtfsrt" {
		poller.RecordType = model.SourceGTFSRT
	}

	cleanup := func() {}
	if cfg.Poller.RedisURL != "" {
		sink, client, err := source.DialRedisSink(ctx, cfg.Poller.RedisURL)
		if err != nil {
			logger.Printf("redis unavailable, not publishing records: %v", err)
		} else {
			logger.Printf("publishing records to redis channel %s", sink.Channel)
			poller.Sink = sink
			cleanup = func() { client.Close() }
		}
	}

	return poller, cleanup, nil
}
