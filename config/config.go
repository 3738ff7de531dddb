package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

type StorageConfig struct {
	Backend     string `yaml:"backend" validate:"oneof=memory sqlite postgres"`
	Directory   string `yaml:"directory"`
	PostgresDSN string `yaml:"postgres_dsn" validate:"required_if=Backend postgres"`
}

type StationConfig struct {
	ID   string `yaml:"id" validate:"required"`
	Name string `yaml:"name" validate:"required"`
}

type SourceConfig struct {
	Kind  string   `yaml:"kind" validate:"oneof=mvg gtfsrt"`
	URL   string   `yaml:"url" validate:"omitempty,url"`
	Lines []string `yaml:"lines"`

	// MVG only. There are no default stations; monitor and fetch
	// refuse to start without them.
	Stations []StationConfig `yaml:"stations" validate:"dive"`

	// GTFS Realtime only: route_id -> line and stop_id -> station.
	RouteLines map[string]string `yaml:"route_lines"`
	StopIDs    map[string]string `yaml:"stop_ids"`

	Headers        map[string]string `yaml:"headers"`
	Timezone       string            `yaml:"timezone"`
	TimeoutSeconds int               `yaml:"timeout_seconds" validate:"gte=0"`
}

type PollerConfig struct {
	IntervalSeconds int    `yaml:"interval_seconds" validate:"gte=0"`
	MetricsAddr     string `yaml:"metrics_addr"`
	RedisURL        string `yaml:"redis_url" validate:"omitempty,url"`
}

type ScheduleConfig struct {
	// Pattern CSV. The built in schedule is used when neither this
	// nor GTFS is set.
	Path string `yaml:"path"`

	// Zipped GTFS static feed, as a file path or http(s) URL.
	// Departures are taken at GTFSStopIDs for the source's lines.
	GTFS               string   `yaml:"gtfs" validate:"excluded_with=Path"`
	GTFSStopIDs        []string `yaml:"gtfs_stop_ids" validate:"required_with=GTFS"`
	InboundDirectionID int8     `yaml:"inbound_direction_id" validate:"oneof=0 1"`

	MatchToleranceMinutes int `yaml:"match_tolerance_minutes" validate:"gte=0"`
}

type ModelConfig struct {
	MaxWidenSteps int `yaml:"max_widen_steps" validate:"gte=0"`
}

type ServerConfig struct {
	Addr string `yaml:"addr" validate:"required"`
}

type Config struct {
	Storage  StorageConfig  `yaml:"storage"`
	Source   SourceConfig   `yaml:"source"`
	Poller   PollerConfig   `yaml:"poller"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Model    ModelConfig    `yaml:"model"`
	Server   ServerConfig   `yaml:"server"`
}

func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Backend:   "sqlite",
			Directory: ".",
		},
		Source: SourceConfig{
			Kind:           "mvg",
			Lines:          []string{"S4", "S20"},
			Timezone:       "Europe/Berlin",
			TimeoutSeconds: 10,
		},
		Poller: PollerConfig{
			IntervalSeconds: 60,
		},
		Schedule: ScheduleConfig{
			InboundDirectionID:    1,
			MatchToleranceMinutes: 15,
		},
		Model: ModelConfig{
			MaxWidenSteps: 6,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
	}
}

// Parses YAML on top of the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if cfg.Source.Kind == "gtfsrt" && cfg.Source.URL == "" {
		return nil, fmt.Errorf("invalid config: source.url is required for gtfsrt")
	}

	return cfg, nil
}

// Loads config from path. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	return Parse(data)
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Poller.IntervalSeconds) * time.Second
}

func (c *Config) SourceTimeout() time.Duration {
	return time.Duration(c.Source.TimeoutSeconds) * time.Second
}

func (c *Config) MatchTolerance() time.Duration {
	return time.Duration(c.Schedule.MatchToleranceMinutes) * time.Minute
}
