package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, "mvg", cfg.Source.Kind)
	assert.Equal(t, []string{"S4", "S20"}, cfg.Source.Lines)
	assert.Equal(t, 60*time.Second, cfg.PollInterval())
	assert.Equal(t, 10*time.Second, cfg.SourceTimeout())
	assert.Equal(t, 15*time.Minute, cfg.MatchTolerance())
	assert.Equal(t, 6, cfg.Model.MaxWidenSteps)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
storage:
  backend: postgres
  postgres_dsn: postgres://localhost/delays
source:
  stations:
    - id: "de:09179:6110"
      name: Buchenau
  lines: [S4]
poller:
  interval_seconds: 120
  redis_url: redis://localhost:6379/0
`))
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Storage.Backend)
	assert.Equal(t, "postgres://localhost/delays", cfg.Storage.PostgresDSN)
	assert.Equal(t, []StationConfig{{ID: "de:09179:6110", Name: "Buchenau"}}, cfg.Source.Stations)
	assert.Equal(t, []string{"S4"}, cfg.Source.Lines)
	assert.Equal(t, 2*time.Minute, cfg.PollInterval())
	assert.Equal(t, "redis://localhost:6379/0", cfg.Poller.RedisURL)

	// Untouched sections keep their defaults
	assert.Equal(t, "mvg", cfg.Source.Kind)
	assert.Equal(t, 15, cfg.Schedule.MatchToleranceMinutes)
}

func TestParseInvalid(t *testing.T) {
	for _, tc := range []struct {
		Name string
		YAML string
	}{
		{"bad yaml", "storage: [nope"},
		{"unknown backend", "storage:\n  backend: mongo\n"},
		{"postgres without dsn", "storage:\n  backend: postgres\n"},
		{"unknown source", "source:\n  kind: carrier-pigeon\n"},
		{"gtfsrt without url", "source:\n  kind: gtfsrt\n"},
		{"bad url", "source:\n  kind: gtfsrt\n  url: not a url\n"},
		{"station without id", "source:\n  stations:\n    - name: Buchenau\n"},
		{"negative interval", "poller:\n  interval_seconds: -1\n"},
		{"empty server addr", "server:\n  addr: \"\"\n"},
		{"gtfs without stops", "schedule:\n  gtfs: feed.zip\n"},
		{"gtfs and path", "schedule:\n  path: s.csv\n  gtfs: feed.zip\n  gtfs_stop_ids: [x]\n"},
		{"bad direction id", "schedule:\n  inbound_direction_id: 2\n"},
	} {
		t.Run(tc.Name, func(t *testing.T) {
			_, err := Parse([]byte(tc.YAML))
			assert.Error(t, err)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("model:\n  max_widen_steps: 3\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Model.MaxWidenSteps)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}

func TestParseGTFSSchedule(t *testing.T) {
	cfg, err := Parse([]byte(`
schedule:
  gtfs: https://example.com/gtfs.zip
  gtfs_stop_ids: ["de:09179:6110"]
  inbound_direction_id: 0
`))
	require.NoError(t, err)

	assert.Equal(t, "https://example.com/gtfs.zip", cfg.Schedule.GTFS)
	assert.Equal(t, []string{"de:09179:6110"}, cfg.Schedule.GTFSStopIDs)
	assert.Equal(t, int8(0), cfg.Schedule.InboundDirectionID)
}
