package testutil

// Helpers and configuration for tests.

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"sbahn.dev/delays/model"
	"sbahn.dev/delays/storage"
)

const (
	// Leave blank to skip postgres tests.
	PostgresConnStr = ""
)

// Backends exercised by tests that run against every store.
func Backends() []string {
	backends := []string{"memory", "sqlite"}
	if PostgresConnStr != "" {
		backends = append(backends, "postgres")
	}
	return backends
}

func BuildStorage(t testing.TB, backend string) storage.Storage {
	var s storage.Storage
	var err error
	switch backend {
	case "memory":
		s = storage.NewMemoryStorage()
	case "sqlite":
		s, err = storage.NewSQLiteStorage()
		require.NoError(t, err)
	case "postgres":
		s, err = storage.NewPSQLStorage(PostgresConnStr, true)
		require.NoError(t, err)
	}
	require.NotNil(t, s, "unknown backend %q", backend)

	t.Cleanup(func() { s.Close() })

	return s
}

// Parses "HH:MM", failing the test on error.
func TimeOfDay(t testing.TB, s string) model.TimeOfDay {
	tod, err := model.ParseTimeOfDay(s)
	require.NoError(t, err)
	return tod
}

// Builds a record. Direction is left unknown.
func Record(t testing.TB, line string, hhmm string, delay int) *model.DelayRecord {
	return &model.DelayRecord{
		Line:          line,
		Station:       "Buchenau",
		ScheduledTime: TimeOfDay(t, hhmm),
		Delay:         delay,
		Source:        model.SourceManual,
		CapturedAt:    time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC),
	}
}

// Appends records given as "LINE HH:MM DELAY [DIRECTION]".
func Populate(t testing.TB, s storage.Storage, rows ...string) {
	for _, row := range rows {
		fields := strings.Fields(row)
		require.GreaterOrEqual(t, len(fields), 3, "bad row %q", row)

		delay, err := strconv.Atoi(fields[2])
		require.NoError(t, err, "bad delay in %q", row)

		r := Record(t, fields[0], fields[1], delay)
		if len(fields) > 3 {
			r.Direction, err = model.ParseDirection(fields[3])
			require.NoError(t, err)
		}
		require.NoError(t, s.Append(r))
	}
}
