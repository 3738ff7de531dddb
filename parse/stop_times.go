package parse

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"

	"sbahn.dev/delays/model"
)

type StopTimeCSV struct {
	TripID        string `csv:"trip_id"`
	StopID        string `csv:"stop_id"`
	StopSequence  uint32 `csv:"stop_sequence"`
	ArrivalTime   string `csv:"arrival_time"`
	DepartureTime string `csv:"departure_time"`
}

type StopTime struct {
	StopID       string
	StopSequence uint32

	// Wrapped into a single day. GTFS allows times past 24:00 for
	// trips running after midnight.
	Departure model.TimeOfDay
}

// Parses "HH:MM:SS", allowing hours up to 99, into minutes since
// midnight of the service day.
func parseStopTimeTime(s string) (int, error) {
	split := strings.Split(s, ":")
	if len(split) != 3 {
		return 0, fmt.Errorf("found %d parts in '%s'", len(split), s)
	}

	hms := [3]int{}
	for i, str := range split {
		j, err := strconv.Atoi(str)
		if err != nil {
			return 0, fmt.Errorf("non-integer in '%s' pos %d", s, i)
		}
		hms[i] = j
	}

	if hms[0] < 0 || hms[0] > 99 {
		return 0, fmt.Errorf("invalid hour in '%s'", s)
	}

	if hms[1] < 0 || hms[1] > 59 {
		return 0, fmt.Errorf("invalid minute in '%s'", s)
	}

	if hms[2] < 0 || hms[2] > 59 {
		return 0, fmt.Errorf("invalid second in '%s'", s)
	}

	return hms[0]*60 + hms[1], nil
}

// Parses stop_times.txt, grouped by trip and ordered by
// stop_sequence. Departure falls back to arrival when empty.
func ParseStopTimes(
	data io.Reader,
	trips map[string]Trip,
	stops map[string]Stop,
) (map[string][]StopTime, error) {
	stopTimes := map[string][]StopTime{}

	i := -1
	err := gocsv.UnmarshalToCallbackWithError(data, func(st *StopTimeCSV) error {
		i += 1
		if _, found := trips[st.TripID]; !found {
			return fmt.Errorf("unknown trip_id: '%s' (row %d)", st.TripID, i+1)
		}
		if st.StopID == "" {
			return fmt.Errorf("missing stop_id (row %d)", i+1)
		}
		if _, found := stops[st.StopID]; !found {
			return fmt.Errorf("unknown stop_id: '%s' (row %d)", st.StopID, i+1)
		}

		raw := st.DepartureTime
		if raw == "" {
			raw = st.ArrivalTime
		}
		departure, err := parseStopTimeTime(raw)
		if err != nil {
			return errors.Wrapf(err, "parsing departure_time (row %d)", i+1)
		}

		stopTimes[st.TripID] = append(stopTimes[st.TripID], StopTime{
			StopID:       st.StopID,
			StopSequence: st.StopSequence,
			Departure:    model.TimeOfDay(departure % model.MinutesPerDay),
		})

		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "unmarshaling stop_times csv")
	}

	for tripID, sts := range stopTimes {
		sort.SliceStable(sts, func(i, j int) bool {
			return sts[i].StopSequence < sts[j].StopSequence
		})

		// stop_sequence must be unique for each trip
		for i := 1; i < len(sts); i++ {
			if sts[i].StopSequence == sts[i-1].StopSequence {
				return nil, fmt.Errorf("duplicate stop_sequence %d for trip_id '%s'", sts[i].StopSequence, tripID)
			}
		}
	}

	return stopTimes, nil
}
