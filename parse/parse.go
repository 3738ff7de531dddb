package parse

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/spkg/bom"

	"sbahn.dev/delays/model"
)

// Selects departures from a GTFS static feed.
type StaticScheduleOptions struct {
	// Upper case line names (route_short_name) to include. Empty
	// includes every route.
	Lines map[string]bool

	// Departures are taken at these stops. A parent station
	// matches all of its child stops.
	StopIDs map[string]bool

	// direction_id of trips heading into the city. GTFS leaves the
	// meaning of direction_id to the feed.
	InboundDirectionID int8
}

// Builds the scheduled departures at a set of stops from a zipped
// GTFS static feed. Only routes.txt, trips.txt, stops.txt and
// stop_times.txt are read; service calendars are ignored, so a
// departure running on any day is included. Departures repeated
// across services are collapsed.
func ParseStaticSchedule(buf []byte, opts StaticScheduleOptions) ([]model.ScheduledDeparture, error) {
	if len(opts.StopIDs) == 0 {
		return nil, fmt.Errorf("no stop_ids given")
	}

	file := map[string]io.ReadCloser{
		"routes.txt":     nil,
		"stops.txt":      nil,
		"trips.txt":      nil,
		"stop_times.txt": nil,
	}

	defer func() {
		for _, rc := range file {
			if rc != nil {
				rc.Close()
			}
		}
	}()

	r, err := zip.NewReader(bytes.NewReader(buf), int64(len(buf)))
	if err != nil {
		return nil, fmt.Errorf("unzipping: %w", err)
	}

	for _, f := range r.File {
		// There should not be any subdirectories. But, some
		// agencies don't care.
		if f.FileInfo().IsDir() {
			continue
		}
		path := strings.Split(f.Name, "/")
		fName := path[len(path)-1]

		if _, found := file[fName]; !found {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("opening %s: %w", f.Name, err)
		}

		file[fName] = rc
	}

	for _, required := range []string{"routes.txt", "stops.txt", "trips.txt", "stop_times.txt"} {
		if file[required] == nil {
			return nil, fmt.Errorf("missing %s", required)
		}
	}

	// LazyCSVReader required (at least) to survive sloppy use of
	// quotes. The BOM reader strips unicode BOMs if present.
	gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
		return gocsv.LazyCSVReader(bom.NewReader(in))
	})

	routes, err := ParseRoutes(file["routes.txt"])
	if err != nil {
		return nil, fmt.Errorf("parsing routes.txt: %w", err)
	}

	trips, err := ParseTrips(file["trips.txt"], routes)
	if err != nil {
		return nil, fmt.Errorf("parsing trips.txt: %w", err)
	}

	stops, err := ParseStops(file["stops.txt"])
	if err != nil {
		return nil, fmt.Errorf("parsing stops.txt: %w", err)
	}

	stopTimes, err := ParseStopTimes(file["stop_times.txt"], trips, stops)
	if err != nil {
		return nil, fmt.Errorf("parsing stop_times.txt: %w", err)
	}

	wanted := func(stopID string) bool {
		return opts.StopIDs[stopID] || opts.StopIDs[stops[stopID].ParentStation]
	}

	type key struct {
		line      string
		direction model.Direction
		time      model.TimeOfDay
	}
	seen := map[key]bool{}

	// Visit trips in order so the stop list kept for a repeated
	// departure doesn't depend on map iteration.
	tripIDs := make([]string, 0, len(stopTimes))
	for tripID := range stopTimes {
		tripIDs = append(tripIDs, tripID)
	}
	sort.Strings(tripIDs)

	departures := []model.ScheduledDeparture{}
	for _, tripID := range tripIDs {
		sts := stopTimes[tripID]
		trip := trips[tripID]
		if len(opts.Lines) > 0 && !opts.Lines[trip.Line] {
			continue
		}

		direction := model.DirectionOutbound
		if trip.DirectionID == opts.InboundDirectionID {
			direction = model.DirectionInbound
		}

		names := make([]string, 0, len(sts))
		for _, st := range sts {
			names = append(names, stops[st.StopID].Name)
		}

		for _, st := range sts {
			if !wanted(st.StopID) {
				continue
			}
			k := key{trip.Line, direction, st.Departure}
			if seen[k] {
				continue
			}
			seen[k] = true

			departures = append(departures, model.ScheduledDeparture{
				Line:      trip.Line,
				Direction: direction,
				Time:      st.Departure,
				Stops:     names,
			})
		}
	}

	sortDepartures(departures)

	return departures, nil
}
