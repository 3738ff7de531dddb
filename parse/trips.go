package parse

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
)

type TripCSV struct {
	ID          string `csv:"trip_id"`
	RouteID     string `csv:"route_id"`
	ServiceID   string `csv:"service_id"`
	Headsign    string `csv:"trip_headsign"`
	DirectionID int8   `csv:"direction_id"`
}

type Trip struct {
	ID          string
	Line        string
	Headsign    string
	DirectionID int8
}

// Parses trips.txt. routes maps route_id to line name, as returned by
// ParseRoutes.
func ParseTrips(data io.Reader, routes map[string]string) (map[string]Trip, error) {
	tripCsv := []*TripCSV{}
	if err := gocsv.Unmarshal(data, &tripCsv); err != nil {
		return nil, fmt.Errorf("unmarshaling trips csv: %w", err)
	}

	trips := map[string]Trip{}
	for _, t := range tripCsv {
		if t.ID == "" {
			return nil, fmt.Errorf("empty trip_id")
		}
		if _, found := trips[t.ID]; found {
			return nil, fmt.Errorf("repeated trip_id '%s'", t.ID)
		}
		if t.RouteID == "" {
			return nil, fmt.Errorf("empty route_id")
		}

		line, found := routes[t.RouteID]
		if !found {
			return nil, fmt.Errorf("unknown route_id '%s'", t.RouteID)
		}

		if t.DirectionID != 0 && t.DirectionID != 1 {
			return nil, fmt.Errorf("invalid direction_id '%d'", t.DirectionID)
		}

		trips[t.ID] = Trip{
			ID:          t.ID,
			Line:        line,
			Headsign:    t.Headsign,
			DirectionID: t.DirectionID,
		}
	}

	return trips, nil
}
