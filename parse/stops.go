package parse

import (
	"fmt"
	"io"

	"github.com/gocarina/gocsv"
)

const (
	locationTypeGenericNode  = 3
	locationTypeBoardingArea = 4
)

type StopCSV struct {
	ID            string `csv:"stop_id"`
	Name          string `csv:"stop_name"`
	LocationType  int8   `csv:"location_type"`
	ParentStation string `csv:"parent_station"`
}

type Stop struct {
	ID            string
	Name          string
	ParentStation string
}

// Parses stops.txt into stop_id -> Stop.
func ParseStops(data io.Reader) (map[string]Stop, error) {
	stopCsv := []*StopCSV{}
	if err := gocsv.Unmarshal(data, &stopCsv); err != nil {
		return nil, fmt.Errorf("unmarshaling stops csv: %w", err)
	}

	stops := map[string]Stop{}
	for _, st := range stopCsv {
		if st.ID == "" {
			return nil, fmt.Errorf("empty stop_id")
		}
		if _, found := stops[st.ID]; found {
			return nil, fmt.Errorf("repeated stop_id '%s'", st.ID)
		}

		// stop_name is "[o]ptional for locations which are
		// generic nodes (location_type=3) or boarding areas
		// (location_type=4)" and otherwise required
		if st.LocationType != locationTypeGenericNode &&
			st.LocationType != locationTypeBoardingArea &&
			st.Name == "" {
			return nil, fmt.Errorf("empty stop_name for stop_id '%s'", st.ID)
		}

		stops[st.ID] = Stop{
			ID:            st.ID,
			Name:          st.Name,
			ParentStation: st.ParentStation,
		}
	}

	for _, st := range stops {
		if st.ParentStation == "" {
			continue
		}
		if _, found := stops[st.ParentStation]; !found {
			return nil, fmt.Errorf("stop '%s' references unknown parent_station '%s'", st.ID, st.ParentStation)
		}
	}

	return stops, nil
}
