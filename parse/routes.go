package parse

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
)

type RouteCSV struct {
	ID        string `csv:"route_id"`
	AgencyID  string `csv:"agency_id"`
	ShortName string `csv:"route_short_name"`
	LongName  string `csv:"route_long_name"`
	Type      string `csv:"route_type"`
}

func legalRouteType(t int) bool {
	if t >= 0 && t <= 7 {
		return true
	}
	if t >= 11 && t <= 12 {
		return true
	}
	// Extended route types, e.g. 109 for suburban rail
	if t >= 100 && t <= 1700 {
		return true
	}
	return false
}

// Parses routes.txt into route_id -> line name. The line name is
// the upper cased short name, or the long name if there is none.
func ParseRoutes(data io.Reader) (map[string]string, error) {
	routeCsv := []*RouteCSV{}
	if err := gocsv.Unmarshal(data, &routeCsv); err != nil {
		return nil, fmt.Errorf("unmarshaling routes: %v", err)
	}

	routes := map[string]string{}

	for _, r := range routeCsv {
		// ID is required
		if r.ID == "" {
			return nil, fmt.Errorf("route has no route_id")
		}
		if _, found := routes[r.ID]; found {
			return nil, fmt.Errorf("repeated route_id: '%s'", r.ID)
		}

		// ShortName or LongName is required
		if r.ShortName == "" && r.LongName == "" {
			return nil, fmt.Errorf("route_id '%s' has no short_name or long_name", r.ID)
		}

		if r.Type == "" {
			return nil, fmt.Errorf("route_id '%s' has no route_type", r.ID)
		}
		routeType, err := strconv.Atoi(r.Type)
		if err != nil {
			return nil, fmt.Errorf("route_id '%s' has invalid route_type: %w", r.ID, err)
		}
		if !legalRouteType(routeType) {
			return nil, fmt.Errorf("route_id '%s' has invalid route_type: %d", r.ID, routeType)
		}

		name := r.ShortName
		if name == "" {
			name = r.LongName
		}
		routes[r.ID] = strings.ToUpper(strings.TrimSpace(name))
	}

	return routes, nil
}
