package parse

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
	"github.com/spkg/bom"

	"sbahn.dev/delays/model"
)

// A row in a schedule pattern file. Each row describes departures
// from first to last (inclusive) every headway minutes, all serving
// the same stop sequence.
type SchedulePatternCSV struct {
	Line           string `csv:"line"`
	Direction      string `csv:"direction"`
	FirstDeparture string `csv:"first_departure"`
	LastDeparture  string `csv:"last_departure"`
	Headway        int    `csv:"headway_minutes"`
	Stops          string `csv:"stops"`
}

// Parses schedule patterns and expands them into departures, sorted
// by line, time and direction.
func ParseSchedule(data io.Reader) ([]model.ScheduledDeparture, error) {
	patterns := []*SchedulePatternCSV{}
	err := gocsv.UnmarshalCSV(gocsv.LazyCSVReader(bom.NewReader(data)), &patterns)
	if err != nil {
		return nil, errors.Wrap(err, "unmarshaling schedule csv")
	}

	departures := []model.ScheduledDeparture{}
	for i, p := range patterns {
		expanded, err := expandPattern(p)
		if err != nil {
			return nil, errors.Wrapf(err, "schedule pattern (row %d)", i+1)
		}
		departures = append(departures, expanded...)
	}

	sortDepartures(departures)

	return departures, nil
}

func sortDepartures(departures []model.ScheduledDeparture) {
	sort.SliceStable(departures, func(i, j int) bool {
		a, b := departures[i], departures[j]
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		if a.Time != b.Time {
			return a.Time < b.Time
		}
		return a.Direction < b.Direction
	})
}

func expandPattern(p *SchedulePatternCSV) ([]model.ScheduledDeparture, error) {
	line := strings.ToUpper(strings.TrimSpace(p.Line))
	if line == "" {
		return nil, fmt.Errorf("empty line")
	}

	direction, err := model.ParseDirection(p.Direction)
	if err != nil {
		return nil, err
	}
	if direction == model.DirectionUnknown {
		return nil, fmt.Errorf("direction must be inbound or outbound")
	}

	first, err := model.ParseTimeOfDay(p.FirstDeparture)
	if err != nil {
		return nil, errors.Wrap(err, "parsing first_departure")
	}

	last := first
	if strings.TrimSpace(p.LastDeparture) != "" {
		last, err = model.ParseTimeOfDay(p.LastDeparture)
		if err != nil {
			return nil, errors.Wrap(err, "parsing last_departure")
		}
	}

	headway := p.Headway
	if last != first && headway <= 0 {
		return nil, fmt.Errorf("invalid headway_minutes %d", headway)
	}

	// Patterns may run past midnight, e.g. 23:40 to 00:40.
	span := int(last) - int(first)
	if span < 0 {
		span += model.MinutesPerDay
	}

	stops := []string{}
	for _, s := range strings.Split(p.Stops, ";") {
		if s = strings.TrimSpace(s); s != "" {
			stops = append(stops, s)
		}
	}

	departures := []model.ScheduledDeparture{}
	for offset := 0; offset <= span; offset += headway {
		departures = append(departures, model.ScheduledDeparture{
			Line:      line,
			Direction: direction,
			Time:      model.TimeOfDay((int(first) + offset) % model.MinutesPerDay),
			Stops:     stops,
		})
		if headway <= 0 {
			break
		}
	}

	return departures, nil
}
