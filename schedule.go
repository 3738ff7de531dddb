package delays

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"sbahn.dev/delays/model"
	"sbahn.dev/delays/parse"
)

const DefaultMatchTolerance = 15 * time.Minute

//go:embed data/schedule.csv
var defaultScheduleCSV []byte

// Infers travel direction from line and scheduled time.
type DirectionClassifier interface {
	Classify(line string, t model.TimeOfDay) model.Direction
}

// Schedule is the static reference of planned departures. It is never
// modified after construction.
type Schedule struct {
	// Departures further than this from the queried time are not
	// considered a match.
	MatchTolerance time.Duration

	departuresByLine map[string][]model.ScheduledDeparture
}

func NewSchedule(departures []model.ScheduledDeparture) *Schedule {
	byLine := map[string][]model.ScheduledDeparture{}
	for _, d := range departures {
		line := strings.ToUpper(d.Line)
		byLine[line] = append(byLine[line], d)
	}
	for _, deps := range byLine {
		sort.SliceStable(deps, func(i, j int) bool {
			return deps[i].Time < deps[j].Time
		})
	}

	return &Schedule{
		MatchTolerance:   DefaultMatchTolerance,
		departuresByLine: byLine,
	}
}

// Loads a schedule from a pattern CSV. See parse.ParseSchedule.
func LoadSchedule(r io.Reader) (*Schedule, error) {
	departures, err := parse.ParseSchedule(r)
	if err != nil {
		return nil, fmt.Errorf("parsing schedule: %w", err)
	}
	return NewSchedule(departures), nil
}

// Builds a schedule from a zipped GTFS static feed. See
// parse.ParseStaticSchedule.
func LoadGTFSSchedule(feed []byte, opts parse.StaticScheduleOptions) (*Schedule, error) {
	departures, err := parse.ParseStaticSchedule(feed, opts)
	if err != nil {
		return nil, fmt.Errorf("parsing gtfs feed: %w", err)
	}
	if len(departures) == 0 {
		return nil, fmt.Errorf("gtfs feed has no departures at the given stops")
	}
	return NewSchedule(departures), nil
}

// The built in schedule, covering S4 and S20.
func DefaultSchedule() *Schedule {
	s, err := LoadSchedule(bytes.NewReader(defaultScheduleCSV))
	if err != nil {
		panic(fmt.Sprintf("embedded schedule: %v", err))
	}
	return s
}

func (s *Schedule) Lines() []string {
	lines := make([]string, 0, len(s.departuresByLine))
	for line := range s.departuresByLine {
		lines = append(lines, line)
	}
	sort.Strings(lines)
	return lines
}

// All departures on a line, ordered by time of day.
func (s *Schedule) Departures(line string) []model.ScheduledDeparture {
	return s.departuresByLine[strings.ToUpper(line)]
}

// Finds the departure on line closest to t, wrapping around
// midnight. The second return value is false if the line has no
// departures within MatchTolerance.
//
// If the closest departures in both directions are equally close to
// t, the one listed first is returned and ambiguous is set.
func (s *Schedule) Lookup(line string, t model.TimeOfDay) (dep model.ScheduledDeparture, ambiguous bool, found bool) {
	tolerance := int(s.MatchTolerance / time.Minute)
	best := -1

	for _, d := range s.Departures(line) {
		dist := t.Distance(d.Time)
		if dist > tolerance {
			continue
		}
		switch {
		case best < 0 || dist < best:
			dep, best, ambiguous = d, dist, false
		case dist == best && d.Direction != dep.Direction:
			ambiguous = true
		}
	}

	return dep, ambiguous, best >= 0
}

// Classifies by the direction of the closest scheduled departure.
// Returns DirectionUnknown when nothing matches or when the match is
// ambiguous.
func (s *Schedule) Classify(line string, t model.TimeOfDay) model.Direction {
	if !t.Valid() {
		return model.DirectionUnknown
	}
	dep, ambiguous, found := s.Lookup(line, t)
	if !found || ambiguous {
		return model.DirectionUnknown
	}
	return dep.Direction
}
