package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Holds all external facing types and constants.

// Minutes since midnight, in [0, MinutesPerDay).
type TimeOfDay int

const MinutesPerDay = 24 * 60

// Parses "H:MM" or "HH:MM".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 || len(parts[1]) != 2 || len(parts[0]) == 0 || len(parts[0]) > 2 {
		return 0, fmt.Errorf("'%s' is not on form HH:MM", s)
	}

	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("non-integer hour in '%s'", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("non-integer minute in '%s'", s)
	}

	if h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in '%s'", s)
	}
	if m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in '%s'", s)
	}

	return TimeOfDay(h*60 + m), nil
}

// Time of day of t, in t's location.
func TimeOfDayOf(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*60 + t.Minute())
}

func (t TimeOfDay) Valid() bool {
	return t >= 0 && t < MinutesPerDay
}

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// Distance in minutes between two times of day, going whichever
// way around midnight is shorter.
func (t TimeOfDay) Distance(o TimeOfDay) int {
	d := int(t) - int(o)
	if d < 0 {
		d = -d
	}
	if d > MinutesPerDay/2 {
		d = MinutesPerDay - d
	}
	return d
}

type Direction int8

const (
	DirectionUnknown Direction = iota
	DirectionInbound
	DirectionOutbound
)

func (d Direction) String() string {
	switch d {
	case DirectionInbound:
		return "inbound"
	case DirectionOutbound:
		return "outbound"
	default:
		return "unknown"
	}
}

func (d Direction) Valid() bool {
	return d == DirectionUnknown || d == DirectionInbound || d == DirectionOutbound
}

func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "inbound":
		return DirectionInbound, nil
	case "outbound":
		return DirectionOutbound, nil
	case "unknown", "":
		return DirectionUnknown, nil
	}
	return DirectionUnknown, fmt.Errorf("invalid direction '%s'", s)
}

type RecordSource string

const (
	SourceManual RecordSource = "manual"
	SourceAPI    RecordSource = "api"
	SourceGTFSRT RecordSource = "gtfsrt"
)

// A single observed delay. Records are immutable once appended to
// storage; ID is assigned by the store.
type DelayRecord struct {
	ID            int64
	Line          string
	Station       string
	ScheduledTime TimeOfDay
	Delay         int // minutes, positive means late
	Direction     Direction
	Source        RecordSource
	CapturedAt    time.Time
}

// A raw observation as produced by an external source. Direction is
// inferred later.
type Observation struct {
	Line          string
	Station       string
	ScheduledTime TimeOfDay
	Delay         int
}

// A departure in the schedule reference, with the stops served in
// order.
type ScheduledDeparture struct {
	Line      string
	Direction Direction
	Time      TimeOfDay
	Stops     []string
}
